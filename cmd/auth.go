package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
	"github.com/desertthunder/readx/internal/stats"
)

// AuthSignup creates an account and stores its session token.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	name, email := cmd.String("name"), cmd.String("email")
	password, confirm := cmd.String("password"), cmd.String("confirm")

	if err := auth.ValidateSignup(name, email, password, confirm); err != nil {
		return fmt.Errorf("%s: %w", auth.Message(err), err)
	}

	provider, err := r.identityProvider()
	if err != nil {
		return err
	}
	sess, err := provider.Signup(ctx, email, password, name)
	if err != nil {
		return fmt.Errorf("%s: %w", auth.Message(err), err)
	}

	if err := r.storeSession(sess, false); err != nil {
		return err
	}
	r.logger.Info("account created", "user", sess.UID)
	return r.writePlain("✓ Welcome, %s! You are signed in.\n", sess.DisplayName)
}

// AuthLogin signs in and stores the session token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}

	email := cmd.String("email")
	if email == "" {
		email = store.RememberedEmail()
	}
	password := cmd.String("password")

	if err := auth.ValidateLogin(email, password); err != nil {
		return fmt.Errorf("%s: %w", auth.Message(err), err)
	}

	provider, err := r.identityProvider()
	if err != nil {
		return err
	}
	sess, err := provider.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("%s: %w", auth.Message(err), err)
	}

	if err := r.storeSession(sess, cmd.Bool("remember")); err != nil {
		return err
	}
	return r.writePlain("✓ Signed in as %s\n", sess.Email)
}

func (r *Runner) storeSession(sess *models.Session, remember bool) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}
	if err := store.SetSession(sess.Token, sess.Email); err != nil {
		return err
	}
	return store.RecordLogin(remember, sess.Email)
}

// AuthLogout forgets the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	store, err := r.preferences()
	if err != nil {
		return err
	}
	if store.Get().Session.Token == "" {
		return r.writePlain("Not signed in\n")
	}

	if r.provider != nil {
		r.provider.Logout()
	}
	if err := store.ClearSession(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus shows the signed-in account and its goal.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := *sess
		out.Token = ""
		return r.writeJSON(out, true)
	}

	r.writePlainHeader("Account")
	r.writePlain("Name:    %s\n", sess.DisplayName)
	r.writePlain("Email:   %s\n", sess.Email)
	r.writePlain("Goal:    %d books this year\n", sess.YearlyGoal)
	r.writePlain("Expires: %s\n", sess.ExpiresAt.Local().Format("Jan 2, 2006 15:04"))
	return nil
}

// AuthGoal sets the yearly reading goal.
func (r *Runner) AuthGoal(ctx context.Context, cmd *cli.Command) error {
	goal := cmd.IntArg("books")
	if goal < 1 {
		return fmt.Errorf("%w: goal must be at least 1 book", shared.ErrInvalidArgument)
	}

	if _, err := r.session(ctx); err != nil {
		return err
	}
	if err := r.provider.UpdateYearlyGoal(ctx, goal); err != nil {
		return err
	}

	store, sess, release, err := r.libraryStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	s := stats.Derive(store.Entries(), r.now())
	pct := stats.GoalProgress(s.Completed, sess.YearlyGoal)
	r.writePlain("✓ Yearly goal set to %d books\n", sess.YearlyGoal)
	r.writePlain("%s %d%% (%d completed)\n", formatter.ProgressBar(pct, 20), pct, s.Completed)
	return nil
}

// joinArgs joins positional arguments from index i on.
func joinArgs(cmd *cli.Command, i int) string {
	args := cmd.Args().Slice()
	if i >= len(args) {
		return ""
	}
	return strings.Join(args[i:], " ")
}
