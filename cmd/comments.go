package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/comments"
	"github.com/desertthunder/readx/internal/formatter"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/repositories"
	"github.com/desertthunder/readx/internal/shared"
)

// commentStore binds a comment store for bookID acting as the signed-in user.
func (r *Runner) commentStore(ctx context.Context, bookID string) (*comments.Store, func(), error) {
	if bookID == "" {
		return nil, nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	sess, err := r.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	db, err := r.database()
	if err != nil {
		return nil, nil, err
	}

	logger := shared.WithLogger(r.logger, "component", "comments", "book", bookID)
	coll := comments.NewSQLCollection(repositories.NewCommentRepository(db), logger)
	store := comments.NewStore(coll, sess, comments.WithLogger(logger), comments.WithClock(r.now))
	if err := store.Bind(ctx, bookID); err != nil {
		coll.Close()
		return nil, nil, err
	}
	return store, func() { store.Close(); coll.Close() }, nil
}

// CommentsList prints a book's comments newest first.
func (r *Runner) CommentsList(ctx context.Context, cmd *cli.Command) error {
	bookID := cmd.StringArg("book")
	store, release, err := r.commentStore(ctx, bookID)
	if err != nil {
		return err
	}
	defer release()

	list := store.Comments()
	if cmd.Bool("json") {
		if list == nil {
			list = []models.Comment{}
		}
		return r.writeJSON(list, true)
	}

	if len(list) == 0 {
		return r.writePlain("No comments on %s yet.\n", bookID)
	}
	now := r.now()
	for _, c := range list {
		mine := ""
		if store.CanDelete(c) {
			mine = " (you)"
		}
		r.writePlain("%s  %s%s · %s\n    %s\n", c.ID, c.UserName, mine, formatter.RelativeTime(c.CreatedAt, now), c.Text)
	}
	return nil
}

// CommentsAdd posts a comment: add <book> <text...>.
func (r *Runner) CommentsAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: usage: add <book> <text...>", shared.ErrMissingArgument)
	}
	store, release, err := r.commentStore(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	defer release()

	c, err := store.Add(ctx, joinArgs(cmd, 1))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Posted comment %s\n", c.ID)
}

// CommentsDelete removes one of the signed-in user's comments.
func (r *Runner) CommentsDelete(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() < 2 {
		return fmt.Errorf("%w: usage: delete <book> <comment>", shared.ErrMissingArgument)
	}
	store, release, err := r.commentStore(ctx, args.Get(0))
	if err != nil {
		return err
	}
	defer release()

	id := args.Get(1)
	for _, c := range store.Comments() {
		if c.ID != id {
			continue
		}
		if err := store.Delete(ctx, c.ID, c.UserID); err != nil {
			return err
		}
		return r.writePlain("✓ Deleted comment %s\n", id)
	}
	return fmt.Errorf("%w: %s", shared.ErrCommentNotFound, id)
}
