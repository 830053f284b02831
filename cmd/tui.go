package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/search"
	"github.com/desertthunder/readx/internal/shared"
	"github.com/desertthunder/readx/internal/ui"
)

// TUI launches the interactive search screen. Saving books needs a signed-in session; browsing does not.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they don't draw over the screen.
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return err
	}

	var (
		provider *auth.Provider
		store    *library.Store
	)
	if s, _, release, err := r.libraryStore(ctx); err == nil {
		defer release()
		store = s
		provider, _ = r.identityProvider()
	} else {
		r.logger.Info("starting signed out", "reason", err)
	}

	model := ui.NewModel(ctx, catalog, provider, store,
		search.WithDebounce(r.config.Search.Debounce()),
		search.WithPageSize(r.config.Catalog.PageSize),
		search.WithLogger(shared.WithLogger(r.logger, "component", "search")),
	)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
