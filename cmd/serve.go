package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/comments"
	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/repositories"
	"github.com/desertthunder/readx/internal/server"
	"github.com/desertthunder/readx/internal/shared"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	identity, err := r.identityService()
	if err != nil {
		return err
	}
	catalog, err := r.catalogClient(ctx)
	if err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	libColl := library.NewSQLCollection(repositories.NewLibraryRepository(db), logger)
	defer libColl.Close()
	cmtColl := comments.NewSQLCollection(repositories.NewCommentRepository(db), logger)
	defer cmtColl.Close()

	api := server.NewAPI(identity, catalog, libColl, cmtColl, r.completionClient(),
		server.WithLogger(logger),
		server.WithPageSize(r.config.Catalog.PageSize),
	)
	defer api.Close()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx, addr, api.Handler(), logger)
}
