// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag { return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"} }

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "status", Usage: "Only list migrations and whether they are applied"},
					&cli.BoolFlag{Name: "rollback", Usage: "Roll back the most recent migration"},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "generate-secret", Usage: "Fill auth.secret with a random value"},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand starts the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and live updates",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to server.host:server.port)"},
		},
		Action: r.Serve,
	}
}

// authCommand handles account operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Password (at least 6 characters)", Required: true},
					&cli.StringFlag{Name: "confirm", Usage: "Repeat the password", Required: true},
				},
				Action: r.AuthSignup,
			},
			{
				Name:  "login",
				Usage: "Sign in and keep the session on this device",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address (defaults to the remembered one)"},
					&cli.StringFlag{Name: "password", Usage: "Password", Required: true},
					&cli.BoolFlag{Name: "remember", Usage: "Remember the email for next time"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in account",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:      "goal",
				Usage:     "Set the yearly reading goal",
				Arguments: []cli.Argument{&cli.IntArg{Name: "books"}},
				Action:    r.AuthGoal,
			},
		},
	}
}

// searchCommand runs a catalog search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the book catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "print-type", Usage: "all, book or magazine", Value: "all"},
			&cli.StringFlag{Name: "availability", Usage: "all, free-ebooks, paid-ebooks or ebooks", Value: "all"},
			&cli.StringFlag{Name: "language", Aliases: []string{"lang"}, Usage: "Two-letter language code"},
			&cli.StringFlag{Name: "subject", Usage: "Restrict to a subject"},
			&cli.IntFlag{Name: "more", Usage: "Load N additional pages"},
			&cli.IntFlag{Name: "page-size", Usage: "Results per page (max 40)"},
			jsonFlag(),
		},
		Action: r.Search,
	}
}

// bookCommand shows one catalog record
func bookCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "book",
		Usage:     "Show a book's details",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "open", Usage: "Open the preview link in a browser"},
			jsonFlag(),
		},
		Action: r.BookShow,
	}
}

// libraryCommand handles the signed-in user's saved books
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage your saved books",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved books",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "refresh", Usage: "Re-fetch book records from the catalog"},
					jsonFlag(),
				},
				Action: r.LibraryList,
			},
			{
				Name:      "save",
				Usage:     "Save a catalog book",
				Arguments: []cli.Argument{&cli.StringArg{Name: "book"}},
				Action:    r.LibrarySave,
			},
			{
				Name:      "remove",
				Usage:     "Remove a saved book (entry or book id)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "entry"}},
				Action:    r.LibraryRemove,
			},
			{
				Name:      "progress",
				Usage:     "Set progress percent: progress <entry> <percent>",
				ArgsUsage: "<entry> <percent>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Also set the current page", Value: -1},
				},
				Action: r.LibraryProgress,
			},
			{
				Name:      "page",
				Usage:     "Move the current page",
				Arguments: []cli.Argument{&cli.StringArg{Name: "entry"}},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "to", Usage: "Go to page N", Value: -1},
					&cli.BoolFlag{Name: "next", Usage: "Advance one page"},
					&cli.BoolFlag{Name: "prev", Usage: "Go back one page"},
					&cli.StringFlag{Name: "jump", Usage: "Start, 25%, 50%, 75% or End"},
				},
				Action: r.LibraryPage,
			},
			{
				Name:      "note",
				Usage:     "Replace notes: note <entry> <text...>",
				ArgsUsage: "<entry> <text...>",
				Action:    r.LibraryNote,
			},
			{
				Name:  "export",
				Usage: "Export the library to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "markdown"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path", Value: "library.md"},
					&cli.StringFlag{Name: "title", Usage: "Document title for markdown exports"},
					&cli.BoolFlag{Name: "covers", Usage: "Download cover images next to a markdown export"},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// statsCommand summarizes reading activity
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show reading statistics and goal progress",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Stats,
	}
}

// commentsCommand handles per-book discussion
func commentsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "Read and write book comments",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List comments on a book, newest first",
				Arguments: []cli.Argument{&cli.StringArg{Name: "book"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.CommentsList,
			},
			{
				Name:      "add",
				Usage:     "Comment on a book: add <book> <text...>",
				ArgsUsage: "<book> <text...>",
				Action:    r.CommentsAdd,
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your comments: delete <book> <comment>",
				ArgsUsage: "<book> <comment>",
				Action:    r.CommentsDelete,
			},
		},
	}
}

// chatCommand starts a reading-assistant conversation
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask the reading assistant about a book",
		Arguments: []cli.Argument{&cli.StringArg{Name: "book"}},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Send one message and exit"},
			&cli.IntFlag{Name: "page", Usage: "Current page (defaults to your saved position)", Value: -1},
		},
		Action: r.Chat,
	}
}

// settingsCommand handles device-local preferences
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Reading and sign-in preferences on this device",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show current preferences",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.SettingsShow,
			},
			{
				Name:  "set",
				Usage: "Change reading settings",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "font-size", Usage: "12 to 28"},
					&cli.FloatFlag{Name: "line-height", Usage: "1.2 to 2.5"},
					&cli.FloatFlag{Name: "letter-spacing", Usage: "0 to 0.3 em"},
					&cli.StringFlag{Name: "theme", Usage: "default, sepia, dark or highContrast"},
					&cli.BoolFlag{Name: "reset", Usage: "Restore the defaults first"},
				},
				Action: r.SettingsSet,
			},
			{
				Name:      "profile",
				Usage:     "Apply a preset: dyslexia, lowVision or focus",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.SettingsProfile,
			},
			{
				Name:  "remember",
				Usage: "Remember an email for sign-in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email to remember"},
					&cli.BoolFlag{Name: "off", Usage: "Stop remembering"},
				},
				Action: r.SettingsRemember,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive search.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive search screen",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-file", Usage: "Where to write logs while the screen is open", Value: "./tmp/readx-tui.log"},
		},
		Action: r.TUI,
	}
}
