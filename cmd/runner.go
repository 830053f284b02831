package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/prefs"
	"github.com/desertthunder/readx/internal/repositories"
	"github.com/desertthunder/readx/internal/services"
	"github.com/desertthunder/readx/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Database, identity, prefs and remote clients are opened on first use so that commands which
// never touch them (settings, setup config) work without a database or network.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	now        func() time.Time

	catalog   services.Catalog
	completer services.Completer
	db        *sql.DB
	ownsDB    bool
	identity  *auth.Service
	authOpts  []auth.Option
	provider  *auth.Provider
	prefs     *prefs.Store
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Catalog    services.Catalog
	Completer  services.Completer
	DB         *sql.DB
	Prefs      *prefs.Store
	AuthOpts   []auth.Option
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		now:        opts.Now,
		catalog:    opts.Catalog,
		completer:  opts.Completer,
		db:         opts.DB,
		prefs:      opts.Prefs,
		authOpts:   opts.AuthOpts,
	}
}

// SetLogger replaces the logger, e.g. when the TUI takes over the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// LoadConfig is the root Before hook: it reads --config when the file exists and overlays the environment.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if err := shared.ApplyEnv(r.config, ".env"); err != nil {
		return ctx, err
	}

	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() {
	if r.db != nil && r.ownsDB {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, searchCommand, bookCommand, libraryCommand,
		statsCommand, commentsCommand, chatCommand, settingsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens the configured sqlite file and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.Path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.ownsDB = true
	return db, nil
}

func (r *Runner) identityService() (*auth.Service, error) {
	if r.identity != nil {
		return r.identity, nil
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	opts := append([]auth.Option{auth.WithLogger(shared.WithLogger(r.logger, "component", "auth"))}, r.authOpts...)
	svc, err := auth.NewService(repositories.NewUserRepository(db), r.config.Auth, opts...)
	if err != nil {
		return nil, err
	}
	r.identity = svc
	return svc, nil
}

// identityProvider is the observable signed-in state shared by the TUI and the session helpers.
func (r *Runner) identityProvider() (*auth.Provider, error) {
	if r.provider != nil {
		return r.provider, nil
	}
	svc, err := r.identityService()
	if err != nil {
		return nil, err
	}
	r.provider = auth.NewProvider(svc)
	return r.provider, nil
}

func (r *Runner) preferences() (*prefs.Store, error) {
	if r.prefs != nil {
		return r.prefs, nil
	}
	store, err := prefs.Open(r.config.Prefs.Path)
	if err != nil {
		return nil, err
	}
	r.prefs = store
	return store, nil
}

func (r *Runner) catalogClient(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	cache, err := services.NewBookCache(ctx, r.config.Cache)
	if err != nil {
		r.logger.Warn("book cache unavailable, continuing without it", "backend", r.config.Cache.Backend, "error", err)
		cache = nil
	}

	opts := []services.CatalogOption{services.WithCatalogLogger(shared.WithLogger(r.logger, "component", "catalog"))}
	if cache != nil {
		opts = append(opts, services.WithBookCache(cache))
	}
	r.catalog = services.NewCatalogClient(r.config.Catalog, opts...)
	return r.catalog, nil
}

func (r *Runner) completionClient() services.Completer {
	if r.completer == nil {
		r.completer = services.NewCompletionClient(r.config.Completion,
			services.WithCompletionLogger(shared.WithLogger(r.logger, "component", "completion")))
	}
	return r.completer
}

// session restores the saved sign-in. It fails with [shared.ErrNotAuthenticated] when signed out.
func (r *Runner) session(ctx context.Context) (*models.Session, error) {
	store, err := r.preferences()
	if err != nil {
		return nil, err
	}

	token := store.Get().Session.Token
	if token == "" {
		return nil, fmt.Errorf("%w: run 'readx auth login' first", shared.ErrNotAuthenticated)
	}

	provider, err := r.identityProvider()
	if err != nil {
		return nil, err
	}
	if sess := provider.Current(); sess != nil {
		return sess, nil
	}

	sess, err := provider.Restore(ctx, token)
	if err != nil {
		if auth.CodeOf(err) == auth.CodeInvalidToken || auth.CodeOf(err) == auth.CodeUserNotFound {
			_ = store.ClearSession()
		}
		return nil, fmt.Errorf("%s: %w", auth.Message(err), err)
	}
	return sess, nil
}

// libraryStore binds a library store for the signed-in user. The returned func releases it.
func (r *Runner) libraryStore(ctx context.Context) (*library.Store, *models.Session, func(), error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := r.database()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := shared.WithLogger(r.logger, "component", "library", "user", sess.UID)
	coll := library.NewSQLCollection(repositories.NewLibraryRepository(db), logger)
	store := library.NewStore(coll, library.WithLogger(logger), library.WithClock(r.now))
	if err := store.Bind(ctx, sess); err != nil {
		coll.Close()
		return nil, nil, nil, err
	}

	release := func() {
		store.Close()
		coll.Close()
	}
	return store, sess, release, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
