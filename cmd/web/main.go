package main

import (
	"context"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/planificaia/aliada/internal/broker"
	"github.com/planificaia/aliada/internal/catalog"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/envstruct"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/forms"
	"github.com/planificaia/aliada/internal/id"
	"github.com/planificaia/aliada/internal/logging"
	"github.com/planificaia/aliada/internal/onboarding"
	"github.com/planificaia/aliada/internal/pprofserver"
	"github.com/planificaia/aliada/internal/repositories"
	"github.com/planificaia/aliada/internal/screens"
	"github.com/planificaia/aliada/internal/sqlite"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type application struct {
	// ctx is cancelled on shutdown. Screens bind their pending replies to it.
	ctx            context.Context
	logger         *slog.Logger
	cfg            config
	sessionManager *scs.SessionManager
	htmx           *htmx.HTMX
	validator      *forms.Validator
	table          *onboarding.Table
	locations      *catalog.Catalog
	profiles       *onboarding.MemoryProfiles
	screens        *screens.Registry
	broker         *broker.ChannelBroker[int64, chat.Message]
	classRecords   *repositories.ClassRecordRepository
}

type config struct {
	Addr              string        `env:"ALIADA_ADDR"                envDefault:"localhost:4000"`
	SqliteURL         string        `env:"ALIADA_SQLITE_URL"          envDefault:"./aliada.sqlite"`
	PprofAddr         string        `env:"ALIADA_PPROF_ADDR"          envDefault:""`
	ReplyDelay        time.Duration `env:"ALIADA_REPLY_DELAY"         envDefault:"1s"`
	AnalysisDelay     time.Duration `env:"ALIADA_ANALYSIS_DELAY"      envDefault:"3s"`
	SnowflakeNode     int64         `env:"ALIADA_SNOWFLAKE_NODE"      envDefault:"1"`
	ScreenIdleTimeout time.Duration `env:"ALIADA_SCREEN_IDLE_TIMEOUT" envDefault:"2h"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if err = id.Init(cfg.SnowflakeNode); err != nil {
		return errors.Wrap(err, "init snowflake node", slog.Int64("node", cfg.SnowflakeNode))
	}

	pprofserver.Launch(ctx, cfg.PprofAddr, logger)

	var dbs *sqlite.Database
	if dbs, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() {
		if closeErr := dbs.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database",
				errors.SlogError(errors.Wrap(closeErr, "close database")))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	var locations *catalog.Catalog
	if locations, err = catalog.Default(); err != nil {
		return errors.Wrap(err, "load location catalog")
	}
	var table *onboarding.Table
	if table, err = onboarding.DefaultTable(); err != nil {
		return errors.Wrap(err, "load step table")
	}
	var validator *forms.Validator
	if validator, err = forms.NewValidator(); err != nil {
		return errors.Wrap(err, "create validator")
	}

	sessionStore := sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 30*time.Minute) //nolint:mnd // 30 minutes
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // half a day
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	replies := broker.NewChannelBroker[int64, chat.Message]()
	go replies.Start()
	defer replies.Stop()

	registry := screens.NewRegistry(cfg.ScreenIdleTimeout, logger)
	go registry.StartJanitor(ctx, time.Minute)
	defer registry.Close()

	app := application{
		ctx:            ctx,
		logger:         logger,
		cfg:            cfg,
		sessionManager: sessionManager,
		htmx:           htmx.New(),
		validator:      validator,
		table:          table,
		locations:      locations,
		profiles:       onboarding.NewMemoryProfiles(logger),
		screens:        registry,
		broker:         replies,
		classRecords:   repositories.NewClassRecordRepository(dbs, logger),
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()

	// The environment may come from elsewhere, so a missing .env file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	level, _ := os.LookupEnv("ALIADA_LOG_LEVEL")
	logger := logging.NewLogger(os.Stdout, logging.ParseLevel(level))

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
