package main

import (
	"context"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/repositories"
	"github.com/planificaia/aliada/internal/sqlite"
	"github.com/planificaia/aliada/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("ALIADA_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "ALIADA_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// The class records come from the fixtures, so an empty table means the schema or the fixtures broke.
	records, err := repositories.NewClassRecordRepository(db, logger).List(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error listing class records", errors.SlogError(err))
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no class records found, something is likely wrong")
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "class record count", slog.Int("count", len(records)))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
}
