// Command cleanup removes chart artifacts past their retention window and
// purges finished job records older than the configured retention period.
// It is intended to be invoked by an external cron job, not as an
// in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/catalog"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/jobrecord"
	"github.com/Chirantan-Dey/quiz-master/internal/app"
	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/service/chart"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	failed := false

	charts := chart.NewService(logger, catalog.New(pool), cfg.Charts)
	removed, err := charts.Sweep(ctx)
	if err != nil {
		logger.Error("chart sweep failed", slog.String("error", err.Error()))
		failed = true
	} else {
		logger.Info("chart sweep completed",
			slog.Int("removed", removed),
			slog.Duration("retention", cfg.Charts.Retention),
		)
	}

	threshold := time.Now().Add(-cfg.Jobs.RetentionPeriod)
	deleted, err := jobrecord.New(pool).DeleteFinishedBefore(ctx, threshold)
	if err != nil {
		logger.Error("job record purge failed",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		failed = true
	} else {
		logger.Info("job record purge completed",
			slog.Int64("deleted", deleted),
			slog.Time("threshold", threshold),
		)
	}

	if failed {
		os.Exit(1)
	}
}
