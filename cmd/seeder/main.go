// Command seeder fills the database with sample accounts, a quiz catalog and
// scored attempts. It is intended for local and staging environments, not as
// part of the main server.
//
// Flags:
//
//	--phase          comma-separated list of phases to run (default: all)
//	--dry-run        plan the data without writing to DB
//	--seeder-config  path to seeder YAML config file
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/account"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/attempt"
	catalogrepo "github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/catalog"
	"github.com/Chirantan-Dey/quiz-master/internal/app"
	"github.com/Chirantan-Dey/quiz-master/internal/app/seeder"
	"github.com/Chirantan-Dey/quiz-master/internal/cache"
	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/service/catalog"
)

// Compile-time interface assertions.
var (
	_ seeder.AccountWriter   = (*account.Repo)(nil)
	_ seeder.CatalogWriter   = (*catalogrepo.Repo)(nil)
	_ seeder.AttemptRecorder = (*catalog.Service)(nil)
)

func main() {
	phaseFlag := flag.String("phase", "", "comma-separated phases to run (default: all)")
	dryRunFlag := flag.Bool("dry-run", false, "plan the data without writing to DB")
	seederConfigFlag := flag.String("seeder-config", "", "path to seeder YAML config file")
	flag.Parse()

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}

	logger := app.NewLogger(appCfg.Log)

	seederCfg, err := seeder.LoadConfig(*seederConfigFlag)
	if err != nil {
		logger.Error("load seeder config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// CLI flags override config.
	if *dryRunFlag {
		seederCfg.DryRun = true
	}

	var phases []string
	if *phaseFlag != "" {
		phases = strings.Split(*phaseFlag, ",")
		for i := range phases {
			phases[i] = strings.TrimSpace(phases[i])
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, appCfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	c, err := cache.New(appCfg.Cache, logger)
	if err != nil {
		logger.Error("create cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalogs := catalogrepo.New(pool)
	catalogSvc := catalog.NewService(logger, c, catalogs, attempt.New(pool))

	pipeline := seeder.NewPipeline(logger, account.New(pool), catalogs, catalogSvc, *seederCfg)
	if err := pipeline.Run(ctx, phases); err != nil {
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if pipeline.HasErrors() {
		logger.Warn("pipeline completed with errors")
		os.Exit(1)
	}

	logger.Info("pipeline completed successfully")
}
