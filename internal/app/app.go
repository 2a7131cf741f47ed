package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chirantan-Dey/quiz-master/internal/adapter/mail/logsender"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/mail/sendgrid"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/account"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/attempt"
	catalogrepo "github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/catalog"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/jobrecord"
	"github.com/Chirantan-Dey/quiz-master/internal/auth"
	"github.com/Chirantan-Dey/quiz-master/internal/cache"
	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/internal/service/aggregate"
	"github.com/Chirantan-Dey/quiz-master/internal/service/catalog"
	"github.com/Chirantan-Dey/quiz-master/internal/service/chart"
	"github.com/Chirantan-Dey/quiz-master/internal/service/delivery"
	"github.com/Chirantan-Dey/quiz-master/internal/service/notify"
	"github.com/Chirantan-Dey/quiz-master/internal/service/report"
	"github.com/Chirantan-Dey/quiz-master/internal/transport/middleware"
	"github.com/Chirantan-Dey/quiz-master/internal/transport/rest"
)

// Run loads configuration, wires every component and serves until ctx is
// cancelled. Shutdown stops the HTTP server first, then the scheduler, then
// drains the workers.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.Int("workers", cfg.Jobs.Workers),
		slog.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	c, err := newComponents(ctx, logger, cfg, pool, newSender(logger, cfg.Mail))
	if err != nil {
		return err
	}

	c.jobs.Start(ctx)

	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = jobs.NewScheduler(logger, c.jobs, cfg.Scheduler)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		scheduler.Start()
	}

	limiter := middleware.NewRateLimiter(5 * time.Minute)
	defer limiter.Stop()

	router := rest.NewRouter(logger, *cfg, rest.RouterDeps{
		Health:    rest.NewHealthHandler(pool, c.jobs, Version),
		Jobs:      rest.NewJobsHandler(c.jobs, logger),
		Dashboard: rest.NewDashboardHandler(c.catalog, logger),
		Auth:      middleware.Auth(auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)),
		Limiter:   limiter,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", slog.String("error", err.Error()))
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := c.jobs.Shutdown(shutdownCtx); err != nil {
		logger.Error("jobs shutdown", slog.String("error", err.Error()))
	}

	logger.Info("application stopped")
	return nil
}

type components struct {
	jobs    *jobs.System
	catalog *catalog.Service
}

func newComponents(ctx context.Context, logger *slog.Logger, cfg *config.Config, pool *pgxpool.Pool, sender mailSender) (*components, error) {
	txm := postgres.NewTxManager(pool)

	accounts := account.New(pool)
	attempts := attempt.New(pool)
	catalogs := catalogrepo.New(pool)

	c, err := cache.New(cfg.Cache, logger, cache.WithComputeTimeout(cfg.Jobs.StepTimeout))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	catalogSvc := catalog.NewService(logger, c, catalogs, attempts)

	renderer, err := report.New()
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}

	charts := chart.NewService(logger, catalogs, cfg.Charts)
	if removed, err := charts.Sweep(ctx); err != nil {
		logger.Warn("initial chart sweep", slog.String("error", err.Error()))
	} else if removed > 0 {
		logger.Info("initial chart sweep", slog.Int("removed", removed))
	}

	mailer := delivery.NewService(logger, sender, cfg.Jobs.StepTimeout)

	var store jobs.RecordStore = jobs.NewMemoryStore()
	if cfg.Jobs.PersistRecords {
		store = jobrecord.New(pool)
	}

	sys, err := jobs.New(logger, cfg.Jobs, store, jobs.WithTxRunner(txm))
	if err != nil {
		return nil, fmt.Errorf("create job system: %w", err)
	}

	notify.NewService(logger, notify.Deps{
		Engine:   aggregate.NewService(logger, accounts, attempts, catalogSvc, cfg.Jobs.BatchSize, cfg.Jobs.StepTimeout),
		Renderer: renderer,
		Charts:   charts,
		Mailer:   mailer,
		Accounts: accounts,
		Catalog:  catalogSvc,
		Quizzes:  catalogs,
		Location: cfg.Scheduler.Location,
	}).Register(sys)

	return &components{jobs: sys, catalog: catalogSvc}, nil
}

type mailSender interface {
	Send(ctx context.Context, msg domain.Message) error
}

func newSender(logger *slog.Logger, cfg config.MailConfig) mailSender {
	if strings.EqualFold(cfg.Provider, "sendgrid") {
		return sendgrid.NewSender(cfg, logger)
	}
	return logsender.New(logger, 0)
}
