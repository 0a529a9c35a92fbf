package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/painel-vendas/painel/cmd/painel/cli"
	"github.com/painel-vendas/painel/internal/app"
	"github.com/painel-vendas/painel/internal/caps"
	"github.com/painel-vendas/painel/internal/goals"
	"github.com/painel-vendas/painel/internal/observability"
	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/cache"
	"github.com/painel-vendas/painel/internal/platform/db"
	"github.com/painel-vendas/painel/internal/sales"
	saleshttp "github.com/painel-vendas/painel/internal/sales/http"
	"github.com/painel-vendas/painel/internal/view"
	"github.com/painel-vendas/painel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.LoadDotEnv()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.LogFormat)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.AsynqRedis())
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		if err := jobsCLI.Run(ctx, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("painel", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	loc := cfg.Location()

	dbpool, err := db.New(ctx, cfg.DBOptions("painel"))
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	salesCache := cache.NewVersioned(redisClient, "sales", cfg.CacheTTL, logger)
	capsCache := cache.NewVersioned(redisClient, "caps", cfg.CacheTTL, logger)
	salesCache.Listen(ctx)
	capsCache.Listen(ctx)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	goalsService := goals.NewService(goals.NewRepository(dbpool), decimal.NewFromFloat(cfg.DefaultGoal), logger)
	salesService := sales.NewService(sales.NewRepository(dbpool), salesCache, goalsService, logger)
	salesHandler := saleshttp.NewHandler(logger, salesService, metrics, loc)

	var goalsAuth func(http.Handler) http.Handler
	if cfg.GoalsAdminHash != "" {
		goalsAuth = goals.BasicAuth(cfg.GoalsAdminUser, cfg.GoalsAdminHash)
	} else {
		logger.Warn("GOALS_ADMIN_HASH not set, goal changes are unauthenticated")
	}
	goalsHandler := goals.NewHandler(logger, goalsService, salesService, goalsAuth, loc)

	capsService := caps.NewService(caps.NewRepository(dbpool), capsCache, logger)
	capsHandler := caps.NewHandler(logger, capsService, loc)

	pages := app.NewPages(templates, salesService, capsService, period.NewResolver(loc), cfg.DefaultGoal, logger)

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		SalesHandler: salesHandler,
		GoalsHandler: goalsHandler,
		CapsHandler:  capsHandler,
		Pages:        pages,
		JobHandler:   jobHandler,
		Metrics:      metrics,
		Health:       healthChecks(dbpool, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func healthChecks(pool *pgxpool.Pool, client *redis.Client) map[string]app.HealthCheck {
	checks := map[string]app.HealthCheck{
		"postgres": func(r *http.Request) error {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
	}
	if client != nil {
		checks["redis"] = func(r *http.Request) error {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
