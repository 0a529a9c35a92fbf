package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/painel-vendas/painel/internal/app"
	"github.com/painel-vendas/painel/internal/caps"
	"github.com/painel-vendas/painel/internal/goals"
	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/platform/cache"
	"github.com/painel-vendas/painel/internal/platform/db"
	"github.com/painel-vendas/painel/internal/sales"
	"github.com/painel-vendas/painel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	loc := cfg.Location()

	pool, err := db.New(ctx, cfg.DBOptions("painel-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	salesCache := cache.NewVersioned(redisClient, "sales", cfg.CacheTTL, logger)
	capsCache := cache.NewVersioned(redisClient, "caps", cfg.CacheTTL, logger)

	goalsService := goals.NewService(goals.NewRepository(pool), decimal.NewFromFloat(cfg.DefaultGoal), logger)
	salesService := sales.NewService(sales.NewRepository(pool), salesCache, goalsService, logger)
	capsService := caps.NewService(caps.NewRepository(pool), capsCache, logger)

	warmupJob := jobs.NewCacheWarmupJob(salesService, period.NewResolver(loc), logger, nil)
	bumpJob := &jobs.CacheBumpJob{
		Caches: map[string]jobs.Bumper{"sales": salesService, "caps": capsCache},
		Logger: logger,
	}

	warmupTask, err := jobs.NewCacheWarmupTask(jobs.CacheWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.AsynqRedis(),
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskCacheBump, Handler: bumpJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.CacheWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Prime the bone board once so the first visitor does not pay for it.
	if _, err := capsService.Board(ctx, period.Period{Kind: period.KindCustom, Start: caps.DefaultStart, End: caps.DefaultEnd}); err != nil {
		logger.Warn("prime caps board", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
