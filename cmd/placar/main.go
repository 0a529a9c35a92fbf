// Command placar polls the painel API and keeps a directory of rendered
// widgets up to date for the TV displays.
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

	"golang.org/x/time/rate"

	"github.com/painel-vendas/painel/internal/app"
	"github.com/painel-vendas/painel/internal/dashboard"
	"github.com/painel-vendas/painel/internal/observability"
	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/render"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping poller startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.LoadDotEnv()
	cfg, err := app.LoadPollerConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogFormat)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("placar", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.PollerConfig, logger *slog.Logger) error {
	variant, err := dashboard.VariantByName(cfg.Variant, cfg.Unit, cfg.Goal)
	if err != nil {
		return err
	}
	if cfg.Refresh > 0 {
		variant.RefreshInterval = cfg.Refresh
	}
	if cfg.Rotation > 0 {
		variant.RankingRotation = cfg.Rotation
	}
	variant.GuardRegression = variant.GuardRegression && cfg.Guard

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener", slog.Any("error", err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestRate), 1)
	fetcher := dashboard.NewFetcher(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout}, limiter, logger)
	renderer := render.NewSet(render.FileTargets(cfg.OutputDir, ".html", render.WidgetIDs(variant)...), logger)
	defer renderer.Dispose()

	d, err := dashboard.New(dashboard.Config{
		Variant: variant,
		Selection: dashboard.Selection{
			Kind:        period.ParseKind(cfg.Period),
			CustomStart: cfg.PeriodStart,
			CustomEnd:   cfg.PeriodEnd,
			Branches:    cfg.Branches,
			Seller:      cfg.Seller,
		},
		Source:   fetcher,
		Renderer: renderer,
		Notifier: dashboard.LogNotifier{Logger: logger},
		Recorder: metrics,
		Resolver: period.NewResolver(cfg.Location()),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// USR1 hides the display, USR2 shows it again.
	visibility := make(chan os.Signal, 1)
	signal.Notify(visibility, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(visibility)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-visibility:
				d.SetVisible(sig == syscall.SIGUSR2)
			}
		}
	}()

	logger.Info("placar started",
		slog.String("variant", variant.Name),
		slog.String("api", cfg.APIBaseURL),
		slog.String("output", cfg.OutputDir),
		slog.String("instance", d.ID()),
	)
	return d.Run(ctx)
}
