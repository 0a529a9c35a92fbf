package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/painel-vendas/painel/internal/jobs"
	"github.com/painel-vendas/painel/internal/period"
	"github.com/painel-vendas/painel/internal/sales"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DefaultWarmupPeriods are the presets primed when the payload names none.
var DefaultWarmupPeriods = []string{"hoje", "semana", "mes", "ano"}

// Warmer is the slice of the sales service used by the warmup.
type Warmer interface {
	Branches(ctx context.Context) ([]string, error)
	Dashboard(ctx context.Context, q sales.Query) (sales.Dashboard, error)
}

// CacheWarmupJob pre-builds dashboards for every branch and common period.
type CacheWarmupJob struct {
	Sales    Warmer
	Resolver *period.Resolver
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(svc Warmer, resolver *period.Resolver, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	if resolver == nil {
		resolver = period.NewResolver(time.Local)
	}
	return &CacheWarmupJob{Sales: svc, Resolver: resolver, Logger: logger, Metrics: metrics}
}

// Handle processes warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sales == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	return j.Run(ctx, payload)
}

// Run warms the cache synchronously.
func (j *CacheWarmupJob) Run(ctx context.Context, payload CacheWarmupPayload) (resultErr error) {
	tracker := j.metrics().Track(TaskCacheWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()

	branches := payload.Branches
	if len(branches) == 0 {
		listed, err := j.Sales.Branches(ctx)
		if err != nil {
			logger.Error("load branches", slog.Any("error", err))
			return err
		}
		branches = listed
	}
	periods := payload.Periods
	if len(periods) == 0 {
		periods = DefaultWarmupPeriods
	}

	total := 0
	// "" warms the all-branches view.
	for _, branch := range append([]string{""}, branches...) {
		warmed := 0
		for _, token := range periods {
			kind := period.ParseKind(token)
			p, err := j.Resolver.Resolve(kind, "", "")
			if err != nil {
				return err
			}
			q := sales.Query{Start: p.Start, End: p.End, GroupByMonth: kind.GroupByMonth(), PeriodToken: token}
			if branch != "" {
				q.Branches = []string{branch}
			}
			scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			_, err = j.Sales.Dashboard(scopeCtx, q)
			cancel()
			if err != nil {
				logger.Error("warm dashboard", slog.String("branch", branch), slog.String("period", token), slog.Any("error", err))
				return err
			}
			warmed++
		}
		j.metrics().AddWarmed(branch, warmed)
		total += warmed
	}

	logger.Info("completed cache warmup", slog.Int("dashboards", total), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
