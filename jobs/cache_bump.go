package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/painel-vendas/painel/internal/jobs"
)

// Bumper invalidates one cache namespace.
type Bumper interface {
	Bump(ctx context.Context) (int64, error)
}

// CacheBumpJob bumps every registered cache namespace.
type CacheBumpJob struct {
	Caches  map[string]Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || len(j.Caches) == 0 {
		return errors.New("cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCacheBump)

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskCacheBump), slog.String("reason", payload.Reason))

	var errs []error
	for name, cache := range j.Caches {
		version, err := cache.Bump(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		logger.Info("cache bumped", slog.String("namespace", name), slog.Int64("version", version))
	}
	return tracker.End(errors.Join(errs...))
}
