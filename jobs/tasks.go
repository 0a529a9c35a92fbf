package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup primes the sales dashboard cache.
	TaskCacheWarmup = "dashboard:cache_warmup"
	// TaskCacheBump invalidates every cached dashboard.
	TaskCacheBump = "dashboard:cache_bump"
	// CacheWarmupCron runs the warmup every ten minutes.
	CacheWarmupCron = "*/10 * * * *"
)

// CacheWarmupPayload narrows a warmup run. Empty fields warm everything.
type CacheWarmupPayload struct {
	Branches []string `json:"branches,omitempty"`
	Periods  []string `json:"periods,omitempty"`
}

// CacheBumpPayload records why the cache was invalidated.
type CacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewCacheWarmupTask constructs a warmup task.
func NewCacheWarmupTask(payload CacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}

// NewCacheBumpTask constructs a bump task.
func NewCacheBumpTask(payload CacheBumpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheBump, data, asynq.MaxRetry(3)), nil
}
