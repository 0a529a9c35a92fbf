package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options addresses the Redis instance shared by the dashboard caches and
// the job queue.
type Options struct {
	Addr     string
	Password string
	DB       int
	// DialTimeout also bounds the startup ping. Defaults to 5s.
	DialTimeout time.Duration
}

// RedisOptions converts opts for go-redis.
func (o Options) RedisOptions() *redis.Options {
	timeout := o.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &redis.Options{
		Addr:        o.Addr,
		Password:    o.Password,
		DB:          o.DB,
		DialTimeout: timeout,
	}
}

// New connects and pings. On failure the client is closed and nil returned,
// which callers pass to NewVersioned to run uncached.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	ro := opts.RedisOptions()
	client := redis.NewClient(ro)

	ctx, cancel := context.WithTimeout(ctx, ro.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}

	return client, nil
}
