package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultBumpChannel carries version bumps between API replicas.
const DefaultBumpChannel = "painel.bump"

// Versioned caches JSON payloads under a namespace whose keys embed a global
// version. Bumping the version invalidates every key of the namespace at once.
type Versioned struct {
	client     *redis.Client
	ttl        time.Duration
	namespace  string
	versionKey string
	channel    string
	logger     *slog.Logger
}

// NewVersioned builds a cache for namespace. A nil client disables caching and
// every Fetch goes straight to its loader.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration, logger *slog.Logger) *Versioned {
	if logger == nil {
		logger = slog.Default()
	}
	return &Versioned{
		client:     client,
		ttl:        ttl,
		namespace:  namespace,
		versionKey: namespace + ":version",
		channel:    DefaultBumpChannel,
		logger:     logger.With(slog.String("component", "cache"), slog.String("namespace", namespace)),
	}
}

// Enabled reports whether a Redis client backs the cache.
func (c *Versioned) Enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current version, initialising it to 1 when missing.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, c.versionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.Set(ctx, c.versionKey, 1, 0).Err(); err != nil {
			return 0, fmt.Errorf("platform/cache: init version: %w", err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("platform/cache: version: %w", err)
	}
	return ver, nil
}

// Key composes namespace, parts and the current version.
func (c *Versioned) Key(ctx context.Context, parts ...string) (string, error) {
	if c == nil {
		return strings.Join(parts, ":"), nil
	}
	joined := strings.Join(append([]string{c.namespace}, parts...), ":")
	if !c.Enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return joined + ":" + strconv.FormatInt(ver, 10), nil
}

// Bump invalidates the namespace and announces the new version.
func (c *Versioned) Bump(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("platform/cache: bump: %w", err)
	}
	payload := c.namespace + "=" + strconv.FormatInt(ver, 10)
	if err := c.client.Publish(ctx, c.channel, payload).Err(); err != nil {
		return ver, fmt.Errorf("platform/cache: publish bump: %w", err)
	}
	return ver, nil
}

// Listen follows bumps published by other processes until ctx ends.
func (c *Versioned) Listen(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	pubsub := c.client.Subscribe(ctx, c.channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c.apply(ctx, msg.Payload)
			}
		}
	}()
}

func (c *Versioned) apply(ctx context.Context, payload string) {
	ns, raw, ok := strings.Cut(payload, "=")
	if !ok || ns != c.namespace {
		return
	}
	ver, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.logger.Warn("ignoring bump", slog.String("payload", payload))
		return
	}
	current, err := c.Version(ctx)
	if err != nil || current >= ver {
		return
	}
	if err := c.client.Set(ctx, c.versionKey, ver, 0).Err(); err != nil {
		c.logger.Warn("apply bump failed", slog.Any("error", err))
	}
}

// Fetch returns the value cached under key or stores what load produces.
// Redis read failures fall back to the loader.
func Fetch[T any](ctx context.Context, c *Versioned, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if load == nil {
		return zero, errors.New("platform/cache: loader required")
	}
	if !c.Enabled() {
		return load(ctx)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("discarding corrupt entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	value, err := load(ctx)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("platform/cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return value, nil
}
