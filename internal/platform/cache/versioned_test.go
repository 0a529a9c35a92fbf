package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, namespace string) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, namespace, time.Minute, nil), mr
}

func TestVersionedKeyEmbedsVersion(t *testing.T) {
	c, _ := newTestCache(t, "sales")
	ctx := context.Background()

	key, err := c.Key(ctx, "dashboard", "Sinop")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "sales:dashboard:Sinop:1" {
		t.Fatalf("unexpected key %s", key)
	}

	if _, err := c.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	key, _ = c.Key(ctx, "dashboard", "Sinop")
	if key != "sales:dashboard:Sinop:2" {
		t.Fatalf("expected bumped key, got %s", key)
	}
}

func TestFetchCachesLoaderResult(t *testing.T) {
	c, mr := newTestCache(t, "sales")
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"Sinop", "Sorriso"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, "sales:filiais:1", load)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(got) != 2 || got[0] != "Sinop" {
			t.Fatalf("unexpected value %v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}
	if !mr.Exists("sales:filiais:1") {
		t.Fatalf("expected key stored")
	}
	if ttl := mr.TTL("sales:filiais:1"); ttl != time.Minute {
		t.Fatalf("expected ttl, got %v", ttl)
	}
}

func TestFetchWithoutClientCallsLoader(t *testing.T) {
	c := NewVersioned(nil, "sales", time.Minute, nil)
	calls := 0
	for i := 0; i < 2; i++ {
		if _, err := Fetch(context.Background(), c, "k", func(context.Context) (int, error) {
			calls++
			return 1, nil
		}); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected loader on every call, got %d", calls)
	}
	key, _ := c.Key(context.Background(), "a", "b")
	if key != "sales:a:b" {
		t.Fatalf("unexpected key %s", key)
	}
}

func TestFetchPropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t, "sales")
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), c, "k", func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("failed loads must not be cached")
	}
}

func TestApplyIgnoresOtherNamespacesAndOlderVersions(t *testing.T) {
	c, mr := newTestCache(t, "sales")
	ctx := context.Background()
	if _, err := c.Version(ctx); err != nil {
		t.Fatalf("version: %v", err)
	}

	c.apply(ctx, "caps=9")
	c.apply(ctx, "sales=abc")
	if v, _ := mr.Get("sales:version"); v != "1" {
		t.Fatalf("expected version untouched, got %s", v)
	}

	c.apply(ctx, "sales=5")
	c.apply(ctx, "sales=3")
	if v, _ := mr.Get("sales:version"); v != "5" {
		t.Fatalf("expected version 5, got %s", v)
	}
}
