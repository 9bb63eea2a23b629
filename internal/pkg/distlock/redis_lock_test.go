package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockExclusivity(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "outreach-run", time.Minute)
	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v; want true", ok, err)
	}

	// A second run must fail fast, not block.
	second := NewRedisLock(client, "outreach-run", time.Minute)
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if ok {
		t.Fatal("second Acquire succeeded while first run holds the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v; want true", ok, err)
	}
}

func TestRedisLockReleaseOnlyIfOwned(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "outreach-run", time.Minute)
	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatal("first Acquire failed")
	}

	// A different instance releasing must not free someone else's lock.
	stranger := NewRedisLock(client, "outreach-run", time.Minute)
	if err := stranger.Release(ctx); err != nil {
		t.Fatalf("stranger Release: %v", err)
	}

	other := NewRedisLock(client, "outreach-run", time.Minute)
	if ok, _ := other.Acquire(ctx); ok {
		t.Fatal("lock was freed by a non-owner")
	}
}

func TestRedisLockDistinctKeysIndependent(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	run := NewRedisLock(client, "outreach-run", time.Minute)
	sweep := NewRedisLock(client, "other-ledger-run", time.Minute)

	if ok, _ := run.Acquire(ctx); !ok {
		t.Fatal("run lock Acquire failed")
	}
	if ok, _ := sweep.Acquire(ctx); !ok {
		t.Fatal("distinct key should be acquirable")
	}
}
