package redislock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNilClientLocksAlwaysSucceed(t *testing.T) {
	ctx := context.Background()
	for _, locker := range []*Locker{nil, New(nil)} {
		first, err := locker.Obtain(ctx, "batch:dev-1", time.Minute)
		if err != nil {
			t.Fatalf("Obtain: %v", err)
		}
		second, err := locker.Obtain(ctx, "batch:dev-1", time.Minute)
		if err != nil {
			t.Fatalf("second Obtain without redis: %v", err)
		}
		if first.Key() != "batch:dev-1" {
			t.Fatalf("Key = %q", first.Key())
		}
		if err := first.Release(ctx); err != nil {
			t.Fatalf("Release: %v", err)
		}
		_ = second.Release(ctx)
	}
}

func TestUnreachableRedisIsNotContention(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := New(client).Obtain(context.Background(), "batch:dev-1", time.Minute)
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if errors.Is(err, ErrNotAcquired) {
		t.Fatal("a transport failure must not look like a held lock")
	}
}

func TestReleaseNilLock(t *testing.T) {
	var lk *Lock
	if err := lk.Release(context.Background()); err != nil {
		t.Fatalf("Release on nil lock: %v", err)
	}
}
