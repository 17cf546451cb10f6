package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T, ttl, wait time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "ticketflow:lock:", ttl, wait, zap.NewNop()), mr
}

func TestRedisExcludesSecondHolder(t *testing.T) {
	l, mr := newTestRedis(t, time.Minute, 60*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !mr.Exists("ticketflow:lock:ticket-1") {
		t.Fatal("lease key missing after Acquire")
	}
	if ttl := mr.TTL("ticketflow:lock:ticket-1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("lease ttl = %v, want (0, 1m]", ttl)
	}

	if _, err := l.Acquire(ctx, "ticket-1"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second Acquire() error = %v, want ErrNotAcquired", err)
	}
	other, err := l.Acquire(ctx, "ticket-2")
	if err != nil {
		t.Fatalf("Acquire(other key) error = %v", err)
	}
	other()

	release()
	if mr.Exists("ticketflow:lock:ticket-1") {
		t.Fatal("lease key still present after release")
	}
	again, err := l.Acquire(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	again()
}

func TestRedisWaitsForRelease(t *testing.T) {
	l, _ := newTestRedis(t, time.Minute, 2*time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	next, err := l.Acquire(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("waiting Acquire() error = %v", err)
	}
	next()
}

func TestRedisStaleReleaseKeepsNewHolder(t *testing.T) {
	l, mr := newTestRedis(t, time.Second, 60*time.Millisecond)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	mr.FastForward(2 * time.Second)
	if mr.Exists("ticketflow:lock:ticket-1") {
		t.Fatal("lease should have expired")
	}

	current, err := l.Acquire(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}
	holder, err := mr.Get("ticketflow:lock:ticket-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	stale()
	got, err := mr.Get("ticketflow:lock:ticket-1")
	if err != nil || got != holder {
		t.Fatalf("lease after foreign release = %q, %v, want %q", got, err, holder)
	}

	current()
	if mr.Exists("ticketflow:lock:ticket-1") {
		t.Fatal("lease key still present after holder release")
	}
}

func TestRedisHonorsCanceledContext(t *testing.T) {
	l, _ := newTestRedis(t, time.Minute, time.Minute)

	release, err := l.Acquire(context.Background(), "ticket-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "ticket-1")
	if !errors.Is(err, ErrNotAcquired) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire(canceled) error = %v, want ErrNotAcquired and context.Canceled", err)
	}
}

func TestRedisWithoutClient(t *testing.T) {
	l := NewRedis(nil, "ticketflow:lock:", time.Minute, time.Second, zap.NewNop())
	_, err := l.Acquire(context.Background(), "ticket-1")
	if err == nil || errors.Is(err, ErrNotAcquired) {
		t.Fatalf("Acquire() error = %v, want configuration error", err)
	}
}
