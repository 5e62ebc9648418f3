package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tokengate/tokengate/internal/kv"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	store := kv.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return New(store, cfg), mr
}

func TestCheckPassesUnderBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected pass at budget, got %v", err)
	}
}

func TestIncrementPastBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.IncrementLogin(ctx, "alice", "")
	}
	if err := limiter.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected check rejection, got %v", err)
	}
}

func TestCheckIsReadOnly(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	// Checks alone never consume budget.
	for i := 0; i < 10; i++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}
}

func TestIPThrottle(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	// Different identifiers behind one IP share the IP budget.
	for _, identifier := range []string{"alice", "carol", "dave"} {
		if err := limiter.IncrementLogin(ctx, identifier, "203.0.113.9"); err != nil && !errors.Is(err, ErrRateLimited) {
			t.Fatalf("IncrementLogin failed: %v", err)
		}
	}
	if err := limiter.CheckLogin(ctx, "bob", "203.0.113.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget shared, got %v", err)
	}
	if err := limiter.CheckLogin(ctx, "bob", "198.51.100.7"); err != nil {
		t.Fatalf("expected other IP unaffected, got %v", err)
	}
}

func TestIPThrottleDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{EnableIPThrottle: false, MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.IncrementLogin(ctx, "alice", "203.0.113.9")
	}
	if err := limiter.CheckLogin(ctx, "bob", "203.0.113.9"); err != nil {
		t.Fatalf("expected IP ignored when disabled, got %v", err)
	}
}

func TestWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.IncrementLogin(ctx, "alice", "")
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rejection, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
}

func TestResetLogin(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{EnableIPThrottle: true, MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.IncrementLogin(ctx, "alice", "203.0.113.9")
	}
	if err := limiter.ResetLogin(ctx, "alice", "203.0.113.9"); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", "203.0.113.9"); err != nil {
		t.Fatalf("expected cleared counters, got %v", err)
	}
}

func TestStoreDownFailsClosed(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{MaxAttempts: 2, Window: time.Minute})
	mr.Close()
	ctx := context.Background()

	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, kv.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := limiter.IncrementLogin(ctx, "alice", ""); !errors.Is(err, kv.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
