package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tokengate/tokengate/internal/kv"
)

func newTestLimiter(t *testing.T, cfg LockoutConfig) (*LockoutLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	store := kv.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewLockoutLimiter(store, cfg), mr
}

func defaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		Threshold:       5,
		LockoutDuration: 15 * time.Minute,
		CounterWindow:   time.Hour,
	}
}

func TestLockAtThreshold(t *testing.T) {
	limiter, _ := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		locked, err := limiter.RecordFailedLogin(ctx, "alice")
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("failure %d: locked before threshold", i)
		}
	}

	locked, err := limiter.RecordFailedLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("RecordFailedLogin failed: %v", err)
	}
	if !locked {
		t.Fatal("expected lock at fifth failure")
	}

	isLocked, err := limiter.IsUserLocked(ctx, "alice")
	if err != nil || !isLocked {
		t.Fatalf("expected locked, locked=%v err=%v", isLocked, err)
	}
}

func TestFailuresPastThresholdStayLocked(t *testing.T) {
	limiter, _ := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}

	// A sixth failure re-reports the lock and refreshes the record TTL.
	locked, err := limiter.RecordFailedLogin(ctx, "alice")
	if err != nil || !locked {
		t.Fatalf("expected still locked, locked=%v err=%v", locked, err)
	}
}

func TestLockoutTimeRemaining(t *testing.T) {
	limiter, mr := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	remaining, err := limiter.LockoutTimeRemaining(ctx, "alice")
	if err != nil || remaining != 0 {
		t.Fatalf("expected zero for unlocked, got %v err=%v", remaining, err)
	}

	for i := 0; i < 5; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}

	remaining, err = limiter.LockoutTimeRemaining(ctx, "alice")
	if err != nil {
		t.Fatalf("LockoutTimeRemaining failed: %v", err)
	}
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Fatalf("unexpected remaining %v", remaining)
	}

	mr.FastForward(16 * time.Minute)
	remaining, err = limiter.LockoutTimeRemaining(ctx, "alice")
	if err != nil || remaining != 0 {
		t.Fatalf("expected zero after expiry, got %v err=%v", remaining, err)
	}
}

func TestLockoutExpiresOnItsOwn(t *testing.T) {
	limiter, mr := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}

	mr.FastForward(16 * time.Minute)

	locked, err := limiter.IsUserLocked(ctx, "alice")
	if err != nil || locked {
		t.Fatalf("expected unlocked after expiry, locked=%v err=%v", locked, err)
	}
}

func TestCounterWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}

	// The window lapses; old failures stop counting.
	mr.FastForward(61 * time.Minute)

	locked, err := limiter.RecordFailedLogin(ctx, "alice")
	if err != nil || locked {
		t.Fatalf("expected fresh count after window, locked=%v err=%v", locked, err)
	}
}

func TestClearFailedLogins(t *testing.T) {
	limiter, _ := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}
	if err := limiter.ClearFailedLogins(ctx, "alice"); err != nil {
		t.Fatalf("ClearFailedLogins failed: %v", err)
	}

	locked, err := limiter.RecordFailedLogin(ctx, "alice")
	if err != nil || locked {
		t.Fatalf("expected count restarted, locked=%v err=%v", locked, err)
	}
}

func TestUnlockUserAccount(t *testing.T) {
	limiter, _ := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}
	if err := limiter.UnlockUserAccount(ctx, "alice"); err != nil {
		t.Fatalf("UnlockUserAccount failed: %v", err)
	}

	locked, err := limiter.IsUserLocked(ctx, "alice")
	if err != nil || locked {
		t.Fatalf("expected unlocked, locked=%v err=%v", locked, err)
	}

	// The counter went with the lock; one failure does not re-lock.
	lockedNow, err := limiter.RecordFailedLogin(ctx, "alice")
	if err != nil || lockedNow {
		t.Fatalf("expected fresh count after unlock, locked=%v err=%v", lockedNow, err)
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.RecordFailedLogin(ctx, "alice")
	}

	locked, err := limiter.IsUserLocked(ctx, "bob")
	if err != nil || locked {
		t.Fatalf("expected bob unaffected, locked=%v err=%v", locked, err)
	}
}
