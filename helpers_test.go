package tokengate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.SigningMethod = "hs256"
	cfg.Token.PrivateKey = []byte("test-secret")
	cfg.Token.AccessTTL = time.Hour
	cfg.Token.RefreshTTL = 7 * 24 * time.Hour
	return cfg
}

// stubVerifier accepts a fixed identifier/password pair and resolves it to
// a subject id.
type stubVerifier struct {
	identifier string
	password   string
	subject    string
	err        error

	mu    sync.Mutex
	calls int
}

func (v *stubVerifier) Verify(_ context.Context, identifier, password string) (string, bool, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()

	if v.err != nil {
		return "", false, v.err
	}
	if identifier == v.identifier && password == v.password {
		return v.subject, true, nil
	}
	return "", false, nil
}

func (v *stubVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// recordingNotifier captures lockout notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	events []struct {
		identifier string
		retryAfter time.Duration
	}
}

func (n *recordingNotifier) NotifyLockout(_ context.Context, identifier string, retryAfter time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, struct {
		identifier string
		retryAfter time.Duration
	}{identifier, retryAfter})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func defaultVerifier() *stubVerifier {
	return &stubVerifier{
		identifier: "alice",
		password:   "correct-horse",
		subject:    "user-1",
	}
}

func newTestEngine(t *testing.T, cfg Config, verifier CredentialVerifier) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithVerifier(verifier).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}
