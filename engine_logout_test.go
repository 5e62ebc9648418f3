package tokengate

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutInvalidatesSession(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), defaultVerifier())
	ctx := context.Background()

	pair := loginPair(t, engine, false)

	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The refresh token is blacklisted; presenting it is containment, not
	// a quiet rejection.
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenReplayDetected) {
		t.Fatalf("expected ErrTokenReplayDetected, got %v", err)
	}

	// The access token died with the session.
	if _, err := engine.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked access token, got %v", err)
	}
}

func TestLogoutEmptyTokenSucceeds(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), defaultVerifier())

	if err := engine.Logout(context.Background(), ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestLogoutGarbageTokenSucceeds(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), defaultVerifier())

	if err := engine.Logout(context.Background(), "not-a-token"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), defaultVerifier())
	ctx := context.Background()

	pair := loginPair(t, engine, false)

	for i := 0; i < 3; i++ {
		if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("logout %d failed: %v", i, err)
		}
	}
}

func TestLogoutSurvivesStoreOutage(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(), defaultVerifier())

	pair := loginPair(t, engine, false)
	mr.Close()

	// Logout reports success even when teardown writes are lost; the slots
	// carry TTLs and expire on their own.
	if err := engine.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestLogoutSupersededTokenStillBlacklistsIt(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), defaultVerifier())
	ctx := context.Background()

	first := loginPair(t, engine, false)
	second, err := engine.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Logging out with the old value still tears down the current session.
	if err := engine.Logout(ctx, first.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, second.RefreshToken); !errors.Is(err, ErrTokenReplayDetected) {
		t.Fatalf("expected current session torn down, got %v", err)
	}
}
