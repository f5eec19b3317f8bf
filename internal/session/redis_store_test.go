package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+mr.Addr(), ttl)
	if err != nil {
		t.Fatalf("connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestSaveAndLookup(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	sess := Session{ID: "anon_1", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Lookup(ctx, "anon_1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != sess.ID || !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("session mismatch: got %+v want %+v", got, sess)
	}
}

func TestLookupMissingSession(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	if _, err := store.Lookup(context.Background(), "anon_nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, Session{ID: "anon_ttl", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Lookup(ctx, "anon_ttl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, Session{ID: "anon_gone", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Revoke(ctx, "anon_gone"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "anon_gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
}

func TestServiceValidateAgainstStore(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	svc := NewService(store, "test-secret", time.Hour)
	ctx := context.Background()

	token, err := svc.IssueAnonymous(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	sess, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	// Revocation kills the token even though the signature still verifies.
	if err := svc.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
}

func TestServiceStatelessWithoutStore(t *testing.T) {
	svc := NewService(nil, "test-secret", time.Hour)
	ctx := context.Background()

	token, err := svc.IssueAnonymous(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	sess, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("stateless validation must carry the subject through")
	}
	if err := svc.SignInAnonymously(ctx); err != nil {
		t.Fatalf("storeless sign-in must succeed: %v", err)
	}
}
