package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevokerExpires(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTokenRevoker()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if err := r.Revoke(ctx, "tok-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Revoke(ctx, "tok-2", 0); err != nil {
		t.Fatalf("revoke zero ttl: %v", err)
	}
	if ok, _ := r.IsRevoked(ctx, "tok-1"); !ok {
		t.Fatalf("expected tok-1 revoked")
	}
	if ok, _ := r.IsRevoked(ctx, "tok-2"); ok {
		t.Fatalf("zero ttl must not revoke")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "tok-1"); ok {
		t.Fatalf("expected tok-1 to expire")
	}
	if len(r.tokens) != 0 {
		t.Fatalf("expired entry not pruned: %v", r.tokens)
	}
}

func TestRedisTokenRevokerStoresDigest(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r := NewRedisTokenRevoker(mr.Addr(), "")
	t.Cleanup(func() { _ = r.Close() })

	const token = "eyJhbGciOiJSUzI1NiJ9.payload.sig"
	if err := r.Revoke(ctx, token, time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err := r.IsRevoked(ctx, token)
	if err != nil || !ok {
		t.Fatalf("expected revoked, got %v err=%v", ok, err)
	}
	if ok, _ := r.IsRevoked(ctx, "other"); ok {
		t.Fatalf("unrelated token reported revoked")
	}

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], revocationKeyPrefix) || strings.Contains(keys[0], token) {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := r.IsRevoked(ctx, token); ok {
		t.Fatalf("expected revocation to lapse")
	}
}

func TestRedisTokenRevokerReportsOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisTokenRevoker(mr.Addr(), "")
	t.Cleanup(func() { _ = r.Close() })
	mr.Close()

	if _, err := r.IsRevoked(context.Background(), "tok"); err == nil {
		t.Fatalf("expected error with redis down")
	}
}
