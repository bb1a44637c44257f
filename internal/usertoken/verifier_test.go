package usertoken

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestNewVerifierRequiresJWKSURL(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Fatalf("expected missing jwks url to fail")
	}
}

func TestJWKSVerifyAndRefreshOnUnknownKid(t *testing.T) {
	ctx := context.Background()
	key1, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key1: %v", err)
	}
	key2, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key2: %v", err)
	}

	active := "kid-1"
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=600")
		pub := key1.PublicKey
		if active == "kid-2" {
			pub = key2.PublicKey
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{rsaJWK(active, pub)}})
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(Config{
		JWKSURL: jwksServer.URL,
		Issuer:  "https://project.supabase.co/auth/v1",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	clock := time.Now()
	v.now = func() time.Time { return clock }

	signed1 := signToken(t, jwt.SigningMethodRS256, key1, "kid-1", "user-a", "https://project.supabase.co/auth/v1", time.Now())
	if claims, err := v.Verify(ctx, signed1); err != nil || claims.Subject != "user-a" {
		t.Fatalf("verify token1 failed: claims=%+v err=%v", claims, err)
	}

	// Key rotation: the verifier refetches on an unknown kid.
	active = "kid-2"
	clock = clock.Add(minRefreshInterval + time.Second)
	signed2 := signToken(t, jwt.SigningMethodRS256, key2, "kid-2", "user-b", "https://project.supabase.co/auth/v1", time.Now())
	claims, err := v.Verify(ctx, signed2)
	if err != nil || claims.Subject != "user-b" || claims.Email != "user-b@example.com" {
		t.Fatalf("verify token2 failed: claims=%+v err=%v", claims, err)
	}
}

func TestJWKSAcceptsES256(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "EC",
			"kid": "ec-1",
			"crv": "P-256",
			"x":   base64.RawURLEncoding.EncodeToString(key.PublicKey.X.FillBytes(make([]byte, 32))),
			"y":   base64.RawURLEncoding.EncodeToString(key.PublicKey.Y.FillBytes(make([]byte, 32))),
		}}})
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(Config{JWKSURL: jwksServer.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	signed := signToken(t, jwt.SigningMethodES256, key, "ec-1", "user-ec", "any-issuer", time.Now())
	if claims, err := v.Verify(context.Background(), signed); err != nil || claims.Subject != "user-ec" {
		t.Fatalf("verify es256: claims=%+v err=%v", claims, err)
	}
}

func TestJWKSRejectsBadClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{rsaJWK("kid-1", key.PublicKey)}})
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(Config{
		JWKSURL: jwksServer.URL,
		Issuer:  "issuer-a",
		Leeway:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "future issued at", token: signToken(t, jwt.SigningMethodRS256, key, "kid-1", "u", "issuer-a", time.Now().Add(2*time.Minute))},
		{name: "wrong issuer", token: signToken(t, jwt.SigningMethodRS256, key, "kid-1", "u", "issuer-b", time.Now())},
		{name: "empty subject", token: signToken(t, jwt.SigningMethodRS256, key, "kid-1", "", "issuer-a", time.Now())},
		{name: "garbage", token: "not-a-jwt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tc.token); err == nil {
				t.Fatalf("expected verification to fail")
			}
		})
	}
}

func TestUnknownKidRefreshIsThrottled(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate stranger key: %v", err)
	}
	var fetches atomic.Int32
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		w.Header().Set("Cache-Control", "max-age=600")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{rsaJWK("kid-1", key.PublicKey)}})
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(Config{JWKSURL: jwksServer.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	clock := time.Now()
	v.now = func() time.Time { return clock }

	forged := signToken(t, jwt.SigningMethodRS256, stranger, "kid-unknown", "user-x", "issuer", time.Now())
	verifyFails := func() {
		t.Helper()
		if _, err := v.Verify(context.Background(), forged); err == nil {
			t.Fatalf("expected unknown kid to fail")
		}
	}

	for i := 0; i < 5; i++ {
		verifyFails()
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("fetches right after load = %d, want 1", got)
	}

	clock = clock.Add(minRefreshInterval + time.Second)
	for i := 0; i < 5; i++ {
		verifyFails()
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("fetches after one interval = %d, want 2", got)
	}

	clock = clock.Add(minRefreshInterval + time.Second)
	verifyFails()
	if got := fetches.Load(); got != 3 {
		t.Fatalf("fetches after two intervals = %d, want 3", got)
	}

	// Keys stay valid for known kids throughout.
	good := signToken(t, jwt.SigningMethodRS256, key, "kid-1", "user-a", "issuer", time.Now())
	if claims, err := v.Verify(context.Background(), good); err != nil || claims.Subject != "user-a" {
		t.Fatalf("verify known kid: claims=%+v err=%v", claims, err)
	}
	if got := fetches.Load(); got != 3 {
		t.Fatalf("known kid should not refetch, fetches = %d", got)
	}
}

func TestParseCacheMaxAge(t *testing.T) {
	if got := parseCacheMaxAge("public, Max-Age=120"); got != 2*time.Minute {
		t.Fatalf("max-age = %v", got)
	}
	if got := parseCacheMaxAge("no-store"); got != 0 {
		t.Fatalf("expected zero ttl, got %v", got)
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, kid, subject, issuer string, issuedAt time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
		Email: subject + "@example.com",
	}
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func rsaJWK(kid string, key rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}
