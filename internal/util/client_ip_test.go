package util

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestClientIPAndRateLimitKey(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10", "fd00::/8"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        []string
		trusted    *TrustedProxies
		wantIP     string
		wantKey    string
	}{
		{
			name:       "untrusted peer ignores forwarded header",
			remoteAddr: "198.51.100.10:1234",
			xff:        []string{"203.0.113.5"},
			wantIP:     "198.51.100.10",
			wantKey:    "198.51.100.10",
		},
		{
			name:       "trusted peer reads forwarded client",
			remoteAddr: "10.0.0.20:1234",
			xff:        []string{"203.0.113.5"},
			trusted:    trusted,
			wantIP:     "203.0.113.5",
			wantKey:    "203.0.113.5",
		},
		{
			name:       "chain picks first untrusted hop from the right",
			remoteAddr: "10.0.0.20:1234",
			xff:        []string{"198.51.100.99, 203.0.113.5", "10.0.0.10"},
			trusted:    trusted,
			wantIP:     "203.0.113.5",
			wantKey:    "203.0.113.5",
		},
		{
			name:       "unparseable forwarded header falls back to peer",
			remoteAddr: "192.168.1.10:80",
			xff:        []string{"unknown"},
			trusted:    trusted,
			wantIP:     "192.168.1.10",
			wantKey:    "192.168.1.10",
		},
		{
			name:       "all hops trusted returns leftmost",
			remoteAddr: "10.0.0.20:1234",
			xff:        []string{"10.0.0.5, 10.0.0.10"},
			trusted:    trusted,
			wantIP:     "10.0.0.5",
			wantKey:    "10.0.0.5",
		},
		{
			name:       "ipv4-mapped peer is unmapped",
			remoteAddr: "[::ffff:198.51.100.7]:443",
			wantIP:     "198.51.100.7",
			wantKey:    "198.51.100.7",
		},
		{
			name:       "ipv6 client keyed by its /64",
			remoteAddr: "[fd00::1]:443",
			xff:        []string{"2001:db8:aa:bb:1:2:3:4"},
			trusted:    trusted,
			wantIP:     "2001:db8:aa:bb:1:2:3:4",
			wantKey:    "2001:db8:aa:bb::/64",
		},
		{
			name:       "unparseable peer is used verbatim",
			remoteAddr: "pipe",
			wantIP:     "pipe",
			wantKey:    "peer:pipe",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "http://example.com/api/auth/login", nil)
			req.RemoteAddr = tc.remoteAddr
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if got := ClientIP(req, tc.trusted); got != tc.wantIP {
				t.Fatalf("client ip = %q, want %q", got, tc.wantIP)
			}
			if got := RateLimitKey(req, tc.trusted); got != tc.wantKey {
				t.Fatalf("rate limit key = %q, want %q", got, tc.wantKey)
			}
		})
	}
}

func TestRateLimitKeySharedWithinIPv6Prefix(t *testing.T) {
	a := httptest.NewRequest("POST", "/api/auth/signup", nil)
	a.RemoteAddr = "[2001:db8:1:2::10]:5000"
	b := httptest.NewRequest("POST", "/api/auth/signup", nil)
	b.RemoteAddr = "[2001:db8:1:2:ffff::99]:5001"
	c := httptest.NewRequest("POST", "/api/auth/signup", nil)
	c.RemoteAddr = "[2001:db8:1:3::10]:5000"

	if RateLimitKey(a, nil) != RateLimitKey(b, nil) {
		t.Fatalf("same /64 should share a key: %q vs %q", RateLimitKey(a, nil), RateLimitKey(b, nil))
	}
	if RateLimitKey(a, nil) == RateLimitKey(c, nil) {
		t.Fatalf("different /64 should not share a key")
	}
}

func TestNewTrustedProxies(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{" 10.1.2.3/8 ", "", "::ffff:192.168.1.1"})
	if err != nil {
		t.Fatalf("expected valid entries, got err: %v", err)
	}
	if !trusted.Contains(netip.MustParseAddr("10.200.0.1")) {
		t.Fatalf("masked prefix should contain 10.200.0.1")
	}
	if !trusted.Contains(netip.MustParseAddr("192.168.1.1")) {
		t.Fatalf("mapped entry should match plain ipv4")
	}
	if empty, err := NewTrustedProxies([]string{" "}); err != nil || empty != nil {
		t.Fatalf("blank entries should trust none, got %v err=%v", empty, err)
	}
	for _, bad := range []string{"bad-cidr", "10.0.0.0/33"} {
		if _, err := NewTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("expected parse error for %q", bad)
		}
	}
}
