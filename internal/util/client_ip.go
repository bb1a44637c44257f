package util

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ipv6RateLimitBits is the prefix one IPv6 subscriber usually controls.
const ipv6RateLimitBits = 64

// TrustedProxies is the set of proxy ranges whose X-Forwarded-For header is
// believed.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies parses CIDR or single-address entries. Empty input
// trusts no proxy and yields nil.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(prefixes) == 0 {
		return nil, nil
	}
	return &TrustedProxies{prefixes: prefixes}, nil
}

// Contains reports whether addr is inside a trusted range.
func (t *TrustedProxies) Contains(addr netip.Addr) bool {
	if t == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller address used in audit logs.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	addr, ok := clientAddr(r, trusted)
	if !ok {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return addr.String()
}

// RateLimitKey identifies a caller for rate limiting: IPv4 clients by
// address, IPv6 clients by their /64.
func RateLimitKey(r *http.Request, trusted *TrustedProxies) string {
	addr, ok := clientAddr(r, trusted)
	if !ok {
		return "peer:" + strings.TrimSpace(r.RemoteAddr)
	}
	if addr.Is6() {
		prefix, err := addr.Prefix(ipv6RateLimitBits)
		if err == nil {
			return prefix.String()
		}
	}
	return addr.String()
}

// clientAddr walks X-Forwarded-For from the right when the direct peer is a
// trusted proxy and returns the first untrusted hop.
func clientAddr(r *http.Request, trusted *TrustedProxies) (netip.Addr, bool) {
	peer, ok := parseRemoteAddr(r.RemoteAddr)
	if !ok {
		return netip.Addr{}, false
	}
	if !trusted.Contains(peer) {
		return peer, true
	}
	hops := parseForwardedFor(r.Header.Values("X-Forwarded-For"))
	if len(hops) == 0 {
		return peer, true
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !trusted.Contains(hops[i]) {
			return hops[i], true
		}
	}
	return hops[0], true
}

func parseForwardedFor(values []string) []netip.Addr {
	var out []netip.Addr
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			addr, err := netip.ParseAddr(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			out = append(out, addr.Unmap())
		}
	}
	return out
}

func parseRemoteAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
