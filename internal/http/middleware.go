package http

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// ClientIP resolves the address of the client behind a request. Forwarding
// headers are only honoured when the connecting peer is a trusted proxy, so a
// direct caller cannot pick its own rate limit bucket.
type ClientIP struct {
	trusted []netip.Prefix
}

// NewClientIP accepts proxies as CIDR prefixes or bare addresses.
func NewClientIP(trustedProxies ...string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, p := range trustedProxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			addr = addr.Unmap()
			c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		c.trusted = append(c.trusted, prefix.Masked())
	}
	return c, nil
}

func (c *ClientIP) isTrusted(addr netip.Addr) bool {
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Resolve returns the client address of r, or "" when it cannot be determined.
// X-Forwarded-For is walked right to left skipping trusted hops; X-Real-IP is
// used when no X-Forwarded-For is present.
func (c *ClientIP) Resolve(r *http.Request) string {
	peer, ok := remoteAddr(r)
	if !ok {
		return ""
	}
	if !c.isTrusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			addr = addr.Unmap()
			if !c.isTrusted(addr) {
				return addr.String()
			}
		}
		return peer.String()
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.Unmap().String()
		}
	}

	return peer.String()
}

// Middleware stores the resolved client address in the request context for
// session records, rate limiting and logging.
func (c *ClientIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientIP(r.Context(), c.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RemoteIP returns the address of the connecting peer, ignoring forwarding headers.
func RemoteIP(r *http.Request) string {
	addr, ok := remoteAddr(r)
	if !ok {
		return ""
	}
	return addr.String()
}

func remoteAddr(r *http.Request) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(r.RemoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

// ClientIPFromContext returns the address stored by ClientIP.Middleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// WithClientIP returns a copy of ctx carrying ip.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey, ip)
}
