package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/wholesail/wholesail/pkg/logger"
	"github.com/wholesail/wholesail/pkg/ratelimiter"
)

// Limiter is the subset of ratelimiter.RateLimiter used by RateLimit.
type Limiter interface {
	Allow(namespace, key string) bool
	RetryAfter(namespace, key string) int
}

var _ Limiter = (*ratelimiter.RateLimiter)(nil)

// TrustedProxies lists the peers whose forwarding headers are believed.
// A nil or empty set means every request is keyed by its peer address.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts CIDR ranges and bare addresses.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	t := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", e)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			t.nets = append(t.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", e, err)
		}
		t.nets = append(t.nets, n)
	}
	return t, nil
}

func (t *TrustedProxies) trusts(addr string) bool {
	if t == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the address that rate limits are keyed by. Forwarding
// headers only count when the peer is a trusted proxy; X-Forwarded-For is then
// walked from the right, skipping trusted hops.
func (t *TrustedProxies) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !t.trusts(peer) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				return peer
			}
			if !t.trusts(hop) || i == 0 {
				return hop
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	return peer
}

// RateLimit rejects callers over the namespace policy with 429 and a Retry-After header.
func RateLimit(limiter Limiter, namespace string, proxies *TrustedProxies, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.ClientIP(r)
			if !limiter.Allow(namespace, ip) {
				retry := limiter.RetryAfter(namespace, ip)
				if retry < 1 {
					retry = 1
				}
				log.WithFields(map[string]interface{}{
					"namespace": namespace,
					"ip":        ip,
				}).Warn("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeJSONError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
