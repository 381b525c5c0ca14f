package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/metrics"
	"github.com/technosupport/vms-analytics/internal/ratelimit"
)

type RateLimitConfig struct {
	IP      ratelimit.LimitConfig
	Company ratelimit.LimitConfig
}

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	config  RateLimitConfig
}

func NewRateLimitMiddleware(l *ratelimit.Limiter, c RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: l, config: c}
}

// ByIP limits every request by hashed client address. It runs before auth.
func (m *RateLimitMiddleware) ByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.IP.Disabled() {
			next.ServeHTTP(w, r)
			return
		}
		key := ratelimit.Key(ratelimit.ScopeIP, m.limiter.HashIP(clientIP(r)))
		if !m.allow(w, r, ratelimit.ScopeIP, key, m.config.IP) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ByCompany limits authenticated requests per company.
func (m *RateLimitMiddleware) ByCompany(next http.Handler) http.Handler {
	return m.Scoped(ratelimit.ScopeCompany, m.config.Company)(next)
}

// Scoped limits authenticated requests per company under its own scope, for
// endpoints with a tighter budget than the company-wide one.
func (m *RateLimitMiddleware) Scoped(scope ratelimit.Scope, cfg ratelimit.LimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := GetAuthContext(r.Context())
			if !ok || cfg.Disabled() {
				next.ServeHTTP(w, r)
				return
			}
			key := ratelimit.Key(scope, ac.CompanyID.String())
			if !m.allow(w, r, scope, key, cfg) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow fails open when Redis is unreachable.
func (m *RateLimitMiddleware) allow(w http.ResponseWriter, r *http.Request, scope ratelimit.Scope, key string, cfg ratelimit.LimitConfig) bool {
	decision, err := m.limiter.Check(r.Context(), scope, key, cfg)
	if errors.Is(err, ratelimit.ErrRedisUnavailable) {
		metrics.RecordRateLimitRedisError()
		zerolog.Ctx(r.Context()).Warn().Str("scope", string(scope)).Msg("rate limit store unavailable, allowing request")
		return true
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("scope", string(scope)).Msg("rate limit check failed")
		return true
	}

	writeRateLimitHeaders(w, decision)
	if !decision.Allowed {
		metrics.RecordRateLimit(string(scope), "blocked")
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return false
	}
	metrics.RecordRateLimit(string(scope), "allowed")
	return true
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}
