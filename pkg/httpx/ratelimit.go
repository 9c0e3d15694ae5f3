package httpx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kindergrid/kindergrid/pkg/slogx"
)

// RateLimitConfig defines the rate limiting parameters. The limiter is an
// approximate sliding window (token bucket refilled at window rate), which
// is cheaper than a strict log-based window and close enough: no key can
// exceed threshold+burst requests in any window.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window.
	RequestsPerWindow int
	// Window is the time window for rate limiting.
	Window time.Duration
	// Burst allows for temporary bursts above the steady rate.
	Burst int
}

// DefaultRateLimit is the gateway default: 100 requests per minute per key.
var DefaultRateLimit = RateLimitConfig{
	RequestsPerWindow: 100,
	Window:            time.Minute,
	Burst:             100,
}

// Presets for route registration. Strict covers credential-guessing surfaces,
// moderate the normal authenticated operations, lenient the read-mostly and
// health endpoints.
var (
	StrictLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             10,
	}

	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		Burst:             60,
	}

	LenientLimit = RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		Burst:             300,
	}
)

// KeyExtractor derives the bucketing key for a request (IP address, subject
// id, and so on).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request. It honours
// X-Forwarded-For and X-Real-IP for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// BearerSubjectKeyExtractor extracts the subject claim from a bearer token
// without verifying it. Rate limiting runs before verification, so the
// subject is only a bucketing hint here; a forged subject still lands the
// caller in some bucket. Returns empty when no parseable token is present.
func BearerSubjectKeyExtractor(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.Sub
}

// FirstKeyExtractor returns the first non-empty key from the given
// extractors. Used to key on subject id when a token is present and fall
// back to IP otherwise.
func FirstKeyExtractor(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				return key
			}
		}
		return ""
	}
}

// rateLimiter manages per-key limiters.
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)

	rl.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters with full buckets so ephemeral keys don't
// accumulate forever.
func (rl *rateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware enforces config per key. Exceeding callers get a 429
// with a Retry-After hint; requests are never silently dropped.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()

	rl := &rateLimiter{
		rate:        rate.Limit(ratePerSecond),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				// No key means no bucket. Allow but log; this should not
				// happen with the IP fallback in place.
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.getLimiter(key)

			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel() // only measuring, not consuming

				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limited",
					"error_description": "too many requests, retry after the indicated backoff",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by caller IP only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByCaller limits by subject id when a bearer token is present and
// falls back to the caller IP otherwise.
func RateLimitByCaller(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, FirstKeyExtractor(
		BearerSubjectKeyExtractor,
		IPKeyExtractor,
	))
}
