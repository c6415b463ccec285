package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limits applied to the auth endpoints. Login is the loosest because failed
// attempts also count through RecordFailedLogin; register and password reset
// are cheap abuse vectors (each sends an email) so they are tighter.
const (
	loginMaxAttempts = 5
	loginWindow      = 15 * time.Minute

	registerMaxAttempts = 3
	registerWindow      = time.Hour

	resetMaxAttempts = 3
	resetWindow      = time.Hour
)

// RateLimiter counts requests per key in fixed windows. The window restarts
// on the first request after expiry, not on a schedule.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count int
	start time.Time
}

// NewRateLimiter allows maxAttempts requests per key per window. A janitor
// goroutine evicts idle buckets so the map does not grow unbounded.
func NewRateLimiter(maxAttempts int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		buckets:     make(map[string]*bucket),
	}
	go rl.janitor()
	return rl
}

// Allow counts one request against key and reports whether it fits within
// the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.currentBucket(key)
	if b.count >= rl.maxAttempts {
		return false
	}
	b.count++
	return true
}

// RecordFailure counts an attempt against key without denying anything. Used
// for failed logins, which consume the limit even though the request itself
// went through.
func (rl *RateLimiter) RecordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.currentBucket(key).count++
}

// Reset forgets the key entirely, e.g. after a successful login.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// TimeUntilReset returns how long the key stays limited.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		return 0
	}
	if remaining := rl.window - time.Since(b.start); remaining > 0 {
		return remaining
	}
	return 0
}

// currentBucket returns the live bucket for key, replacing an expired one.
// Callers must hold rl.mu.
func (rl *RateLimiter) currentBucket(key string) *bucket {
	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.start) > rl.window {
		b = &bucket{start: now}
		rl.buckets[key] = b
	}
	return b
}

// janitor drops expired buckets once per window.
func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, b := range rl.buckets {
			if now.Sub(b.start) > rl.window {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware turns a RateLimiter into HTTP middleware keyed by
// client IP.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewRateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, logger: logger}
}

// Limit rejects over-limit requests with 429, a Retry-After header and a
// JSON body.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if m.limiter.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "method", r.Method)

		retryAfter := int(m.limiter.TimeUntilReset(ip).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "rate_limit_exceeded",
			"message": "Too many requests. Please try again later.",
		})
	})
}

// AuthRateLimiter bundles the per-endpoint limiters for the auth surface.
type AuthRateLimiter struct {
	login         *RateLimiter
	register      *RateLimiter
	passwordReset *RateLimiter
	logger        *slog.Logger
}

func NewAuthRateLimiter(logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		login:         NewRateLimiter(loginMaxAttempts, loginWindow, logger),
		register:      NewRateLimiter(registerMaxAttempts, registerWindow, logger),
		passwordReset: NewRateLimiter(resetMaxAttempts, resetWindow, logger),
		logger:        logger,
	}
}

// LimitLogin rate limits login attempts per client IP.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.login, a.logger).Limit(next)
}

// LimitRegister rate limits registrations per client IP.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.register, a.logger).Limit(next)
}

// LimitPasswordReset rate limits password reset requests per client IP.
func (a *AuthRateLimiter) LimitPasswordReset(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.passwordReset, a.logger).Limit(next)
}

// RecordFailedLogin makes a failed login consume login quota for the IP.
func (a *AuthRateLimiter) RecordFailedLogin(ip string) {
	a.login.RecordFailure(ip)
}

// ResetLogin clears the login counter after a successful authentication.
func (a *AuthRateLimiter) ResetLogin(ip string) {
	a.login.Reset(ip)
}

// ClientIP extracts the client IP from the request, honoring proxy headers.
// Exported for handlers that track failed logins per IP.
func ClientIP(r *http.Request) string {
	return getClientIP(r)
}

func getClientIP(r *http.Request) string {
	// Leftmost X-Forwarded-For entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
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
