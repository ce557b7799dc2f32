// Package ratelimit provides a per-user sliding-window limiter for the
// completion endpoints. In-memory only; a multi-instance deployment would
// need a shared store behind the same interface.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	authmw "scubaai/pkg/platform/middleware/auth"
	request "scubaai/pkg/platform/middleware/request"
)

// slidingWindow tracks request timestamps. Sliding window avoids the burst at
// fixed-window boundaries.
type slidingWindow struct {
	timestamps []time.Time
}

func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// Limiter caps how many requests each user may make per window.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
	clock   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLimiter builds a limiter allowing limit requests per window per key.
func NewLimiter(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	sw := l.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		l.buckets[key] = sw
	}
	sw.cleanup(now, l.window)

	if len(sw.timestamps) >= l.limit {
		retry := sw.timestamps[0].Add(l.window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return false, 0, retry
	}

	sw.timestamps = append(sw.timestamps, now)
	return true, l.limit - len(sw.timestamps), 0
}

// Middleware enforces the limit keyed by the authenticated user ID. Requests
// without an identity (should not happen behind RequireAuth) pass through.
func Middleware(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := authmw.GetUserID(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, retryAfter := limiter.Allow(userID)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				ctx := r.Context()
				logger.WarnContext(ctx, "rate limit exceeded",
					"user_id", userID,
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"Too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
