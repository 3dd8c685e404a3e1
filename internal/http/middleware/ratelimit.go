package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/studio-site/pkg/logging"
)

// Default lead submission window.
const (
	DefaultRateLimitMax    = 5
	DefaultRateLimitWindow = time.Minute
)

const rateLimitedMessage = "Too many requests. Please try again shortly."

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Check(ctx context.Context, key string) (Decision, error)
}

// FixedWindowLimiter keeps per-key windows in process memory. State is not
// shared between instances.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// NewFixedWindowLimiter allows max requests per key per window.
func NewFixedWindowLimiter(max int, window time.Duration) *FixedWindowLimiter {
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &FixedWindowLimiter{
		entries: make(map[string]*windowEntry),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Check opens a new window on the first request or once the previous one
// has passed, otherwise counts against the current window.
func (l *FixedWindowLimiter) Check(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		l.entries[key] = &windowEntry{count: 1, resetAt: now.Add(l.window)}
		return Decision{Allowed: true}, nil
	}
	if entry.count < l.max {
		entry.count++
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: entry.resetAt.Sub(now)}, nil
}

// Prune drops windows that have already expired.
func (l *FixedWindowLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, entry := range l.entries {
		if now.After(entry.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes expired windows every interval until ctx is done.
func (l *FixedWindowLimiter) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// RedisWindowLimiter runs the same fixed window against Redis so that every
// instance shares one count per key.
type RedisWindowLimiter struct {
	redis  *redis.Client
	prefix string
	max    int
	window time.Duration
	logger *logging.Logger
}

// NewRedisWindowLimiter creates a Redis-backed limiter.
func NewRedisWindowLimiter(client *redis.Client, prefix string, max int, window time.Duration, logger *logging.Logger) *RedisWindowLimiter {
	if logger == nil {
		logger = logging.Default()
	}
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisWindowLimiter{
		redis:  client,
		prefix: prefix,
		max:    max,
		window: window,
		logger: logger.WithComponent("rate_limiter"),
	}
}

// Check increments the key's counter. Redis failures allow the request.
func (l *RedisWindowLimiter) Check(ctx context.Context, key string) (Decision, error) {
	redisKey := l.prefix + ":" + key

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open - a Redis outage should not block the contact form
		l.logger.Error("rate limit check failed", "error", err, "key", redisKey)
		return Decision{Allowed: true}, nil
	}
	if count == 1 {
		l.redis.PExpire(ctx, redisKey, l.window)
	}
	if count <= int64(l.max) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.redis.PTTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		// Counter lost its expiry; start the window over.
		l.redis.PExpire(ctx, redisKey, l.window)
		ttl = l.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// ClientIP derives the rate limit key from proxy headers. Clients with none
// of them share the "unknown" bucket.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}
	return "unknown"
}

// RateLimit returns an HTTP middleware that rejects requests over the
// limit with 429 and a Retry-After header in whole seconds.
func RateLimit(limiter Limiter, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			decision, err := limiter.Check(r.Context(), ip)
			if err != nil {
				logger.Error("rate limiter error", "error", err, "ip", ip)
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "retry_after", decision.RetryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
				writeJSONError(w, http.StatusTooManyRequests, rateLimitedMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
