package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/studio-site/internal/config"
	httpmiddleware "github.com/wolfman30/studio-site/internal/http/middleware"
	"github.com/wolfman30/studio-site/pkg/logging"
)

const rateLimitPrefix = "ratelimit:lead"

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, falling back to in-process state", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLimiter returns the lead rate limiter. Without Redis the in-memory
// limiter is used and its janitor runs until ctx is done.
func BuildLimiter(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) httpmiddleware.Limiter {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient != nil {
		logger.Info("rate limiter using redis", "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
		return httpmiddleware.NewRedisWindowLimiter(redisClient, rateLimitPrefix, cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	}

	limiter := httpmiddleware.NewFixedWindowLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	interval := cfg.RateLimitWindow
	if interval <= 0 {
		interval = httpmiddleware.DefaultRateLimitWindow
	}
	go limiter.RunJanitor(ctx, interval)
	logger.Info("rate limiter using process memory", "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
	return limiter
}
