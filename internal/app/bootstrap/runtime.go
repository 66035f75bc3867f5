package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/leadradar/internal/config"
	httpmiddleware "github.com/wolfman30/leadradar/internal/http/middleware"
	"github.com/wolfman30/leadradar/pkg/logging"
)

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
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLeadRateLimiter returns the limiter for public submissions: shared
// Redis counters when a client is available, a per-process token bucket
// otherwise. A non-positive limit disables rate limiting.
func BuildLeadRateLimiter(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) httpmiddleware.Limiter {
	if cfg == nil || cfg.LeadRateLimitPerMinute <= 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient != nil {
		logger.Info("lead rate limit enabled", "backend", "redis", "per_minute", cfg.LeadRateLimitPerMinute)
		return httpmiddleware.NewRedisLimiter(redisClient, cfg.LeadRateLimitPerMinute, time.Minute)
	}
	logger.Info("lead rate limit enabled", "backend", "memory", "per_minute", cfg.LeadRateLimitPerMinute)
	return httpmiddleware.NewMemoryLimiter(cfg.LeadRateLimitPerMinute)
}
