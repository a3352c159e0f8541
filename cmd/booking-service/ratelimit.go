package main

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agendaly/agendaly/libs/config"
	"github.com/agendaly/agendaly/libs/httpx"
)

// rateLimitMiddleware limits the public endpoints per client IP. With
// REDIS_ADDR set the counter is shared across replicas; otherwise a
// process-local window is used.
func rateLimitMiddleware(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_REQUESTS", 120)
	window := config.Seconds("RATE_LIMIT_WINDOW_SECONDS", time.Minute)

	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		logger.Info("rate limiter using redis", "addr", addr)
		return httpx.NewRedisRateLimiter(rdb, limit, window, "booking:ratelimit").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, window).Middleware()
}
