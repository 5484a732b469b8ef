// Package middleware holds Fiber middleware shared by the HTTP server
package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/storage/memory/v2"
	"github.com/rs/zerolog/log"
)

// HitRecorder receives the name of a limiter each time it rejects a request
type HitRecorder interface {
	RecordRateLimitHit(limiter string)
}

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	Name       string                 // Name of the rate limiter (for metrics)
	Max        int                    // Maximum number of requests
	Expiration time.Duration          // Time window for the rate limit
	KeyFunc    func(fiber.Ctx) string // Function to generate the key for rate limiting
	Message    string                 // Custom error message
	Recorder   HitRecorder            // Optional metrics sink
}

// NewRateLimiter creates a rate limiter middleware backed by Fiber's
// in-memory storage. Counters are per process.
func NewRateLimiter(config RateLimiterConfig) fiber.Handler {
	storage := memory.New(memory.Config{
		GCInterval: 10 * time.Minute,
	})

	if config.KeyFunc == nil {
		config.KeyFunc = func(c fiber.Ctx) string {
			return c.IP()
		}
	}
	if config.Message == "" {
		config.Message = fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s allowed.",
			config.Max, config.Expiration.String())
	}
	limiterName := config.Name
	if limiterName == "" {
		limiterName = "default"
	}

	return limiter.New(limiter.Config{
		Max:          config.Max,
		Expiration:   config.Expiration,
		KeyGenerator: config.KeyFunc,
		LimitReached: func(c fiber.Ctx) error {
			if config.Recorder != nil {
				config.Recorder.RecordRateLimitHit(limiterName)
			}
			log.Debug().Str("limiter", limiterName).Str("ip", c.IP()).Msg("Rate limit exceeded")

			retryAfter := int(config.Expiration.Seconds())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       config.Message,
				"code":        fiber.StatusTooManyRequests,
				"retry_after": retryAfter,
			})
		},
		Storage: storage,
	})
}

// ListLimiter limits list requests per client IP and table
func ListLimiter(perMinute int, recorder HitRecorder) fiber.Handler {
	return NewRateLimiter(RateLimiterConfig{
		Name:       "list",
		Max:        perMinute,
		Expiration: time.Minute,
		KeyFunc: func(c fiber.Ctx) string {
			return "list:" + c.Params("table") + ":" + c.IP()
		},
		Message:  fmt.Sprintf("Too many list requests. Maximum %d per minute.", perMinute),
		Recorder: recorder,
	})
}
