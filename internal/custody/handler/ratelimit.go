package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-IP limiter middleware. Zero values fall back
// to the defaults below.
type RateLimitConfig struct {
	RPS             int           // steady-state requests per second per IP
	Burst           int           // token-bucket burst size
	CleanupInterval time.Duration // how often idle IP buckets are swept
	StaleAfter      time.Duration // idle time before a bucket is dropped
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns a Gin middleware enforcing per-IP token-bucket rate
// limiting. Rejected requests get the standard envelope with a 429 and a
// Retry-After hint; idle buckets are swept in the background so long-running
// servers do not accumulate one entry per client ever seen.
func RateLimiter(cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if cfg.Burst <= 0 {
		cfg.Burst = 2 * cfg.RPS
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * cfg.CleanupInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)

	go func() {
		for range time.Tick(cfg.CleanupInterval) {
			mu.Lock()
			before := len(limiters)
			for ip, l := range limiters {
				if time.Since(l.lastSeen) > cfg.StaleAfter {
					delete(limiters, ip)
				}
			}
			if dropped := before - len(limiters); dropped > 0 {
				logger.Debug("swept idle rate-limit buckets",
					zap.Int("dropped", dropped),
					zap.Int("remaining", len(limiters)),
				)
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[ip] = l
		}
		l.lastSeen = time.Now()
		mu.Unlock()

		if !l.limiter.Allow() {
			logger.Warn("rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", "1")
			fail(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
