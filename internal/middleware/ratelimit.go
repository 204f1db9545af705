package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/auth"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// RateLimiter applies a per-caller token bucket. Authenticated callers are
// keyed by user id so a doctor cannot flood patients with access requests;
// anonymous callers fall back to client IP.
type RateLimiter struct {
	cfg    *config.RateLimitConfig
	logger *logger.Logger

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter and starts its idle-entry janitor
func NewRateLimiter(cfg *config.RateLimitConfig, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:      cfg,
		logger:   log,
		limiters: make(map[string]*limiterEntry),
	}

	go rl.cleanup()

	return rl
}

// Limit returns a gin middleware enforcing the configured rate
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.cfg.Enabled {
			c.Next()
			return
		}

		key := rl.callerKey(c)

		if !rl.limiterFor(key).Allow() {
			rl.logger.Security("rate_limit_exceeded", "", map[string]interface{}{
				"key":  key,
				"path": c.Request.URL.Path,
			})

			appErr := types.NewRateLimitError("Too many requests, please slow down")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    appErr.Code,
					"message": appErr.Message,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) callerKey(c *gin.Context) string {
	if claims := auth.ClaimsFromContext(c); claims != nil {
		return "user:" + claims.UserID
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[key]
	if !ok {
		perSecond := rate.Limit(float64(rl.cfg.RequestsPerMin) / 60.0)
		entry = &limiterEntry{limiter: rate.NewLimiter(perSecond, rl.cfg.BurstSize)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// cleanup evicts entries idle for more than ten minutes so the limiter map
// does not grow unboundedly
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)

		rl.mu.Lock()
		for key, entry := range rl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()
	}
}
