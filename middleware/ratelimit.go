package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariebrainware/doctor-appointment/config"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = 15 * time.Minute
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type localClient struct {
	lim  *rate.Limiter
	seen time.Time
}

// localLimiter is the in-process token bucket used when Redis is absent.
type localLimiter struct {
	mu        sync.Mutex
	clients   map[string]*localClient
	r         rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

func newLocalLimiter(cfg RateLimitConfig) *localLimiter {
	return &localLimiter{
		clients:   make(map[string]*localClient),
		r:         rate.Every(cfg.Window / time.Duration(cfg.Limit)),
		burst:     cfg.Limit,
		ttl:       cfg.Window,
		lastSweep: time.Now(),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, c := range l.clients {
			if now.Sub(c.seen) > l.ttl {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &localClient{lim: rate.NewLimiter(l.r, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.Allow()
}

// RateLimiter allows Limit requests per Window for each endpoint and client IP.
// Counters live in Redis when it is configured, in process memory otherwise.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultRateWindow
	}
	local := newLocalLimiter(cfg)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		key := rateLimitKey(endpoint, clientIP)

		var allowed bool
		if rdb := config.GetRedisClient(); rdb != nil {
			var err error
			allowed, err = checkRateLimit(c.Request.Context(), rdb, key, cfg.Limit, cfg.Window)
			if err != nil {
				// a broken Redis must not lock everyone out
				util.LogSecurityEvent(util.SecurityEvent{
					EventType: util.EventSuspiciousActivity,
					IP:        clientIP,
					RequestID: GetRequestID(c),
					Message:   fmt.Sprintf("Rate limit check failed: %v", err),
				})
				allowed = local.allow(key)
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			util.LogRateLimitExceeded(clientIP, endpoint)
			util.CallTooManyRequests(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: fmt.Errorf("rate limit exceeded"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitKey(endpoint, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// checkRateLimit increments the Redis counter for key and reports whether
// it is still within limit.
func checkRateLimit(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	pipe := rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return incrCmd.Val() <= int64(limit), nil
}

// ResetRateLimit clears the Redis counter of one client on one endpoint.
func ResetRateLimit(clientIP, endpoint string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return fmt.Errorf("redis not available")
	}
	return rdb.Del(context.Background(), rateLimitKey(endpoint, clientIP)).Err()
}
