package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mypostelma/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type rateLimiter struct {
	limit   int
	window  time.Duration
	entries map[string]*rateEntry
	mu      sync.Mutex
}

const purgeInterval = 5 * time.Minute

// RateLimiter caps requests per IP to limit per window. Expired entries are
// purged in the background until ctx is cancelled.
func RateLimiter(ctx context.Context, limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{limit: limit, window: window, entries: make(map[string]*rateEntry)}
	go rl.purgeLoop(ctx)

	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}
		entry := rl.entry(c.ClientIP())

		entry.mu.Lock()
		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(rl.window)
		}
		entry.count++
		over := entry.count > rl.limit
		retryAt := entry.windowEnd
		entry.mu.Unlock()

		if over {
			c.Header("Retry-After", retryAt.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Trop de requêtes. Réessayez dans un instant."))
			return
		}
		c.Next()
	}
}

func (rl *rateLimiter) entry(ip string) *rateEntry {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[ip]
	if !ok {
		e = &rateEntry{}
		rl.entries[ip] = e
	}
	return e
}

func (rl *rateLimiter) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.purge(time.Now())
		}
	}
}

func (rl *rateLimiter) purge(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	purged := 0
	for ip, e := range rl.entries {
		e.mu.Lock()
		if now.After(e.windowEnd) {
			delete(rl.entries, ip)
			purged++
		}
		e.mu.Unlock()
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(rl.entries)).Msg("rate limiter entries purged")
	}
	return purged
}
