package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// RateLimiterConfig holds configuration for submission throttling
type RateLimiterConfig struct {
	// Max submissions per window per key
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator returns the throttling key; an empty key is not throttled
	KeyGenerator func(c *fiber.Ctx) string
	// Now is the clock, defaults to time.Now
	Now func() time.Time
}

// DefaultRateLimiterConfig throttles by client IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:          30,
		Window:       time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		Now:          time.Now,
	}
}

type window struct {
	count      int
	end        time.Time
	lastAccess time.Time
}

// RateLimiter is a fixed-window limiter held in memory. Each API instance
// counts on its own.
type RateLimiter struct {
	config  RateLimiterConfig
	windows map[string]*window
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Max <= 0 {
		config.Max = defaults.Max
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaults.KeyGenerator
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}

	rl := &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		if key == "" {
			return c.Next()
		}

		count, end := rl.hit(key)

		remaining := rl.config.Max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", end.Format(time.RFC3339))

		if count > rl.config.Max {
			retry := int(end.Sub(rl.config.Now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Set("Retry-After", strconv.Itoa(retry))
			return domain.ErrRateLimitExceeded
		}

		return c.Next()
	}
}

// hit counts one request for key and returns the count in the current window.
func (rl *RateLimiter) hit(key string) (int, time.Time) {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.end) {
		w = &window{end: now.Add(rl.config.Window)}
		rl.windows[key] = w
	}
	w.count++
	w.lastAccess = now

	return w.count, w.end
}

// cleanup drops keys idle for two windows
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *RateLimiter) evict() {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.windows {
		if now.Sub(w.lastAccess) > 2*rl.config.Window {
			delete(rl.windows, key)
		}
	}
}
