package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL     = 5 * time.Minute
	limiterSweepEvery  = 3 * time.Minute
	rateLimitedMessage = "Too many requests"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Public webhook
// routes are the only callers.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter starts a limiter allowing rps requests per second per IP
// with the given burst. Call Stop to end the idle sweep.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			RecordRateLimited(c.FullPath())
			response.Fail(c, http.StatusTooManyRequests, rateLimitedMessage)
			c.Abort()
			return
		}
		c.Next()
	}
}
