package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"catering-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// visitor 單一來源 IP 的限流器
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 依來源 IP 分別限流
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
}

// NewRateLimiter 每個 IP 在 window 內允許 requests 次，burst <= 0 時等於 requests
func NewRateLimiter(requests int, window time.Duration, burst int) *RateLimiter {
	if burst <= 0 {
		burst = requests
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		window:   window,
	}
}

// Allow 檢查該 IP 是否還有額度
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.getLimiter(ip).Allow()
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Run 定期移除閒置超過 idle 的 IP，直到 ctx 結束
func (rl *RateLimiter) Run(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if now.Sub(v.lastSeen) > idle {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware 超過額度時回傳 429 與 Retry-After
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := fmt.Sprintf("%d", int(math.Ceil(1/float64(rl.limit))))
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", retryAfter)
			abortWithError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
