package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"catering-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 記錄近期的寫入請求指紋，拒絕視窗內的重複送出
type Deduplicator struct {
	mu       sync.Mutex
	window   time.Duration
	requests map[string]time.Time
	now      func() time.Time
}

// NewDeduplicator 創建去重器；window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		window:   window,
		requests: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Run 定期清除過期指紋，直到 ctx 結束
func (d *Deduplicator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cleanup()
		}
	}
}

func (d *Deduplicator) cleanup() {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.requests {
		if now.Sub(t) > 10*d.window {
			delete(d.requests, k)
		}
	}
}

// seen 回傳指紋是否在視窗內出現過，並更新最後出現時間
func (d *Deduplicator) seen(fingerprint string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.requests[fingerprint]
	if ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Middleware 只檢查 POST 與 PUT，GET 與 DELETE 本身可重複
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				abortWithError(c, common.ErrRequestTooLarge)
				return
			}
			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		if d.seen(fingerprint) {
			common.LogWarn("重複請求",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", common.RequestIDFromContext(c.Request.Context())),
			)
			abortWithError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
