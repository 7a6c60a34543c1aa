package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"catering-planner/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// Pinger 可檢查連線的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// AIStatus 文字生成服務狀態
type AIStatus interface {
	Model() string
	BreakerState() string
}

// Dependencies 健康檢查所需的依賴；Cache 與 AI 可為 nil
type Dependencies struct {
	Store  Pinger
	Cache  Pinger
	AI     AIStatus
	Policy string
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]string      `json:"checks"`
	Scaling   map[string]string      `json:"scaling"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// Handler 健康檢查處理器
type Handler struct {
	cfg          *config.Config
	deps         Dependencies
	checkTimeout time.Duration
}

// NewHandler 創建健康檢查處理器
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{cfg: cfg, deps: deps, checkTimeout: 3 * time.Second}
}

// Register 註冊 /health、/ready、/live
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
}

// checks 逐一 ping 依賴，回傳各項結果與是否全部正常
func (h *Handler) checks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	results := map[string]string{}
	ok := true
	ping := func(name string, p Pinger) {
		if p == nil {
			results[name] = "disabled"
			return
		}
		if err := p.Ping(ctx); err != nil {
			results[name] = "error: " + err.Error()
			ok = false
			return
		}
		results[name] = "ok"
	}
	ping("store", h.deps.Store)
	ping("cache", h.deps.Cache)
	return results, ok
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	checks, ok := h.checks(c.Request.Context())

	scaling := map[string]string{"policy": h.deps.Policy}
	if h.deps.AI != nil {
		scaling["model"] = h.deps.AI.Model()
		scaling["breaker"] = h.deps.AI.BreakerState()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, code := "ok", http.StatusOK
	if !ok {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.cfg.App.Version,
		Checks:    checks,
		Scaling:   scaling,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	})
}

// ReadinessCheck 儲存與快取都可連線才算就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks, ok := h.checks(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
