package api

import (
	"context"
	"time"

	"catering-planner/internal/api/handlers/event"
	"catering-planner/internal/api/handlers/health"
	"catering-planner/internal/api/handlers/ingredient"
	"catering-planner/internal/api/handlers/recipe"
	"catering-planner/internal/api/middleware"
	"catering-planner/internal/core/planner"
	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 菜單縮放可能逐一呼叫文字生成服務，請求超時需大於單次縮放超時
const minRequestTimeout = 120 * time.Second

// SetupRouter 設置路由；ctx 結束時停止中間件的背景清理
func SetupRouter(ctx context.Context, cfg *config.Config, svc *planner.Service, deps health.Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.RequestContext())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	timeout := cfg.Scaling.Timeout * 2
	if timeout < minRequestTimeout {
		timeout = minRequestTimeout
	}

	// 健康檢查不受限流影響
	health.NewHandler(cfg, deps).Register(router)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Timeout(timeout))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst)
		go limiter.Run(ctx, 10*time.Minute)
		v1.Use(limiter.Middleware())
	}
	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	go dedup.Run(ctx, 10*time.Minute)
	v1.Use(dedup.Middleware())

	ingredient.NewHandler(svc).Register(v1)
	recipe.NewHandler(svc).Register(v1)
	event.NewHandler(svc).Register(v1)

	common.LogInfo("Router setup completed successfully",
		zap.String("scaling_policy", deps.Policy),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)
	return router
}
