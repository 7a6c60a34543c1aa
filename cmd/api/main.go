package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catering-planner/internal/api"
	"catering-planner/internal/api/handlers/health"
	"catering-planner/internal/core/ai/cache"
	"catering-planner/internal/core/ai/openrouter"
	"catering-planner/internal/core/ai/service"
	"catering-planner/internal/core/planner"
	"catering-planner/internal/core/scaling"
	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"
	"catering-planner/internal/storage"
	"catering-planner/internal/storage/memory"
	"catering-planner/internal/storage/mongo"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化文件儲存
	store, err := openStore(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			common.LogError("Failed to close store", zap.Error(err))
		}
	}()

	// 初始化快取；停用時為 nil
	respCache, err := cache.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err), zap.String("backend", cfg.Cache.Backend))
	}
	if respCache != nil {
		defer respCache.Close()
	}

	deps := health.Dependencies{}
	if respCache != nil {
		deps.Cache = respCache
	}

	// 選擇縮放策略
	var policy scaling.Policy
	switch {
	case cfg.Scaling.Policy == config.PolicyAI && cfg.OpenRouter.Enabled:
		aiSvc := service.NewService(cfg, openrouter.NewClient(cfg.OpenRouter), respCache)
		defer aiSvc.Close()
		deps.AI = aiSvc
		policy = scaling.NewAIPolicy(aiSvc, cfg.Scaling.Indivisible, cfg.Scaling.RatioTolerance)
	case cfg.Scaling.Policy == config.PolicyAI:
		common.LogWarn("OpenRouter 未啟用，改用 arithmetic 縮放策略")
		fallthrough
	default:
		policy = scaling.NewArithmetic(cfg.Scaling.Indivisible, cfg.Scaling.RatioTolerance)
	}
	deps.Policy = policy.Name()

	scaler := scaling.NewScaler(policy, cfg.Scaling.Timeout)
	svc := planner.NewService(store, scaler, cfg.Scaling)
	deps.Store = svc

	router := api.SetupRouter(ctx, cfg, svc, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("scaling_policy", deps.Policy),
			zap.Int("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogError("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}
	common.LogInfo("Server exited")
}

// openStore 依 storage.backend 建立儲存
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		common.LogWarn("使用記憶體儲存，重新啟動後資料會遺失")
		return memory.NewStore(), nil
	case "mongo":
		s, err := mongo.NewStore(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
