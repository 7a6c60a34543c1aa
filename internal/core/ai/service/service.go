package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catering-planner/internal/core/ai/breaker"
	"catering-planner/internal/core/ai/cache"
	"catering-planner/internal/core/ai/provider"
	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service 文字生成服務：快取、限速與熔斷包在提供者外層
type Service struct {
	provider provider.Provider
	cache    cache.Cache
	limiter  *rate.Limiter
	breaker  *breaker.Breaker
}

// NewService 創建 AI 服務；c 可為 nil 表示不使用快取
func NewService(cfg *config.Config, p provider.Provider, c cache.Cache) *Service {
	limit := rate.Inf
	if rps := cfg.OpenRouter.RequestsPerSecond; rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Service{
		provider: p,
		cache:    c,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  breaker.New("openrouter", cfg.Breaker),
	}
}

// ProcessRequest 送出系統提示與使用者提示，回傳生成內容
// validate 不為 nil 時，只有通過檢查的內容才會寫入快取；未通過檢查的快取內容視為未命中
// 所有失敗都包裝為 common.ErrExternalService
func (s *Service) ProcessRequest(ctx context.Context, system, prompt string, validate func(content string) error) (*provider.Response, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, common.NewValidationError("prompt is empty")
	}
	if validate == nil {
		validate = func(string) error { return nil }
	}

	key := cache.Key(s.provider.GetModel(), system+"\n"+prompt)
	if s.cache != nil {
		val, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			verr := validate(val)
			if verr == nil {
				return &provider.Response{Content: val, CacheHit: true}, nil
			}
			common.LogWarn("快取內容無法使用，重新請求", zap.Error(verr))
		case !errors.Is(err, common.ErrCacheMiss):
			common.LogWarn("快取讀取失敗", zap.Error(err))
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", common.ErrExternalService, err)
	}

	start := time.Now()
	out, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.provider.Generate(ctx, provider.UserPrompt(system, prompt))
	})
	common.LogAICall(time.Since(start), err, common.RequestIDFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExternalService, err)
	}

	resp := out.(*provider.Response)
	if err := validate(resp.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExternalService, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			common.LogWarn("快取寫入失敗", zap.Error(err))
		}
	}
	return resp, nil
}

// Model 目前使用的模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// BreakerState 熔斷器狀態
func (s *Service) BreakerState() string {
	return s.breaker.State()
}

// Close 關閉提供者
func (s *Service) Close() error {
	return s.provider.Close()
}
