package breaker

import (
	"context"
	"errors"
	"time"

	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrOpen 熔斷器開啟時拒絕請求
var ErrOpen = errors.New("circuit breaker is open")

// Breaker 以 gobreaker 保護文字生成服務的呼叫
// 連續失敗達 MaxFailures 次後開啟，Timeout 後轉為半開
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New 依設定建立熔斷器，未設定的欄位使用預設值
func New(name string, cfg config.BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxSuccesses == 0 {
		cfg.HalfOpenMaxSuccesses = 2
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("熔斷器狀態變更",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// 呼叫端取消不算服務失敗
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute 透過熔斷器執行 fn
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrOpen
	}
	return result, err
}

// State 回傳 closed、open 或 half-open
func (b *Breaker) State() string {
	return b.cb.State().String()
}
