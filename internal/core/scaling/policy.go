package scaling

import (
	"context"

	"catering-planner/internal/pkg/common"
)

// Request 單一食譜的縮放請求
type Request struct {
	Recipe         common.Recipe
	TargetServings float64
	Factor         float64
}

// Result 縮放策略的輸出；Ingredients 為逐行的食材文字
type Result struct {
	Ingredients  []string
	Instructions string
	Notes        []string
}

// Policy 將食譜份量重新計算的策略
// 輸出需保持不可分割的單位完整、四捨五入到實際可用的廚房量、比例誤差在容許範圍內
type Policy interface {
	Name() string
	Scale(ctx context.Context, req Request) (*Result, error)
}

// PolicyFunc 將函式轉為 Policy
type PolicyFunc func(ctx context.Context, req Request) (*Result, error)

// Name 策略名稱
func (f PolicyFunc) Name() string { return "func" }

// Scale 執行縮放
func (f PolicyFunc) Scale(ctx context.Context, req Request) (*Result, error) { return f(ctx, req) }
