package scaling

import (
	"context"
	"fmt"
	"math"
	"strings"

	"catering-planner/internal/core/allergy"
	"catering-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// ConflictChecker 回報與食譜衝突的人
type ConflictChecker interface {
	CheckRecipe(recipe common.Recipe, allergies []common.AllergyRecord) allergy.Report
}

// EntryStatus 菜單中單道食譜的處理結果
type EntryStatus string

const (
	EntryScaled    EntryStatus = "scaled"
	EntryUnchanged EntryStatus = "unchanged" // 份量已在容許範圍內
	EntryFailed    EntryStatus = "failed"    // 策略失敗，回傳原食譜
	EntryExcluded  EntryStatus = "excluded"  // 所有人都因過敏被排除
)

// MenuEntry 單道食譜的縮放結果；未縮放時 Scaled 為 nil，Recipe 為原食譜
type MenuEntry struct {
	RecipeID       string               `json:"recipe_id"`
	Status         EntryStatus          `json:"status"`
	HeadCount      int                  `json:"head_count"`
	Excluded       int                  `json:"excluded"`
	TargetServings int                  `json:"target_servings"`
	Warning        string               `json:"warning,omitempty"`
	Error          string               `json:"error,omitempty"`
	Recipe         *common.Recipe       `json:"recipe,omitempty"`
	Scaled         *common.ScaledRecipe `json:"scaled,omitempty"`
}

// MenuResult 整份菜單的縮放結果
type MenuResult struct {
	EventID   string                `json:"event_id"`
	HeadCount int                   `json:"head_count"`
	Order     []string              `json:"order"`
	Entries   map[string]*MenuEntry `json:"entries"`
	Failed    []string              `json:"failed"`
}

// MenuScaler 依活動人數縮放整份菜單
type MenuScaler struct {
	scaler        *Scaler
	conflicts     ConflictChecker
	overshootPct  int
	skipTolerance float64
}

// NewMenuScaler 創建菜單縮放器
func NewMenuScaler(scaler *Scaler, conflicts ConflictChecker, overshootPct int, skipTolerance float64) *MenuScaler {
	if overshootPct < 0 {
		overshootPct = 0
	}
	if skipTolerance < 0 {
		skipTolerance = 0
	}
	return &MenuScaler{
		scaler:        scaler,
		conflicts:     conflicts,
		overshootPct:  overshootPct,
		skipTolerance: skipTolerance,
	}
}

// OvershootTarget 人數加上 overshoot 百分比後無條件進位
func OvershootTarget(headCount, pct int) int {
	if headCount <= 0 {
		return 0
	}
	return (headCount*(100+pct) + 99) / 100
}

// WithinTolerance 目前份量與目標的相對差是否在容許範圍內
func WithinTolerance(serves float64, target int, tolerance float64) bool {
	if target <= 0 {
		return false
	}
	return math.Abs(serves-float64(target))/float64(target) <= tolerance
}

// ScaleMenu 依活動人數縮放每道食譜
// 任何食譜缺少份量時整個操作中止；單道食譜的策略失敗只會列入 Failed
// ctx 中途結束時，尚未處理的食譜以原食譜列為失敗，已完成的結果照常回傳
func (m *MenuScaler) ScaleMenu(ctx context.Context, event common.Event, recipes []common.Recipe, allergies []common.AllergyRecord) (*MenuResult, error) {
	for _, r := range recipes {
		if !r.HasServings() {
			return nil, &common.MissingServingsError{RecipeID: r.ID, RecipeName: r.Name}
		}
	}

	headCount := event.HeadCount()
	result := &MenuResult{
		EventID:   event.ID,
		HeadCount: headCount,
		Order:     make([]string, 0, len(recipes)),
		Entries:   make(map[string]*MenuEntry, len(recipes)),
		Failed:    []string{},
	}

	for i := range recipes {
		recipe := recipes[i]
		var entry *MenuEntry
		if err := ctx.Err(); err != nil {
			entry = &MenuEntry{
				RecipeID: recipe.ID,
				Status:   EntryFailed,
				Error:    fmt.Sprintf("menu scaling stopped before this recipe: %v", err),
				Recipe:   &recipe,
			}
		} else {
			var err error
			entry, err = m.scaleEntry(ctx, recipe, headCount, allergies)
			if err != nil {
				return nil, err
			}
		}
		if entry.Status == EntryFailed {
			result.Failed = append(result.Failed, recipe.ID)
		}
		if _, dup := result.Entries[recipe.ID]; !dup {
			result.Order = append(result.Order, recipe.ID)
		}
		result.Entries[recipe.ID] = entry
	}

	common.LogInfo("菜單縮放完成",
		zap.String("event_id", event.ID),
		zap.Int("head_count", headCount),
		zap.Int("recipes", len(result.Order)),
		zap.Strings("failed", result.Failed),
	)
	return result, nil
}

func (m *MenuScaler) scaleEntry(ctx context.Context, recipe common.Recipe, headCount int, allergies []common.AllergyRecord) (*MenuEntry, error) {
	report := m.conflicts.CheckRecipe(recipe, allergies)
	excluded := len(report.Conflicts)
	adjusted := headCount - excluded
	if adjusted < 0 {
		adjusted = 0
	}
	target := OvershootTarget(adjusted, m.overshootPct)

	entry := &MenuEntry{
		RecipeID:       recipe.ID,
		HeadCount:      adjusted,
		Excluded:       excluded,
		TargetServings: target,
	}
	if excluded > 0 {
		entry.Warning = exclusionWarning(report, excluded, headCount)
	}

	if target == 0 {
		entry.Status = EntryExcluded
		entry.Recipe = &recipe
		return entry, nil
	}

	if WithinTolerance(recipe.Serves, target, m.skipTolerance) {
		entry.Status = EntryUnchanged
		entry.Recipe = &recipe
		return entry, nil
	}

	scaled, err := m.scaler.ScaleRecipe(ctx, recipe, float64(target), common.ScalingEventMenu)
	if err != nil {
		return nil, err
	}
	scaled.ScalingWarning = entry.Warning
	entry.Scaled = scaled
	entry.Status = EntryScaled
	if scaled.ScalingFailed {
		entry.Status = EntryFailed
		entry.Error = scaled.ScalingError
	}
	return entry, nil
}

// exclusionWarning 說明被排除的人數與原因
func exclusionWarning(report allergy.Report, excluded, headCount int) string {
	reasons := make([]string, 0, excluded)
	for _, name := range report.People() {
		c := report.Conflicts[name]
		reasons = append(reasons, fmt.Sprintf("%s (%s)", name, strings.Join(conflictTriggers(c), ", ")))
	}
	return fmt.Sprintf("%d of %d people excluded from this recipe's head-count due to allergy conflicts: %s",
		excluded, headCount, strings.Join(reasons, "; "))
}

func conflictTriggers(c *allergy.Conflict) []string {
	if len(c.Allergies) > 0 {
		return c.Allergies
	}
	out := append([]string{}, c.Ingredients...)
	return append(out, c.Tags...)
}
