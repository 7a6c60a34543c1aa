package scaling

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"catering-planner/internal/core/ingredient"
	"catering-planner/internal/pkg/common"
)

const defaultTimeout = 90 * time.Second

// Scaler 依目標份量縮放單一食譜
type Scaler struct {
	policy  Policy
	timeout time.Duration
}

// NewScaler 創建食譜縮放器；timeout 為每次呼叫策略的上限
func NewScaler(policy Policy, timeout time.Duration) *Scaler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scaler{policy: policy, timeout: timeout}
}

// PolicyName 目前使用的縮放策略
func (s *Scaler) PolicyName() string {
	return s.policy.Name()
}

// ScaleRecipe 將食譜縮放到 target 份
// 食譜缺少份量時回傳 MissingServingsError；策略失敗時回傳原食譜並標記 ScalingFailed
func (s *Scaler) ScaleRecipe(ctx context.Context, recipe common.Recipe, target float64, method common.ScalingMethod) (*common.ScaledRecipe, error) {
	if !recipe.HasServings() {
		return nil, &common.MissingServingsError{RecipeID: recipe.ID, RecipeName: recipe.Name}
	}
	if !(target > 0) || math.IsInf(target, 0) {
		return nil, common.NewValidationError(fmt.Sprintf("target servings must be a positive number, got %v", target))
	}
	if method == "" {
		method = common.ScalingManual
	}

	start := time.Now()
	factor := target / recipe.Serves
	out := &common.ScaledRecipe{
		Recipe:           recipe,
		SourceRecipeID:   recipe.ID,
		OriginalServings: recipe.Serves,
		ScaledServings:   target,
		ScaleFactor:      factor,
		ScalingMethod:    method,
	}

	if math.Abs(factor-1) < 1e-9 {
		out.ScalingNotes = fmt.Sprintf("No change needed: recipe already serves %s (scale factor 1.0)", formatServings(recipe.Serves))
		common.LogScaling(recipe.ID, method, target, time.Since(start), nil)
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.policy.Scale(ctx, Request{Recipe: recipe, TargetServings: target, Factor: factor})
	if err == nil {
		err = validateResult(res)
	}
	common.LogScaling(recipe.ID, method, target, time.Since(start), err)
	if err != nil {
		out.ScaledServings = recipe.Serves
		out.ScaleFactor = 1
		out.ScalingFailed = true
		out.ScalingError = wrapExternal(err).Error()
		out.ScalingNotes = fmt.Sprintf("Scaling from %s to %s servings could not be completed; original recipe returned",
			formatServings(recipe.Serves), formatServings(target))
		return out, nil
	}

	out.Recipe = applyResult(recipe, res, target)
	notes := fmt.Sprintf("Scaled from %s to %s servings (factor %.2f, %s policy)",
		formatServings(recipe.Serves), formatServings(target), factor, s.policy.Name())
	if len(res.Notes) > 0 {
		notes += "; " + strings.Join(res.Notes, "; ")
	}
	out.ScalingNotes = notes
	return out, nil
}

func validateResult(res *Result) error {
	if res == nil {
		return fmt.Errorf("scaling policy returned no result")
	}
	for _, l := range res.Ingredients {
		if strings.TrimSpace(l) != "" {
			return nil
		}
	}
	return fmt.Errorf("scaling policy returned no ingredients")
}

// applyResult 以縮放結果產生新的食譜內容，並將重新解析的每一行對應回原本的食材 ID
func applyResult(recipe common.Recipe, res *Result, target float64) common.Recipe {
	idsByName := make(map[string]string, len(recipe.ParsedIngredients))
	for _, p := range recipe.ParsedIngredients {
		if p.IngredientID != "" {
			idsByName[p.NormalizedName] = p.IngredientID
		}
	}

	scaled := recipe
	scaled.ID = ""
	scaled.Serves = target
	scaled.Ingredients = strings.Join(res.Ingredients, "\n")
	if res.Instructions != "" {
		scaled.Instructions = res.Instructions
	}
	scaled.Tags = append([]string{}, recipe.Tags...)
	scaled.IngredientIDs = append([]string{}, recipe.IngredientIDs...)

	scaled.ParsedIngredients = make([]common.ParsedIngredientLine, 0, len(res.Ingredients))
	for _, line := range res.Ingredients {
		if strings.TrimSpace(line) == "" || ingredient.IsSectionHeader(line) {
			continue
		}
		p := ingredient.ParseIngredientLine(line)
		p.IngredientID = idsByName[p.NormalizedName]
		scaled.ParsedIngredients = append(scaled.ParsedIngredients, p)
	}
	// 原本的食材 ID 全部保留供過敏檢查使用；有 ID 對應不回任何一行時不標記為已解析
	scaled.IngredientsParsed = recipe.IngredientsParsed && coversIDs(scaled.ParsedIngredients, scaled.IngredientIDs)
	return scaled
}

func coversIDs(lines []common.ParsedIngredientLine, ids []string) bool {
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		seen[l.IngredientID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return len(lines) > 0
}

func formatServings(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
