package scaling

import (
	"context"
	"fmt"
	"math"
	"strings"

	"catering-planner/internal/core/ingredient"
	"catering-planner/internal/pkg/common"
)

// Arithmetic 確定性的縮放策略：逐行乘上倍率後四捨五入到廚房常用的分量
// 不可分割的食材取整數，換算後不足一個時保留原數量
type Arithmetic struct {
	indivisible    []string
	ratioTolerance float64
}

// NewArithmetic 創建算術縮放策略
func NewArithmetic(indivisible []string, ratioTolerance float64) *Arithmetic {
	words := make([]string, 0, len(indivisible))
	for _, w := range indivisible {
		if w = ingredient.NormalizeIngredient(w); w != "" {
			words = append(words, w)
		}
	}
	if ratioTolerance <= 0 {
		ratioTolerance = 0.08
	}
	return &Arithmetic{indivisible: words, ratioTolerance: ratioTolerance}
}

// Name 策略名稱
func (a *Arithmetic) Name() string { return "arithmetic" }

// Scale 逐行縮放食材，步驟文字保持不變
func (a *Arithmetic) Scale(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := req.Recipe.ParsedIngredients
	if len(lines) == 0 {
		lines = parseBlob(req.Recipe.Ingredients)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("recipe %q has no ingredient lines to scale", req.Recipe.Name)
	}

	res := &Result{
		Ingredients:  make([]string, 0, len(lines)),
		Instructions: req.Recipe.Instructions,
	}
	for _, line := range lines {
		scaled, note := a.scaleLine(line, req.Factor)
		res.Ingredients = append(res.Ingredients, scaled)
		if note != "" {
			res.Notes = append(res.Notes, note)
		}
	}
	return res, nil
}

func (a *Arithmetic) scaleLine(line common.ParsedIngredientLine, factor float64) (string, string) {
	original := strings.TrimSpace(line.Original)
	if line.Quantity == "" {
		return original, ""
	}
	lo, hi, isRange, ok := parseQuantity(line.Quantity)
	if !ok {
		return original, fmt.Sprintf("%s: quantity %q left unscaled", line.Name, line.Quantity)
	}

	rule := ruleFor(line.Unit)
	if a.isIndivisible(line.NormalizedName) {
		rule = countRule
	}

	// 不可分割的食材換算後不足一個時不縮放
	if rule.whole && lo*factor < 1 {
		return original, fmt.Sprintf("%s: kept at %s (cannot split below one unit)", line.Name, line.Quantity)
	}

	newLo, noteLo := a.round(lo*factor, rule)
	quantity := formatAmount(newLo, rule)
	note := noteLo
	if isRange {
		newHi, noteHi := a.round(hi*factor, rule)
		quantity += "-" + formatAmount(newHi, rule)
		if note == "" {
			note = noteHi
		}
	}

	_, rest := ingredient.SplitQuantity(original)
	scaled := strings.TrimSpace(quantity + " " + rest)
	if note != "" {
		note = fmt.Sprintf("%s: %s", line.Name, note)
	}
	return scaled, note
}

// round 依規則取整，並回報超出比例容許範圍的情況
func (a *Arithmetic) round(exact float64, rule unitRule) (float64, string) {
	rounded := roundTo(exact, rule.step)
	if exact > 0 && math.Abs(rounded-exact)/exact > a.ratioTolerance {
		return rounded, fmt.Sprintf("rounded to %s from exact %.3g", formatAmount(rounded, rule), exact)
	}
	return rounded, ""
}

func (a *Arithmetic) isIndivisible(normalized string) bool {
	for _, w := range a.indivisible {
		if normalized == w || strings.HasSuffix(normalized, " "+w) {
			return true
		}
	}
	return false
}

// parseBlob 解析尚未擷取的食材文字
func parseBlob(text string) []common.ParsedIngredientLine {
	var out []common.ParsedIngredientLine
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" || ingredient.IsSectionHeader(line) {
			continue
		}
		out = append(out, ingredient.ParseIngredientLine(line))
	}
	return out
}
