package scaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"catering-planner/internal/core/ai/provider"
	"catering-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Generator 文字生成服務
type Generator interface {
	ProcessRequest(ctx context.Context, system, prompt string, validate func(content string) error) (*provider.Response, error)
}

// AIPolicy 將縮放交給文字生成服務，並在採用前驗證回傳內容
type AIPolicy struct {
	gen            Generator
	indivisible    []string
	ratioTolerance float64
}

// NewAIPolicy 創建 AI 縮放策略
func NewAIPolicy(gen Generator, indivisible []string, ratioTolerance float64) *AIPolicy {
	if ratioTolerance <= 0 {
		ratioTolerance = 0.08
	}
	return &AIPolicy{gen: gen, indivisible: indivisible, ratioTolerance: ratioTolerance}
}

// Name 策略名稱
func (p *AIPolicy) Name() string { return "ai" }

const systemPrompt = `You are a professional catering chef who scales recipes for events. You only answer with compact JSON.`

// buildPrompt 組合縮放提示與規則
func (p *AIPolicy) buildPrompt(req Request) string {
	ingredients := strings.TrimSpace(req.Recipe.Ingredients)
	if len(req.Recipe.ParsedIngredients) > 0 {
		ingredients = common.FormatParsedIngredients(req.Recipe.ParsedIngredients)
	}

	return fmt.Sprintf(`Scale the following recipe from %s servings to %s servings (scale factor %.4f).
Recipe: %s
Ingredients:
%s
Instructions:
%s

Rules:
1. Multiply every ingredient quantity by the scale factor.
2. Never split indivisible items into fractions; round them to whole units. Indivisible items include: %s.
3. Round every other quantity to a realistic kitchen measurement (nearest 1/8 teaspoon or tablespoon, nearest 1/4 cup, whole grams or milliliters).
4. Each scaled quantity must stay within %.0f%% of the exact scaled amount.
5. Keep the same ingredients in the same order; do not add or remove ingredients.
6. Adjust the instructions only where quantities, pan sizes or batch counts change.
7. Return only JSON in this format: {"ingredients":["quantity unit name", ...],"instructions":"..."}
`,
		formatServings(req.Recipe.Serves),
		formatServings(req.TargetServings),
		req.Factor,
		req.Recipe.Name,
		ingredients,
		strings.TrimSpace(req.Recipe.Instructions),
		strings.Join(p.indivisible, ", "),
		p.ratioTolerance*100,
	)
}

// scaledPayload 生成服務的回應格式；兩個欄位都接受字串或字串陣列
type scaledPayload struct {
	Ingredients  json.RawMessage `json:"ingredients"`
	Instructions json.RawMessage `json:"instructions"`
}

// Scale 呼叫生成服務並驗證回傳的食材與步驟
// 只有驗證通過的回應會被快取；任何失敗都包裝為 common.ErrExternalService
func (p *AIPolicy) Scale(ctx context.Context, req Request) (*Result, error) {
	var res *Result
	resp, err := p.gen.ProcessRequest(ctx, systemPrompt, p.buildPrompt(req), func(content string) error {
		parsed, err := parseScaled(content, req.Recipe.Instructions)
		if err != nil {
			return err
		}
		res = parsed
		return nil
	})
	if err != nil {
		return nil, wrapExternal(err)
	}
	if resp == nil || res == nil {
		return nil, wrapExternal(fmt.Errorf("empty AI response"))
	}

	common.LogDebug("AI 回應內容 (recipe/scale)",
		zap.Int("ai_response_length", len(resp.Content)),
		zap.Bool("cache_hit", resp.CacheHit),
	)
	return res, nil
}

// parseScaled 解析並驗證生成服務的回應；原食譜有步驟時回應也必須有步驟
func parseScaled(content, originalInstructions string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty AI response")
	}

	var payload scaledPayload
	if err := common.ParseAIJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	ingredients, err := decodeLines(payload.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("invalid ingredients field: %w", err)
	}
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("AI response has no ingredients")
	}

	instructionLines, err := decodeLines(payload.Instructions)
	if err != nil {
		return nil, fmt.Errorf("invalid instructions field: %w", err)
	}
	instructions := strings.Join(instructionLines, "\n")
	if instructions == "" && strings.TrimSpace(originalInstructions) != "" {
		return nil, fmt.Errorf("AI response has no instructions")
	}

	return &Result{Ingredients: ingredients, Instructions: instructions}, nil
}

// decodeLines 接受字串（以換行分隔）或字串陣列，去除空行與項目符號
func decodeLines(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var text string
		if err2 := json.Unmarshal(raw, &text); err2 != nil {
			return nil, fmt.Errorf("expected string or list of strings")
		}
		list = strings.Split(text, "\n")
	}

	out := make([]string, 0, len(list))
	for _, l := range list {
		l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "-*•"))
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

func wrapExternal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrExternalService) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrExternalService, err)
}
