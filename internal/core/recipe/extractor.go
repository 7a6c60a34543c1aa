package recipe

import (
	"context"
	"fmt"
	"strings"

	"catering-planner/internal/core/ingredient"
	"catering-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Catalog 擷取器使用的食材目錄操作
type Catalog interface {
	GetOrCreate(ctx context.Context, name, normalized string) (string, error)
	RecordUsage(ctx context.Context, ids []string) error
	NoteUnit(ctx context.Context, id, unit string) error
}

// Store 寫回食譜解析結果
type Store interface {
	SetParsedIngredients(ctx context.Context, id string, parsed []common.ParsedIngredientLine, ingredientIDs []string) error
}

// Extractor 將整份食材文字解析並對應到食材目錄
type Extractor struct {
	catalog Catalog
	store   Store
}

// NewExtractor 創建食材擷取器
func NewExtractor(catalog Catalog, store Store) *Extractor {
	return &Extractor{
		catalog: catalog,
		store:   store,
	}
}

// ParseRecipeIngredients 逐行解析食材文字並解析出食材 ID
// 空行與段落標題會被略過；重複的食材不合併，輸出順序與輸入相同
func (e *Extractor) ParseRecipeIngredients(ctx context.Context, text string) ([]common.ParsedIngredientLine, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	parsed := make([]common.ParsedIngredientLine, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" || ingredient.IsSectionHeader(line) {
			continue
		}

		p := ingredient.ParseIngredientLine(line)
		id, err := e.catalog.GetOrCreate(ctx, p.Name, p.NormalizedName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve ingredient %q: %w", p.Name, err)
		}
		p.IngredientID = id

		if p.Unit != "" {
			if err := e.catalog.NoteUnit(ctx, id, p.Unit); err != nil {
				common.LogWarn("記錄常用單位失敗",
					zap.String("ingredient_id", id),
					zap.String("unit", p.Unit),
					zap.Error(err),
				)
			}
		}
		parsed = append(parsed, p)
	}

	return parsed, nil
}

// UpdateRecipeWithParsedIngredients 保存解析結果並為每個不重複的食材增加一次使用次數
func (e *Extractor) UpdateRecipeWithParsedIngredients(ctx context.Context, recipeID string, parsed []common.ParsedIngredientLine) ([]string, error) {
	return e.update(ctx, recipeID, parsed, nil)
}

// Reparse 重新解析食譜的食材文字並保存
// 已解析過的食譜只為新出現的食材增加使用次數，重複解析不會重複計數
func (e *Extractor) Reparse(ctx context.Context, r *common.Recipe) ([]common.ParsedIngredientLine, []string, error) {
	parsed, err := e.ParseRecipeIngredients(ctx, r.Ingredients)
	if err != nil {
		return nil, nil, err
	}

	var previous []string
	if r.IngredientsParsed {
		previous = r.IngredientIDs
	}
	ids, err := e.update(ctx, r.ID, parsed, previous)
	if err != nil {
		return nil, nil, err
	}
	return parsed, ids, nil
}

func (e *Extractor) update(ctx context.Context, recipeID string, parsed []common.ParsedIngredientLine, previous []string) ([]string, error) {
	ids := make([]string, 0, len(parsed))
	for _, p := range parsed {
		ids = append(ids, p.IngredientID)
	}
	ids = ingredient.UniqueIDs(ids)

	if err := e.store.SetParsedIngredients(ctx, recipeID, parsed, ids); err != nil {
		return nil, fmt.Errorf("failed to store parsed ingredients for recipe %s: %w", recipeID, err)
	}

	counted := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		counted[id] = struct{}{}
	}
	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := counted[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	if err := e.catalog.RecordUsage(ctx, fresh); err != nil {
		return nil, err
	}

	common.LogInfo("食譜食材已解析",
		zap.String("recipe_id", recipeID),
		zap.Int("lines", len(parsed)),
		zap.Int("unique_ingredients", len(ids)),
		zap.Int("usage_incremented", len(fresh)),
	)
	return ids, nil
}
