package ingredient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"catering-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 食材目錄所需的文件存取
type Store interface {
	GetIngredient(ctx context.Context, id string) (*common.Ingredient, error)
	FindIngredientByNormalizedName(ctx context.Context, normalized string) (*common.Ingredient, error)
	CreateIngredient(ctx context.Context, ing *common.Ingredient) error
	UpdateIngredient(ctx context.Context, ing *common.Ingredient) error
	IncrementIngredientUsage(ctx context.Context, ids []string) error
	ListIngredients(ctx context.Context) ([]common.Ingredient, error)
}

// Catalog 以 normalized name 去重的食材目錄
type Catalog struct {
	store Store
	now   func() time.Time
}

// NewCatalog 創建食材目錄
func NewCatalog(store Store) *Catalog {
	return &Catalog{
		store: store,
		now:   time.Now,
	}
}

// GetOrCreate 以 normalized name 查找食材，不存在時建立
// 這裡不增加使用次數，使用次數只在食譜儲存時更新
func (c *Catalog) GetOrCreate(ctx context.Context, name, normalized string) (string, error) {
	name = strings.TrimSpace(name)
	if normalized == "" {
		normalized = NormalizeIngredient(name)
	}
	if normalized == "" {
		return "", common.NewValidationError("ingredient name is empty")
	}

	existing, err := c.store.FindIngredientByNormalizedName(ctx, normalized)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, common.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up ingredient %q: %w", normalized, err)
	}

	now := c.now()
	ing := &common.Ingredient{
		ID:             common.NewID(common.PrefixIngredient),
		Name:           name,
		NormalizedName: normalized,
		Category:       CategorizeIngredient(name + " " + normalized),
		UsageCount:     0,
		CommonUnits:    []string{},
		Substitutes:    []string{},
		Allergens:      map[string][]string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.store.CreateIngredient(ctx, ing); err != nil {
		// 並行請求已先建立同名食材
		if errors.Is(err, common.ErrConflict) {
			if existing, ferr := c.store.FindIngredientByNormalizedName(ctx, normalized); ferr == nil {
				return existing.ID, nil
			}
		}
		return "", fmt.Errorf("failed to create ingredient %q: %w", normalized, err)
	}

	common.LogDebug("新增食材",
		zap.String("ingredient_id", ing.ID),
		zap.String("normalized_name", normalized),
		zap.String("category", string(ing.Category)),
	)
	return ing.ID, nil
}

// Get 取得食材
func (c *Catalog) Get(ctx context.Context, id string) (*common.Ingredient, error) {
	return c.store.GetIngredient(ctx, id)
}

// List 列出所有食材
func (c *Catalog) List(ctx context.Context) ([]common.Ingredient, error) {
	return c.store.ListIngredients(ctx)
}

// RecordUsage 每個不重複的食材 ID 使用次數加一
func (c *Catalog) RecordUsage(ctx context.Context, ids []string) error {
	unique := UniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}
	if err := c.store.IncrementIngredientUsage(ctx, unique); err != nil {
		return fmt.Errorf("failed to increment ingredient usage: %w", err)
	}
	return nil
}

// NoteUnit 記錄食材常用單位
func (c *Catalog) NoteUnit(ctx context.Context, id, unit string) error {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		return nil
	}
	return c.mutate(ctx, id, func(ing *common.Ingredient) bool {
		if containsFold(ing.CommonUnits, unit) {
			return false
		}
		ing.CommonUnits = append(ing.CommonUnits, unit)
		return true
	})
}

// AddSubstitute 新增替代食材名稱
func (c *Catalog) AddSubstitute(ctx context.Context, id, substitute string) error {
	substitute = strings.TrimSpace(substitute)
	if substitute == "" {
		return common.NewValidationError("substitute name is empty")
	}
	return c.mutate(ctx, id, func(ing *common.Ingredient) bool {
		if containsFold(ing.Substitutes, substitute) {
			return false
		}
		ing.Substitutes = append(ing.Substitutes, substitute)
		return true
	})
}

// SyncAllergens 依此人目前所有的過敏紀錄重建 ids 中每個食材的標註
// 仍被某筆紀錄引用的食材記錄所有紀錄過敏原的聯集，不再被引用的食材移除此人的標註
// 不存在的食材 ID 視為過期引用並回傳
func (c *Catalog) SyncAllergens(ctx context.Context, ids []string, person string, records []common.AllergyRecord) ([]string, error) {
	stale := []string{}
	for _, id := range UniqueIDs(ids) {
		allergens, flagged := allergensFor(id, person, records)
		err := c.mutate(ctx, id, func(ing *common.Ingredient) bool {
			if !flagged {
				if _, ok := ing.Allergens[person]; !ok {
					return false
				}
				delete(ing.Allergens, person)
				return true
			}
			if ing.Allergens == nil {
				ing.Allergens = map[string][]string{}
			}
			ing.Allergens[person] = allergens
			return true
		})
		if errors.Is(err, common.ErrRecordNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return stale, err
		}
	}
	return stale, nil
}

// allergensFor 此人引用該食材的紀錄之過敏原聯集，保留首次出現的順序
func allergensFor(id, person string, records []common.AllergyRecord) ([]string, bool) {
	out := []string{}
	flagged := false
	for _, rec := range records {
		if rec.PersonName != person || !slices.Contains(rec.IngredientIDs, id) {
			continue
		}
		flagged = true
		for _, a := range rec.Allergies {
			a = strings.TrimSpace(a)
			if a != "" && !containsFold(out, a) {
				out = append(out, a)
			}
		}
	}
	return out, flagged
}

// Existing 回傳仍存在於目錄中的食材 ID 集合
func (c *Catalog) Existing(ctx context.Context, ids []string) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(ids))
	for _, id := range UniqueIDs(ids) {
		_, err := c.store.GetIngredient(ctx, id)
		if errors.Is(err, common.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		known[id] = struct{}{}
	}
	return known, nil
}

// mutate 讀取、修改並寫回食材；fn 回傳 false 代表沒有變更
func (c *Catalog) mutate(ctx context.Context, id string, fn func(ing *common.Ingredient) bool) error {
	ing, err := c.store.GetIngredient(ctx, id)
	if err != nil {
		return err
	}
	if !fn(ing) {
		return nil
	}
	ing.UpdatedAt = c.now()
	if err := c.store.UpdateIngredient(ctx, ing); err != nil {
		return fmt.Errorf("failed to update ingredient %s: %w", id, err)
	}
	return nil
}

// UniqueIDs 去除空字串與重複，保留順序
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
