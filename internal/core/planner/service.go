package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catering-planner/internal/core/ingredient"
	"catering-planner/internal/core/recipe"
	"catering-planner/internal/core/scaling"
	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"
	"catering-planner/internal/storage"

	"go.uber.org/zap"
)

// Service 讀寫文件儲存並呼叫核心邏輯
type Service struct {
	store     storage.Store
	catalog   *ingredient.Catalog
	extractor *recipe.Extractor
	scaler    *scaling.Scaler
	cfg       config.ScalingConfig
	now       func() time.Time
}

// NewService 創建規劃服務
func NewService(store storage.Store, scaler *scaling.Scaler, cfg config.ScalingConfig) *Service {
	catalog := ingredient.NewCatalog(store)
	return &Service{
		store:     store,
		catalog:   catalog,
		extractor: recipe.NewExtractor(catalog, store),
		scaler:    scaler,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Ping 檢查儲存連線
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- ingredients ---

// GetIngredient 取得食材
func (s *Service) GetIngredient(ctx context.Context, id string) (*common.Ingredient, error) {
	return s.catalog.Get(ctx, id)
}

// ListIngredients 列出食材目錄
func (s *Service) ListIngredients(ctx context.Context) ([]common.Ingredient, error) {
	return s.catalog.List(ctx)
}

// AddSubstitute 新增替代食材並回傳更新後的食材
func (s *Service) AddSubstitute(ctx context.Context, id, substitute string) (*common.Ingredient, error) {
	if err := s.catalog.AddSubstitute(ctx, id, substitute); err != nil {
		return nil, err
	}
	return s.catalog.Get(ctx, id)
}

// --- recipes ---

// RecipeInput 建立食譜的輸入
type RecipeInput struct {
	Name         string   `json:"name" binding:"required"`
	Ingredients  string   `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Serves       float64  `json:"serves"`
	Tags         []string `json:"tags"`
	Allergens    []string `json:"allergens"`
	Parse        bool     `json:"parse"`
}

// CreateRecipe 建立食譜；Parse 為 true 時立即解析食材
func (s *Service) CreateRecipe(ctx context.Context, in RecipeInput) (*common.Recipe, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.NewValidationError("recipe name is required")
	}
	if in.Serves < 0 {
		return nil, common.NewValidationError("serves must not be negative")
	}

	if _, err := s.store.FindRecipeByName(ctx, name); err == nil {
		return nil, fmt.Errorf("recipe %q already exists: %w", name, common.ErrConflict)
	} else if !errors.Is(err, common.ErrRecordNotFound) {
		return nil, err
	}

	now := s.now()
	r := &common.Recipe{
		ID:                common.NewID(common.PrefixRecipe),
		Name:              name,
		Ingredients:       in.Ingredients,
		Instructions:      in.Instructions,
		ParsedIngredients: []common.ParsedIngredientLine{},
		IngredientIDs:     []string{},
		Serves:            in.Serves,
		Tags:              nonNil(in.Tags),
		Allergens:         in.Allergens,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateRecipe(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	common.LogInfo("食譜已建立", zap.String("recipe_id", r.ID), zap.String("name", r.Name))

	if in.Parse && strings.TrimSpace(in.Ingredients) != "" {
		return s.ParseRecipe(ctx, r.ID)
	}
	return r, nil
}

// GetRecipe 取得食譜
func (s *Service) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	return s.store.GetRecipe(ctx, id)
}

// ListRecipes 列出所有食譜
func (s *Service) ListRecipes(ctx context.Context) ([]common.Recipe, error) {
	return s.store.ListRecipes(ctx)
}

// ParseRecipe 解析食譜食材並保存；重複呼叫結果相同
func (s *Service) ParseRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.extractor.Reparse(ctx, r); err != nil {
		return nil, err
	}
	return s.store.GetRecipe(ctx, id)
}

// ScaleRecipe 手動縮放食譜；save 為 true 時另存為新食譜
func (s *Service) ScaleRecipe(ctx context.Context, id string, target float64, save bool) (*common.ScaledRecipe, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	scaled, err := s.scaler.ScaleRecipe(ctx, *r, target, common.ScalingManual)
	if err != nil {
		return nil, err
	}
	if save && !scaled.ScalingFailed && scaled.ScaleFactor != 1 {
		saved, err := s.SaveScaled(ctx, scaled)
		if err != nil {
			return nil, err
		}
		scaled.ID = saved.ID
	}
	return scaled, nil
}

// SaveScaled 將縮放結果另存為新食譜，並重新解析以更新食材使用次數
func (s *Service) SaveScaled(ctx context.Context, scaled *common.ScaledRecipe) (*common.Recipe, error) {
	if scaled.ScalingFailed {
		return nil, common.NewValidationError("cannot save a recipe whose scaling failed")
	}

	name := fmt.Sprintf("%s (serves %s)", scaled.Name, trimFloat(scaled.ScaledServings))
	if _, err := s.store.FindRecipeByName(ctx, name); err == nil {
		name = fmt.Sprintf("%s %s", name, common.GenerateUUID()[:8])
	}

	now := s.now()
	r := &common.Recipe{
		ID:                common.NewID(common.PrefixRecipe),
		Name:              name,
		Ingredients:       scaled.Ingredients,
		Instructions:      scaled.Instructions,
		ParsedIngredients: []common.ParsedIngredientLine{},
		IngredientIDs:     []string{},
		Serves:            scaled.ScaledServings,
		Tags:              nonNil(scaled.Tags),
		Allergens:         scaled.Allergens,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateRecipe(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to save scaled recipe: %w", err)
	}
	if strings.TrimSpace(r.Ingredients) != "" {
		if _, _, err := s.extractor.Reparse(ctx, r); err != nil {
			return nil, err
		}
	}

	common.LogInfo("縮放食譜已保存",
		zap.String("recipe_id", r.ID),
		zap.String("source_recipe_id", scaled.SourceRecipeID),
	)
	return s.store.GetRecipe(ctx, r.ID)
}

// --- events ---

// EventInput 建立活動的輸入
type EventInput struct {
	Name         string            `json:"name" binding:"required"`
	GuestCount   int               `json:"guest_count"`
	StaffCount   int               `json:"staff_count"`
	DietaryNotes string            `json:"dietary_notes"`
	Menu         []common.MenuItem `json:"menu"`
	Status       string            `json:"status"`
}

// CreateEvent 建立活動
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*common.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.NewValidationError("event name is required")
	}
	if in.GuestCount < 0 || in.StaffCount < 0 {
		return nil, common.NewValidationError("guest and staff counts must not be negative")
	}
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &common.Event{
		ID:           common.NewID(common.PrefixEvent),
		Name:         name,
		GuestCount:   in.GuestCount,
		StaffCount:   in.StaffCount,
		DietaryNotes: in.DietaryNotes,
		Menu:         append([]common.MenuItem{}, in.Menu...),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	common.LogInfo("活動已建立", zap.String("event_id", e.ID), zap.Int("head_count", e.HeadCount()))
	return e, nil
}

// GetEvent 取得活動
func (s *Service) GetEvent(ctx context.Context, id string) (*common.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListAllergies 列出活動的過敏紀錄
func (s *Service) ListAllergies(ctx context.Context, eventID string) ([]common.AllergyRecord, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListAllergies(ctx, eventID)
}

func parseStatus(s string) (common.EventStatus, error) {
	switch common.EventStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", common.EventPlanning:
		return common.EventPlanning, nil
	case common.EventActive:
		return common.EventActive, nil
	case common.EventComplete:
		return common.EventComplete, nil
	}
	return "", common.NewValidationError(fmt.Sprintf("unknown event status %q", s))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
