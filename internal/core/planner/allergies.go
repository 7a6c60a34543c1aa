package planner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"catering-planner/internal/core/allergy"
	"catering-planner/internal/core/ingredient"
	"catering-planner/internal/core/scaling"
	"catering-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// AllergyInput 建立或更新過敏紀錄的輸入
type AllergyInput struct {
	PersonName    string   `json:"person_name" binding:"required"`
	Allergies     []string `json:"allergies"`
	Severity      string   `json:"severity"`
	Notes         string   `json:"notes"`
	IngredientIDs []string `json:"ingredient_ids"`
	Tags          []string `json:"tags"`
}

// AllergyResult 保存後的紀錄與被略過的失效食材引用
type AllergyResult struct {
	Record *common.AllergyRecord   `json:"record"`
	Stale  []common.StaleReference `json:"stale_references,omitempty"`
}

func (in AllergyInput) validate() (common.Severity, error) {
	if strings.TrimSpace(in.PersonName) == "" {
		return "", common.NewValidationError("person name is required")
	}
	return common.ParseSeverity(in.Severity)
}

// AddAllergy 為活動新增過敏紀錄，並在引用的食材上標註過敏原
func (s *Service) AddAllergy(ctx context.Context, eventID string, in AllergyInput) (*AllergyResult, error) {
	severity, err := in.validate()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	now := s.now()
	rec := &common.AllergyRecord{
		ID:            common.NewID(common.PrefixAllergy),
		EventID:       eventID,
		PersonName:    strings.TrimSpace(in.PersonName),
		Allergies:     nonNil(in.Allergies),
		Severity:      severity,
		Notes:         in.Notes,
		IngredientIDs: ingredient.UniqueIDs(in.IngredientIDs),
		Tags:          nonNil(in.Tags),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateAllergy(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create allergy record: %w", err)
	}

	missing, err := s.syncAllergens(ctx, rec.PersonName, rec.IngredientIDs)
	if err != nil {
		s.rollbackAllergy(ctx, rec)
		return nil, err
	}
	stale := staleRefs(rec, missing)
	common.LogInfo("過敏紀錄已新增",
		zap.String("event_id", eventID),
		zap.String("allergy_id", rec.ID),
		zap.Int("stale_references", len(stale)),
	)
	return &AllergyResult{Record: rec, Stale: stale}, nil
}

// UpdateAllergy 更新過敏紀錄，並重建新舊兩組食材上的標註
func (s *Service) UpdateAllergy(ctx context.Context, eventID, allergyID string, in AllergyInput) (*AllergyResult, error) {
	severity, err := in.validate()
	if err != nil {
		return nil, err
	}
	rec, err := s.getAllergy(ctx, eventID, allergyID)
	if err != nil {
		return nil, err
	}
	oldPerson, oldIDs := rec.PersonName, rec.IngredientIDs

	rec.PersonName = strings.TrimSpace(in.PersonName)
	rec.Allergies = nonNil(in.Allergies)
	rec.Severity = severity
	rec.Notes = in.Notes
	rec.IngredientIDs = ingredient.UniqueIDs(in.IngredientIDs)
	rec.Tags = nonNil(in.Tags)
	rec.UpdatedAt = s.now()
	if err := s.store.UpdateAllergy(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update allergy record: %w", err)
	}

	var missing []string
	if oldPerson == rec.PersonName {
		missing, err = s.syncAllergens(ctx, rec.PersonName, append(append([]string{}, oldIDs...), rec.IngredientIDs...))
	} else {
		if _, err = s.syncAllergens(ctx, oldPerson, oldIDs); err == nil {
			missing, err = s.syncAllergens(ctx, rec.PersonName, rec.IngredientIDs)
		}
	}
	if err != nil {
		return nil, err
	}
	return &AllergyResult{Record: rec, Stale: staleRefs(rec, missing)}, nil
}

// DeleteAllergy 刪除過敏紀錄，並以此人其餘的紀錄重建食材上的標註
func (s *Service) DeleteAllergy(ctx context.Context, eventID, allergyID string) error {
	rec, err := s.getAllergy(ctx, eventID, allergyID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAllergy(ctx, allergyID); err != nil {
		return err
	}
	if _, err := s.syncAllergens(ctx, rec.PersonName, rec.IngredientIDs); err != nil {
		return err
	}
	common.LogInfo("過敏紀錄已刪除", zap.String("event_id", eventID), zap.String("allergy_id", allergyID))
	return nil
}

// syncAllergens 讀取此人所有活動的過敏紀錄，重建 ids 中食材的標註，回傳不存在的食材 ID
func (s *Service) syncAllergens(ctx context.Context, person string, ids []string) ([]string, error) {
	records, err := s.store.ListAllergiesByPerson(ctx, person)
	if err != nil {
		return nil, fmt.Errorf("failed to load allergy records for %q: %w", person, err)
	}
	missing, err := s.catalog.SyncAllergens(ctx, ids, person, records)
	if err != nil {
		return nil, fmt.Errorf("failed to sync allergen annotations: %w", err)
	}
	return missing, nil
}

// staleRefs 只回報此紀錄自己引用的失效食材
func staleRefs(rec *common.AllergyRecord, missing []string) []common.StaleReference {
	stale := []common.StaleReference{}
	ids := []string{}
	for _, id := range missing {
		if !slices.Contains(rec.IngredientIDs, id) {
			continue
		}
		stale = append(stale, common.StaleReference{Owner: "allergy:" + rec.ID, IngredientID: id})
		ids = append(ids, id)
	}
	if len(stale) > 0 {
		common.LogWarn("過敏紀錄引用了不存在的食材", zap.String("allergy_id", rec.ID), zap.Strings("ingredient_ids", ids))
	}
	return stale
}

// rollbackAllergy 標註失敗時移除剛建立的紀錄並重建標註
func (s *Service) rollbackAllergy(ctx context.Context, rec *common.AllergyRecord) {
	if err := s.store.DeleteAllergy(ctx, rec.ID); err != nil {
		common.LogError("過敏紀錄回復失敗", zap.String("allergy_id", rec.ID), zap.Error(err))
		return
	}
	if _, err := s.syncAllergens(ctx, rec.PersonName, rec.IngredientIDs); err != nil {
		common.LogWarn("過敏標註回復失敗", zap.String("allergy_id", rec.ID), zap.Error(err))
	}
}

func (s *Service) getAllergy(ctx context.Context, eventID, allergyID string) (*common.AllergyRecord, error) {
	rec, err := s.store.GetAllergy(ctx, allergyID)
	if err != nil {
		return nil, err
	}
	if rec.EventID != eventID {
		return nil, common.ErrRecordNotFound
	}
	return rec, nil
}

// --- conflicts ---

// resolver 以目錄中仍存在的食材建立衝突檢查器
func (s *Service) resolver(ctx context.Context, recipes []common.Recipe, allergies []common.AllergyRecord) (*allergy.Resolver, error) {
	var ids []string
	for _, r := range recipes {
		ids = append(ids, r.IngredientIDs...)
	}
	for _, a := range allergies {
		ids = append(ids, a.IngredientIDs...)
	}
	known, err := s.catalog.Existing(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredient catalog: %w", err)
	}
	return allergy.NewResolver(known), nil
}

// RecipeConflicts 檢查單道食譜與活動過敏紀錄的衝突
func (s *Service) RecipeConflicts(ctx context.Context, eventID, recipeID string) (*allergy.Report, error) {
	allergies, err := s.ListAllergies(ctx, eventID)
	if err != nil {
		return nil, err
	}
	r, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver(ctx, []common.Recipe{*r}, allergies)
	if err != nil {
		return nil, err
	}
	report := res.CheckRecipe(*r, allergies)
	return &report, nil
}

// MenuConflicts 檢查活動菜單中每道食譜的衝突
func (s *Service) MenuConflicts(ctx context.Context, eventID string) (map[string]allergy.Report, error) {
	_, recipes, allergies, err := s.loadMenu(ctx, eventID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver(ctx, recipes, allergies)
	if err != nil {
		return nil, err
	}
	return res.CheckMenu(recipes, allergies), nil
}

// SafeRecipesResult 安全食譜與被略過的失效引用
type SafeRecipesResult struct {
	Recipes []common.Recipe         `json:"recipes"`
	Stale   []common.StaleReference `json:"stale_references,omitempty"`
}

// SafeRecipes 列出不含任何活動過敏食材或標籤的食譜
func (s *Service) SafeRecipes(ctx context.Context, eventID string) (*SafeRecipesResult, error) {
	allergies, err := s.ListAllergies(ctx, eventID)
	if err != nil {
		return nil, err
	}
	recipes, err := s.store.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver(ctx, nil, allergies)
	if err != nil {
		return nil, err
	}
	safe, stale := res.SafeRecipes(recipes, allergies)
	return &SafeRecipesResult{Recipes: safe, Stale: stale}, nil
}

// ScaleMenu 依活動人數縮放菜單中的所有食譜
func (s *Service) ScaleMenu(ctx context.Context, eventID string) (*scaling.MenuResult, error) {
	event, recipes, allergies, err := s.loadMenu(ctx, eventID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver(ctx, recipes, allergies)
	if err != nil {
		return nil, err
	}
	menu := scaling.NewMenuScaler(s.scaler, res, s.cfg.OvershootPercent, s.cfg.SkipTolerance)
	return menu.ScaleMenu(ctx, *event, recipes, allergies)
}

// loadMenu 讀取活動、菜單食譜與過敏紀錄
func (s *Service) loadMenu(ctx context.Context, eventID string) (*common.Event, []common.Recipe, []common.AllergyRecord, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, nil, err
	}
	ids := event.MenuRecipeIDs()
	recipes := make([]common.Recipe, 0, len(ids))
	for _, id := range ids {
		r, err := s.store.GetRecipe(ctx, id)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("menu recipe %s: %w", id, err)
		}
		recipes = append(recipes, *r)
	}
	allergies, err := s.store.ListAllergies(ctx, eventID)
	if err != nil {
		return nil, nil, nil, err
	}
	return event, recipes, allergies, nil
}
