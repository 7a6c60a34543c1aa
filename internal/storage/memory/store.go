package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"catering-planner/internal/pkg/common"
	"catering-planner/internal/storage"
)

// Store 以 map 保存所有文件的記憶體儲存，回傳值皆為複本
type Store struct {
	mu          sync.RWMutex
	ingredients map[string]common.Ingredient
	recipes     map[string]common.Recipe
	events      map[string]common.Event
	allergies   map[string]common.AllergyRecord
}

// NewStore 創建記憶體儲存
func NewStore() *Store {
	return &Store{
		ingredients: make(map[string]common.Ingredient),
		recipes:     make(map[string]common.Recipe),
		events:      make(map[string]common.Event),
		allergies:   make(map[string]common.AllergyRecord),
	}
}

// Ping 永遠可用
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close 清空資料
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingredients = make(map[string]common.Ingredient)
	s.recipes = make(map[string]common.Recipe)
	s.events = make(map[string]common.Event)
	s.allergies = make(map[string]common.AllergyRecord)
	return nil
}

// --- ingredients ---

func (s *Store) GetIngredient(ctx context.Context, id string) (*common.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.ingredients[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	out := cloneIngredient(ing)
	return &out, nil
}

func (s *Store) FindIngredientByNormalizedName(ctx context.Context, normalized string) (*common.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ing := range s.ingredients {
		if ing.NormalizedName == normalized {
			out := cloneIngredient(ing)
			return &out, nil
		}
	}
	return nil, common.ErrRecordNotFound
}

func (s *Store) CreateIngredient(ctx context.Context, ing *common.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ingredients[ing.ID]; ok {
		return common.ErrConflict
	}
	for _, existing := range s.ingredients {
		if existing.NormalizedName == ing.NormalizedName {
			return common.ErrConflict
		}
	}
	s.ingredients[ing.ID] = cloneIngredient(*ing)
	return nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ing *common.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ingredients[ing.ID]; !ok {
		return common.ErrRecordNotFound
	}
	s.ingredients[ing.ID] = cloneIngredient(*ing)
	return nil
}

func (s *Store) IncrementIngredientUsage(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		ing, ok := s.ingredients[id]
		if !ok {
			continue
		}
		ing.UsageCount++
		ing.UpdatedAt = now
		s.ingredients[id] = ing
	}
	return nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]common.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		out = append(out, cloneIngredient(ing))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out, nil
}

// --- recipes ---

func (s *Store) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	out := cloneRecipe(r)
	return &out, nil
}

func (s *Store) FindRecipeByName(ctx context.Context, name string) (*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.recipes {
		if strings.EqualFold(r.Name, name) {
			out := cloneRecipe(r)
			return &out, nil
		}
	}
	return nil, common.ErrRecordNotFound
}

func (s *Store) CreateRecipe(ctx context.Context, r *common.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[r.ID]; ok {
		return common.ErrConflict
	}
	s.recipes[r.ID] = cloneRecipe(*r)
	return nil
}

func (s *Store) UpdateRecipe(ctx context.Context, r *common.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[r.ID]; !ok {
		return common.ErrRecordNotFound
	}
	s.recipes[r.ID] = cloneRecipe(*r)
	return nil
}

func (s *Store) SetParsedIngredients(ctx context.Context, id string, parsed []common.ParsedIngredientLine, ingredientIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return common.ErrRecordNotFound
	}
	r.ParsedIngredients = append([]common.ParsedIngredientLine{}, parsed...)
	r.IngredientIDs = append([]string{}, ingredientIDs...)
	r.IngredientsParsed = true
	r.UpdatedAt = time.Now()
	s.recipes[id] = r
	return nil
}

func (s *Store) ListRecipes(ctx context.Context) ([]common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, cloneRecipe(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- events ---

func (s *Store) GetEvent(ctx context.Context, id string) (*common.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	out := e
	out.Menu = append([]common.MenuItem{}, e.Menu...)
	return &out, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *common.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return common.ErrConflict
	}
	stored := *e
	stored.Menu = append([]common.MenuItem{}, e.Menu...)
	s.events[e.ID] = stored
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *common.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return common.ErrRecordNotFound
	}
	stored := *e
	stored.Menu = append([]common.MenuItem{}, e.Menu...)
	s.events[e.ID] = stored
	return nil
}

// --- allergies ---

func (s *Store) ListAllergies(ctx context.Context, eventID string) ([]common.AllergyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []common.AllergyRecord{}
	for _, a := range s.allergies {
		if a.EventID == eventID {
			out = append(out, cloneAllergy(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PersonName != out[j].PersonName {
			return out[i].PersonName < out[j].PersonName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListAllergiesByPerson 跨活動列出同一人的過敏紀錄
func (s *Store) ListAllergiesByPerson(ctx context.Context, personName string) ([]common.AllergyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []common.AllergyRecord{}
	for _, a := range s.allergies {
		if a.PersonName == personName {
			out = append(out, cloneAllergy(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetAllergy(ctx context.Context, id string) (*common.AllergyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allergies[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	out := cloneAllergy(a)
	return &out, nil
}

func (s *Store) CreateAllergy(ctx context.Context, a *common.AllergyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allergies[a.ID]; ok {
		return common.ErrConflict
	}
	s.allergies[a.ID] = cloneAllergy(*a)
	return nil
}

func (s *Store) UpdateAllergy(ctx context.Context, a *common.AllergyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allergies[a.ID]; !ok {
		return common.ErrRecordNotFound
	}
	s.allergies[a.ID] = cloneAllergy(*a)
	return nil
}

func (s *Store) DeleteAllergy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allergies[id]; !ok {
		return common.ErrRecordNotFound
	}
	delete(s.allergies, id)
	return nil
}

func cloneIngredient(in common.Ingredient) common.Ingredient {
	out := in
	out.CommonUnits = append([]string{}, in.CommonUnits...)
	out.Substitutes = append([]string{}, in.Substitutes...)
	out.Allergens = make(map[string][]string, len(in.Allergens))
	for k, v := range in.Allergens {
		out.Allergens[k] = append([]string{}, v...)
	}
	return out
}

func cloneRecipe(in common.Recipe) common.Recipe {
	out := in
	out.ParsedIngredients = append([]common.ParsedIngredientLine{}, in.ParsedIngredients...)
	out.IngredientIDs = append([]string{}, in.IngredientIDs...)
	out.Tags = append([]string{}, in.Tags...)
	if in.Allergens != nil {
		out.Allergens = append([]string{}, in.Allergens...)
	}
	return out
}

func cloneAllergy(in common.AllergyRecord) common.AllergyRecord {
	out := in
	out.Allergies = append([]string{}, in.Allergies...)
	out.IngredientIDs = append([]string{}, in.IngredientIDs...)
	out.Tags = append([]string{}, in.Tags...)
	return out
}

var _ storage.Store = (*Store)(nil)
