package common

import (
	"fmt"
	"strings"
	"time"
)

// Category 食材分類
type Category string

const (
	CategoryProteins   Category = "Proteins"
	CategoryDairy      Category = "Dairy"
	CategoryVegetables Category = "Vegetables"
	CategoryFruits     Category = "Fruits"
	CategoryGrains     Category = "Grains"
	CategoryHerbs      Category = "Herbs & Spices"
	CategoryOils       Category = "Oils & Fats"
	CategoryCondiments Category = "Condiments"
	CategoryBaking     Category = "Baking"
	CategoryBeverages  Category = "Beverages"
	CategoryOther      Category = "Other"
)

// Ingredient 食材目錄中的標準食材
type Ingredient struct {
	ID             string              `json:"id" bson:"_id"`
	Name           string              `json:"name" bson:"name"`
	NormalizedName string              `json:"normalized_name" bson:"normalized_name"`
	Category       Category            `json:"category" bson:"category"`
	UsageCount     int                 `json:"usage_count" bson:"usage_count"`
	CommonUnits    []string            `json:"common_units" bson:"common_units"`
	Substitutes    []string            `json:"substitutes" bson:"substitutes"`
	Allergens      map[string][]string `json:"allergens" bson:"allergens"` // 人名 -> 過敏原
	CreatedAt      time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" bson:"updated_at"`
}

// ParsedIngredientLine 單行食材解析結果
type ParsedIngredientLine struct {
	Original       string `json:"original" bson:"original"`
	Quantity       string `json:"quantity" bson:"quantity"`
	Unit           string `json:"unit" bson:"unit"`
	Name           string `json:"name" bson:"name"`
	NormalizedName string `json:"normalized_name" bson:"normalized_name"`
	IngredientID   string `json:"ingredient_id,omitempty" bson:"ingredient_id,omitempty"`
}

// Degraded 回報解析是否完全沒有擷取到數量與單位
func (p ParsedIngredientLine) Degraded() bool {
	return p.Quantity == "" && p.Unit == "" && p.Name == strings.TrimSpace(p.Original)
}

// Recipe 食譜
type Recipe struct {
	ID                string                 `json:"id" bson:"_id"`
	Name              string                 `json:"name" bson:"name"`
	Ingredients       string                 `json:"ingredients" bson:"ingredients"`
	Instructions      string                 `json:"instructions" bson:"instructions"`
	ParsedIngredients []ParsedIngredientLine `json:"parsed_ingredients" bson:"parsed_ingredients"`
	IngredientIDs     []string               `json:"ingredient_ids" bson:"ingredient_ids"`
	Serves            float64                `json:"serves" bson:"serves"`
	Tags              []string               `json:"tags" bson:"tags"`
	IngredientsParsed bool                   `json:"ingredients_parsed" bson:"ingredients_parsed"`
	Allergens         []string               `json:"allergens,omitempty" bson:"allergens,omitempty"`
	CreatedAt         time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at" bson:"updated_at"`
}

// HasServings 份量是否可用於縮放
func (r Recipe) HasServings() bool {
	// NaN 與非正數都視為缺少份量
	return r.Serves > 0
}

// EventStatus 活動狀態
type EventStatus string

const (
	EventPlanning EventStatus = "planning"
	EventActive   EventStatus = "active"
	EventComplete EventStatus = "complete"
)

// MenuItem 活動菜單項目
type MenuItem struct {
	RecipeID string `json:"recipe_id" bson:"recipe_id"`
	Name     string `json:"name,omitempty" bson:"name,omitempty"`
	Notes    string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Event 外燴活動
type Event struct {
	ID           string      `json:"id" bson:"_id"`
	Name         string      `json:"name" bson:"name"`
	GuestCount   int         `json:"guest_count" bson:"guest_count"`
	StaffCount   int         `json:"staff_count" bson:"staff_count"`
	DietaryNotes string      `json:"dietary_notes,omitempty" bson:"dietary_notes,omitempty"`
	Menu         []MenuItem  `json:"menu" bson:"menu"`
	Status       EventStatus `json:"status" bson:"status"`
	CreatedAt    time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" bson:"updated_at"`
}

// HeadCount 賓客加上工作人員
func (e Event) HeadCount() int {
	return e.GuestCount + e.StaffCount
}

// MenuRecipeIDs 菜單引用的食譜 ID（保留順序、去除重複）
func (e Event) MenuRecipeIDs() []string {
	seen := make(map[string]struct{}, len(e.Menu))
	ids := make([]string, 0, len(e.Menu))
	for _, item := range e.Menu {
		if item.RecipeID == "" {
			continue
		}
		if _, ok := seen[item.RecipeID]; ok {
			continue
		}
		seen[item.RecipeID] = struct{}{}
		ids = append(ids, item.RecipeID)
	}
	return ids
}

// Severity 過敏嚴重程度
type Severity string

const (
	SeverityMild            Severity = "Mild"
	SeverityModerate        Severity = "Moderate"
	SeveritySevere          Severity = "Severe"
	SeverityLifeThreatening Severity = "Life-threatening"
)

// ParseSeverity 將字串轉為嚴重程度，大小寫不敏感
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mild":
		return SeverityMild, nil
	case "moderate":
		return SeverityModerate, nil
	case "severe":
		return SeveritySevere, nil
	case "life-threatening", "life threatening":
		return SeverityLifeThreatening, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown severity %q", s))
}

// AllergyRecord 活動中某人的飲食限制
type AllergyRecord struct {
	ID            string    `json:"id" bson:"_id"`
	EventID       string    `json:"event_id" bson:"event_id"`
	PersonName    string    `json:"person_name" bson:"person_name"`
	Allergies     []string  `json:"allergies" bson:"allergies"`
	Severity      Severity  `json:"severity" bson:"severity"`
	Notes         string    `json:"notes,omitempty" bson:"notes,omitempty"`
	IngredientIDs []string  `json:"ingredient_ids" bson:"ingredient_ids"`
	Tags          []string  `json:"tags" bson:"tags"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// ScalingMethod 縮放來源
type ScalingMethod string

const (
	ScalingManual    ScalingMethod = "manual"
	ScalingEventMenu ScalingMethod = "event_menu"
)

// ScaledRecipe 縮放後的食譜（衍生資料，不一定保存）
type ScaledRecipe struct {
	Recipe           `bson:",inline"`
	SourceRecipeID   string        `json:"source_recipe_id" bson:"source_recipe_id"`
	OriginalServings float64       `json:"original_servings" bson:"original_servings"`
	ScaledServings   float64       `json:"scaled_servings" bson:"scaled_servings"`
	ScaleFactor      float64       `json:"scale_factor" bson:"scale_factor"`
	ScalingMethod    ScalingMethod `json:"scaling_method" bson:"scaling_method"`
	ScalingNotes     string        `json:"scaling_notes" bson:"scaling_notes"`
	ScalingWarning   string        `json:"scaling_warning,omitempty" bson:"scaling_warning,omitempty"`
	ScalingFailed    bool          `json:"scaling_failed,omitempty" bson:"scaling_failed,omitempty"`
	ScalingError     string        `json:"scaling_error,omitempty" bson:"scaling_error,omitempty"`
}

// FormatParsedIngredients 格式化已解析的食材列表（用於 prompt）
func FormatParsedIngredients(lines []ParsedIngredientLine) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString("- ")
		if l.Quantity != "" {
			sb.WriteString(l.Quantity)
			sb.WriteString(" ")
		}
		if l.Unit != "" {
			sb.WriteString(l.Unit)
			sb.WriteString(" ")
		}
		sb.WriteString(l.Name)
		sb.WriteString("\n")
	}
	return sb.String()
}
