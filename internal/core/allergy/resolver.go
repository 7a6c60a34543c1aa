package allergy

import (
	"sort"
	"strings"

	"catering-planner/internal/pkg/common"
)

// Conflict 某人與食譜之間的衝突
type Conflict struct {
	PersonName  string          `json:"person_name"`
	Ingredients []string        `json:"ingredients"`
	Tags        []string        `json:"tags"`
	Allergies   []string        `json:"allergies"`
	Severity    common.Severity `json:"severity"`
}

// Report 衝突檢查結果；Stale 列出被略過的失效食材引用
type Report struct {
	Conflicts map[string]*Conflict    `json:"conflicts"`
	Stale     []common.StaleReference `json:"stale_references,omitempty"`
}

// People 依姓名排序的衝突人員
func (r Report) People() []string {
	names := make([]string, 0, len(r.Conflicts))
	for name := range r.Conflicts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolver 過敏衝突檢查
// known 為目錄中仍存在的食材 ID；nil 表示不檢查失效引用
type Resolver struct {
	known map[string]struct{}
}

// NewResolver 創建衝突檢查器
func NewResolver(known map[string]struct{}) *Resolver {
	return &Resolver{known: known}
}

var severityRank = map[common.Severity]int{
	common.SeverityMild:            1,
	common.SeverityModerate:        2,
	common.SeveritySevere:          3,
	common.SeverityLifeThreatening: 4,
}

// CheckRecipe 以食材 ID 與標籤的交集找出與食譜衝突的人
// 同名的多筆紀錄合併為一人，嚴重程度取最高者
func (r *Resolver) CheckRecipe(recipe common.Recipe, allergies []common.AllergyRecord) Report {
	report := Report{Conflicts: map[string]*Conflict{}}

	recipeIDs := r.idSet(recipe.IngredientIDs, "recipe:"+recipe.ID, &report.Stale)
	recipeTags := tagSet(recipe.Tags)

	for _, rec := range allergies {
		var ingredients, tags []string
		for _, id := range rec.IngredientIDs {
			if !r.exists(id) {
				report.Stale = append(report.Stale, common.StaleReference{Owner: "allergy:" + rec.ID, IngredientID: id})
				continue
			}
			if _, ok := recipeIDs[id]; ok {
				ingredients = append(ingredients, id)
			}
		}
		for _, tag := range rec.Tags {
			t := normalizeTag(tag)
			if _, ok := recipeTags[t]; ok && t != "" {
				tags = append(tags, t)
			}
		}
		if len(ingredients) == 0 && len(tags) == 0 {
			continue
		}

		c, ok := report.Conflicts[rec.PersonName]
		if !ok {
			c = &Conflict{PersonName: rec.PersonName, Ingredients: []string{}, Tags: []string{}, Allergies: []string{}}
			report.Conflicts[rec.PersonName] = c
		}
		c.Ingredients = mergeSorted(c.Ingredients, ingredients)
		c.Tags = mergeSorted(c.Tags, tags)
		c.Allergies = appendUnique(c.Allergies, rec.Allergies)
		if severityRank[rec.Severity] > severityRank[c.Severity] {
			c.Severity = rec.Severity
		}
	}

	return report
}

// CheckMenu 對每道食譜執行衝突檢查，以食譜 ID 為鍵
func (r *Resolver) CheckMenu(recipes []common.Recipe, allergies []common.AllergyRecord) map[string]Report {
	out := make(map[string]Report, len(recipes))
	for _, recipe := range recipes {
		out[recipe.ID] = r.CheckRecipe(recipe, allergies)
	}
	return out
}

// ConflictCount 與食譜衝突的人數
func (r *Resolver) ConflictCount(recipe common.Recipe, allergies []common.AllergyRecord) int {
	return len(r.CheckRecipe(recipe, allergies).Conflicts)
}

// SafeRecipes 回傳與所有過敏紀錄的食材及標籤聯集都不相交的食譜
// 只做全域排除，不逐人比對
func (r *Resolver) SafeRecipes(recipes []common.Recipe, allergies []common.AllergyRecord) ([]common.Recipe, []common.StaleReference) {
	var stale []common.StaleReference
	flaggedIDs := map[string]struct{}{}
	flaggedTags := map[string]struct{}{}
	for _, rec := range allergies {
		for id := range r.idSet(rec.IngredientIDs, "allergy:"+rec.ID, &stale) {
			flaggedIDs[id] = struct{}{}
		}
		for t := range tagSet(rec.Tags) {
			flaggedTags[t] = struct{}{}
		}
	}

	safe := []common.Recipe{}
	for _, recipe := range recipes {
		if intersects(recipe.IngredientIDs, flaggedIDs, nil) || intersects(recipe.Tags, flaggedTags, normalizeTag) {
			continue
		}
		safe = append(safe, recipe)
	}
	return safe, stale
}

func (r *Resolver) exists(id string) bool {
	if id == "" {
		return false
	}
	if r.known == nil {
		return true
	}
	_, ok := r.known[id]
	return ok
}

func (r *Resolver) idSet(ids []string, owner string, stale *[]common.StaleReference) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !r.exists(id) {
			if id != "" {
				*stale = append(*stale, common.StaleReference{Owner: owner, IngredientID: id})
			}
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if t := normalizeTag(tag); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func intersects(values []string, set map[string]struct{}, norm func(string) string) bool {
	for _, v := range values {
		if norm != nil {
			v = norm(v)
		}
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func mergeSorted(a, b []string) []string {
	out := appendUnique(a, b)
	sort.Strings(out)
	return out
}

func appendUnique(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		a = append(a, v)
	}
	return a
}
