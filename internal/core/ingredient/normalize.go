package ingredient

import (
	"strings"

	"catering-planner/internal/pkg/common"
)

// categoryKeywords 各分類的關鍵字，依宣告順序比對，第一個命中者勝出
var categoryKeywords = []struct {
	category common.Category
	keywords []string
}{
	{common.CategoryProteins, []string{
		"chicken", "beef", "pork", "lamb", "turkey", "duck", "veal", "bacon", "ham", "sausage",
		"fish", "salmon", "tuna", "cod", "tilapia", "shrimp", "prawn", "crab", "lobster", "scallop",
		"egg", "tofu", "tempeh", "seitan", "bean", "lentil", "chickpea", "peanut", "almond", "walnut",
		"pecan", "cashew", "steak",
	}},
	{common.CategoryDairy, []string{
		"milk", "cream", "cheese", "butter", "yogurt", "yoghurt", "parmesan", "mozzarella",
		"cheddar", "ricotta", "feta", "buttermilk", "ghee",
	}},
	{common.CategoryVegetables, []string{
		"onion", "garlic", "carrot", "celery", "pepper", "tomato", "potato", "lettuce", "spinach",
		"kale", "cabbage", "broccoli", "cauliflower", "zucchini", "squash", "cucumber", "mushroom",
		"green pea", "snow pea", "sweet corn", "corn kernel", "shallot", "leek", "asparagus", "beet", "radish", "scallion",
	}},
	{common.CategoryFruits, []string{
		"apple", "banana", "orange", "lemon", "lime", "berry", "berries", "grape", "mango",
		"pineapple", "peach", "pear", "plum", "cherry", "cherries", "melon", "avocado", "raisin",
		"date", "fig", "coconut",
	}},
	{common.CategoryGrains, []string{
		"rice", "pasta", "noodle", "bread", "oat", "quinoa", "barley", "couscous", "tortilla",
		"cracker", "cereal", "bulgur", "farro", "bun",
	}},
	{common.CategoryHerbs, []string{
		"salt", "basil", "oregano", "thyme", "rosemary", "parsley", "cilantro", "dill", "mint",
		"sage", "cumin", "paprika", "cinnamon", "nutmeg", "ginger", "turmeric", "chili", "chilli",
		"bay leaf", "clove", "cardamom", "coriander", "vanilla",
	}},
	{common.CategoryOils, []string{
		"oil", "lard", "shortening", "margarine",
	}},
	{common.CategoryCondiments, []string{
		"sauce", "ketchup", "mustard", "mayo", "mayonnaise", "vinegar", "soy", "honey", "syrup",
		"jam", "relish", "salsa", "dressing", "pesto", "miso",
	}},
	{common.CategoryBaking, []string{
		"flour", "sugar", "baking powder", "baking soda", "yeast", "cornstarch", "cocoa",
		"chocolate", "gelatin", "extract",
	}},
	{common.CategoryBeverages, []string{
		"water", "wine", "beer", "juice", "coffee", "tea", "stock", "broth", "soda", "liquor",
		"rum", "vodka", "brandy",
	}},
}

// Categories 依宣告順序回傳所有分類（含 Other）
func Categories() []common.Category {
	out := make([]common.Category, 0, len(categoryKeywords)+1)
	for _, c := range categoryKeywords {
		out = append(out, c.category)
	}
	return append(out, common.CategoryOther)
}

// NormalizeIngredient 轉小寫、去除空白並做簡易的英文去複數
// 不處理不規則複數
func NormalizeIngredient(name string) string {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	switch {
	case len(n) > 3 && strings.HasSuffix(n, "ies"):
		return n[:len(n)-3] + "y"
	case len(n) > 3 && strings.HasSuffix(n, "es"):
		return n[:len(n)-2]
	case len(n) > 2 && strings.HasSuffix(n, "s") && !strings.HasSuffix(n, "ss"):
		return n[:len(n)-1]
	}
	return n
}

// CategorizeIngredient 以關鍵字子字串比對決定分類，沒有命中則為 Other
func CategorizeIngredient(name string) common.Category {
	n := strings.ToLower(name)
	if strings.TrimSpace(n) == "" {
		return common.CategoryOther
	}
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(n, kw) {
				return c.category
			}
		}
	}
	return common.CategoryOther
}
