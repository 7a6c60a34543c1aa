package ingredient

import (
	"regexp"
	"sort"
	"strings"

	"catering-planner/internal/pkg/common"
)

// number 整數、小數、分數或帶分數（1 1/2）
const number = `(?:\d+\s+\d+/\d+|\d+/\d+|\d*\.\d+|\d+)`

// quantityPattern 行首的數量，可為範圍（2-3）
var quantityPattern = regexp.MustCompile(`^(` + number + `(?:\s*[-–]\s*` + number + `)?)(?:\s+|$|[^\d\s./-])`)

// unitWords 已知單位（含單複數與縮寫）
var unitWords = []string{
	"cup", "cups",
	"tablespoon", "tablespoons", "tbsp", "tbsps", "tbs", "tbl",
	"teaspoon", "teaspoons", "tsp", "tsps",
	"ounce", "ounces", "oz", "fl oz", "fluid ounce", "fluid ounces",
	"pound", "pounds", "lb", "lbs",
	"gram", "grams", "g",
	"kilogram", "kilograms", "kg",
	"milliliter", "milliliters", "millilitre", "millilitres", "ml",
	"liter", "liters", "litre", "litres",
	"gallon", "gallons", "gal",
	"quart", "quarts", "qt", "qts",
	"pint", "pints", "pt", "pts",
	"piece", "pieces", "pc", "pcs",
	"clove", "cloves",
	"bunch", "bunches",
	"can", "cans",
	"package", "packages", "pkg", "pkgs",
	"box", "boxes",
}

// unitPattern 依長度由長到短排列，確保 "tablespoons" 先於 "tablespoon"
var unitPattern = func() *regexp.Regexp {
	words := append([]string(nil), unitWords...)
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)^(` + strings.Join(quoted, "|") + `)\.?(?:\s+|$)`)
}()

// stopwords 從名稱中移除的描述詞
var stopwords = map[string]struct{}{
	"of":      {},
	"fresh":   {},
	"dried":   {},
	"chopped": {},
	"minced":  {},
	"sliced":  {},
	"diced":   {},
}

// IsSectionHeader 判斷是否為段落標題（以 ':' 結尾或 '#' 開頭）
func IsSectionHeader(line string) bool {
	l := strings.TrimSpace(line)
	return strings.HasSuffix(l, ":") || strings.HasPrefix(l, "#")
}

// ParseIngredientLine 將一行食材文字解析為數量、單位與名稱
// 解析不會失敗；無法辨識時數量與單位為空字串
func ParseIngredientLine(line string) common.ParsedIngredientLine {
	original := strings.TrimSpace(line)
	parsed := common.ParsedIngredientLine{Original: line}

	quantity, rest := SplitQuantity(original)
	parsed.Quantity = quantity

	if m := unitPattern.FindStringSubmatchIndex(rest); m != nil {
		parsed.Unit = strings.ToLower(strings.Join(strings.Fields(rest[m[2]:m[3]]), " "))
		rest = strings.TrimSpace(rest[m[1]:])
	}

	parsed.Name = cleanName(rest)
	if parsed.Name == "" {
		parsed.Name = original
	}
	parsed.NormalizedName = NormalizeIngredient(parsed.Name)
	return parsed
}

// SplitQuantity 拆出行首的數量與其餘文字；沒有數量時 quantity 為空字串
func SplitQuantity(line string) (quantity, rest string) {
	line = strings.TrimSpace(line)
	m := quantityPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return "", line
	}
	return strings.Join(strings.Fields(line[m[2]:m[3]]), " "), strings.TrimSpace(line[m[3]:])
}

// cleanName 逐字移除 stopwords
func cleanName(raw string) string {
	tokens := strings.Fields(raw)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		bare := strings.ToLower(strings.Trim(tok, ",;."))
		if _, ok := stopwords[bare]; ok {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Trim(strings.Join(kept, " "), " ,;")
}
