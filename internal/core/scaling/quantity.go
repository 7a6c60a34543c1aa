package scaling

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// unitRule 單位的四捨五入規則
type unitRule struct {
	step    float64
	decimal bool // 以小數而非分數呈現
	whole   bool // 不可分割
}

var (
	spoonRule  = unitRule{step: 0.125}
	cupRule    = unitRule{step: 0.25}
	gramRule   = unitRule{step: 1, decimal: true}
	metricRule = unitRule{step: 0.1, decimal: true}
	countRule  = unitRule{step: 1, whole: true}
	otherRule  = unitRule{step: 0.25}
)

var unitRules = map[string]unitRule{}

func init() {
	register := func(rule unitRule, units ...string) {
		for _, u := range units {
			unitRules[u] = rule
		}
	}
	register(spoonRule, "tsp", "tsps", "teaspoon", "teaspoons", "tbsp", "tbsps", "tbs", "tbl", "tablespoon", "tablespoons")
	register(cupRule, "cup", "cups")
	register(gramRule, "g", "gram", "grams", "ml", "milliliter", "milliliters", "millilitre", "millilitres")
	register(metricRule, "kg", "kilogram", "kilograms", "liter", "liters", "litre", "litres")
	register(countRule, "", "piece", "pieces", "pc", "pcs", "clove", "cloves", "can", "cans",
		"package", "packages", "pkg", "pkgs", "box", "boxes", "bunch", "bunches")
}

func ruleFor(unit string) unitRule {
	if r, ok := unitRules[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return r
	}
	return otherRule
}

// parseAmount 解析 "2"、"0.5"、"1/2"、"1 1/2"
func parseAmount(s string) (float64, bool) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return parseSimple(fields[0])
	case 2:
		whole, ok := parseSimple(fields[0])
		if !ok || strings.Contains(fields[0], "/") {
			return 0, false
		}
		frac, ok := parseSimple(fields[1])
		if !ok || !strings.Contains(fields[1], "/") {
			return 0, false
		}
		return whole + frac, true
	}
	return 0, false
}

func parseSimple(s string) (float64, bool) {
	if num, den, found := strings.Cut(s, "/"); found {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseQuantity 解析數量或範圍（"2-3"），單一數值時 lo 與 hi 相同
func parseQuantity(q string) (lo, hi float64, isRange, ok bool) {
	q = strings.ReplaceAll(q, "–", "-")
	if a, b, found := strings.Cut(q, "-"); found {
		lo, ok1 := parseAmount(strings.TrimSpace(a))
		hi, ok2 := parseAmount(strings.TrimSpace(b))
		return lo, hi, true, ok1 && ok2
	}
	v, ok := parseAmount(q)
	return v, v, false, ok
}

// roundTo 四捨五入到 step 的倍數；正數不會被捨為零
func roundTo(v, step float64) float64 {
	r := math.Round(v/step) * step
	if r == 0 && v > 0 {
		r = step
	}
	return r
}

// formatAmount 依規則輸出，例如 "1 1/2"、"3/8"、"250"、"1.2"
func formatAmount(v float64, rule unitRule) string {
	if rule.decimal || rule.whole {
		prec := 0
		if rule.step < 1 {
			prec = 1
		}
		out := strconv.FormatFloat(v, 'f', prec, 64)
		if strings.Contains(out, ".") {
			out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
		}
		return out
	}

	eighths := int(math.Round(v * 8))
	whole, rem := eighths/8, eighths%8
	if rem == 0 {
		return strconv.Itoa(whole)
	}
	num, den := rem, 8
	for num%2 == 0 {
		num, den = num/2, den/2
	}
	if whole == 0 {
		return fmt.Sprintf("%d/%d", num, den)
	}
	return fmt.Sprintf("%d %d/%d", whole, num, den)
}
