package scaling

import (
	"context"
	"testing"

	"catering-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticScale(t *testing.T) {
	policy := NewArithmetic([]string{"eggs", "lemon"}, 0.08)
	recipe := common.Recipe{
		Name:         "Pancakes",
		Serves:       4,
		Instructions: "Mix and fry.",
		Ingredients: `Batter:
1 1/2 cups flour
2 eggs
1 tsp baking powder
1/2 lemon
250 g blueberries
salt to taste
2-3 tbsp butter`,
	}

	res, err := policy.Scale(context.Background(), Request{Recipe: recipe, TargetServings: 10, Factor: 2.5})
	require.NoError(t, err)
	assert.Equal(t, "Mix and fry.", res.Instructions)
	assert.Equal(t, []string{
		"3 3/4 cups flour",
		"5 eggs",
		"2 1/2 tsp baking powder",
		"1 lemon",
		"625 g blueberries",
		"salt to taste",
		"5-7 1/2 tbsp butter",
	}, res.Ingredients)
}

func TestArithmeticKeepsIndivisibleBelowOne(t *testing.T) {
	policy := NewArithmetic([]string{"egg"}, 0.08)
	recipe := common.Recipe{Name: "Omelette", Serves: 4, Ingredients: "2 eggs\n1 cup milk"}

	res, err := policy.Scale(context.Background(), Request{Recipe: recipe, TargetServings: 1, Factor: 0.25})
	require.NoError(t, err)
	assert.Equal(t, []string{"2 eggs", "1/4 cup milk"}, res.Ingredients)
	require.NotEmpty(t, res.Notes)
	assert.Contains(t, res.Notes[0], "cannot split below one unit")
}

func TestArithmeticReportsToleranceMiss(t *testing.T) {
	policy := NewArithmetic(nil, 0.08)
	recipe := common.Recipe{Name: "Dressing", Serves: 8, Ingredients: "1/8 tsp pepper"}

	res, err := policy.Scale(context.Background(), Request{Recipe: recipe, TargetServings: 3, Factor: 0.375})
	require.NoError(t, err)
	assert.Equal(t, []string{"1/8 tsp pepper"}, res.Ingredients)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "pepper")
}

func TestArithmeticUsesParsedIngredients(t *testing.T) {
	policy := NewArithmetic(nil, 0.08)
	recipe := common.Recipe{
		Name:   "Soup",
		Serves: 2,
		ParsedIngredients: []common.ParsedIngredientLine{
			{Original: "1.2 kg potatoes", Quantity: "1.2", Unit: "kg", Name: "potatoes", NormalizedName: "potato"},
		},
	}

	res, err := policy.Scale(context.Background(), Request{Recipe: recipe, TargetServings: 3, Factor: 1.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.8 kg potatoes"}, res.Ingredients)
}

func TestArithmeticEmptyRecipe(t *testing.T) {
	_, err := NewArithmetic(nil, 0).Scale(context.Background(), Request{Recipe: common.Recipe{Serves: 2}, Factor: 2})
	assert.Error(t, err)
}
