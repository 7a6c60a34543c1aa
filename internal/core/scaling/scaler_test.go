package scaling

import (
	"context"
	"errors"
	"testing"
	"time"

	"catering-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPolicy 記錄呼叫次數並回傳固定結果
type countingPolicy struct {
	calls int
	res   *Result
	err   error
}

func (c *countingPolicy) Name() string { return "counting" }

func (c *countingPolicy) Scale(ctx context.Context, req Request) (*Result, error) {
	c.calls++
	return c.res, c.err
}

func parsedCake() common.Recipe {
	return common.Recipe{
		ID:           "rcp_cake",
		Name:         "Cake",
		Serves:       4,
		Ingredients:  "2 cups flour\n3 eggs",
		Instructions: "Bake.",
		Tags:         []string{"baked"},
		ParsedIngredients: []common.ParsedIngredientLine{
			{Original: "2 cups flour", Quantity: "2", Unit: "cups", Name: "flour", NormalizedName: "flour", IngredientID: "ing_flour"},
			{Original: "3 eggs", Quantity: "3", Name: "eggs", NormalizedName: "egg", IngredientID: "ing_egg"},
		},
		IngredientIDs:     []string{"ing_flour", "ing_egg"},
		IngredientsParsed: true,
	}
}

func TestScaleRecipeMissingServings(t *testing.T) {
	policy := &countingPolicy{}
	s := NewScaler(policy, time.Second)

	for _, serves := range []float64{0, -2} {
		r := parsedCake()
		r.Serves = serves
		_, err := s.ScaleRecipe(context.Background(), r, 10, common.ScalingManual)
		require.Error(t, err)
		assert.True(t, common.IsMissingServings(err))
	}
	assert.Equal(t, 0, policy.calls)
}

func TestScaleRecipeInvalidTarget(t *testing.T) {
	s := NewScaler(&countingPolicy{}, time.Second)
	_, err := s.ScaleRecipe(context.Background(), parsedCake(), 0, common.ScalingManual)
	assert.True(t, common.IsValidationError(err))
}

func TestScaleRecipeNoChange(t *testing.T) {
	policy := &countingPolicy{}
	s := NewScaler(policy, time.Second)

	out, err := s.ScaleRecipe(context.Background(), parsedCake(), 4, common.ScalingManual)
	require.NoError(t, err)
	assert.Contains(t, out.ScalingNotes, "No change needed")
	assert.Equal(t, 1.0, out.ScaleFactor)
	assert.Equal(t, 0, policy.calls)
	assert.Equal(t, "2 cups flour\n3 eggs", out.Ingredients)
}

func TestScaleRecipe(t *testing.T) {
	policy := &countingPolicy{res: &Result{
		Ingredients:  []string{"5 cups flour", "8 eggs"},
		Instructions: "Bake in two pans.",
		Notes:        []string{"eggs: rounded to 8 from exact 7.5"},
	}}
	s := NewScaler(policy, time.Second)

	out, err := s.ScaleRecipe(context.Background(), parsedCake(), 10, "")
	require.NoError(t, err)
	assert.Equal(t, common.ScalingManual, out.ScalingMethod)
	assert.Equal(t, "rcp_cake", out.SourceRecipeID)
	assert.Empty(t, out.ID)
	assert.Equal(t, 4.0, out.OriginalServings)
	assert.Equal(t, 10.0, out.ScaledServings)
	assert.Equal(t, 10.0, out.Serves)
	assert.InDelta(t, 2.5, out.ScaleFactor, 1e-9)
	assert.Equal(t, "5 cups flour\n8 eggs", out.Ingredients)
	assert.Equal(t, "Bake in two pans.", out.Instructions)
	assert.Contains(t, out.ScalingNotes, "Scaled from 4 to 10 servings")
	assert.Contains(t, out.ScalingNotes, "rounded to 8")
	assert.False(t, out.ScalingFailed)

	require.Len(t, out.ParsedIngredients, 2)
	assert.Equal(t, "5", out.ParsedIngredients[0].Quantity)
	assert.Equal(t, "ing_flour", out.ParsedIngredients[0].IngredientID)
	assert.Equal(t, "ing_egg", out.ParsedIngredients[1].IngredientID)
	assert.Equal(t, []string{"ing_flour", "ing_egg"}, out.IngredientIDs)
	assert.True(t, out.IngredientsParsed)
}

func TestScaleRecipeRenamedIngredientKeepsIDs(t *testing.T) {
	policy := &countingPolicy{res: &Result{Ingredients: []string{"5 cups plain flour", "8 eggs"}}}
	s := NewScaler(policy, time.Second)

	out, err := s.ScaleRecipe(context.Background(), parsedCake(), 10, common.ScalingManual)
	require.NoError(t, err)
	assert.Equal(t, []string{"ing_flour", "ing_egg"}, out.IngredientIDs)
	assert.False(t, out.IngredientsParsed)
	assert.Equal(t, "Bake.", out.Instructions)
}

func TestScaleRecipeDegradesOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		policy *countingPolicy
	}{
		{name: "policy error", policy: &countingPolicy{err: errors.New("model unavailable")}},
		{name: "nil result", policy: &countingPolicy{}},
		{name: "blank ingredients", policy: &countingPolicy{res: &Result{Ingredients: []string{" "}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScaler(tt.policy, time.Second)
			original := parsedCake()

			out, err := s.ScaleRecipe(context.Background(), original, 10, common.ScalingManual)
			require.NoError(t, err)
			assert.True(t, out.ScalingFailed)
			assert.NotEmpty(t, out.ScalingError)
			assert.Equal(t, original, out.Recipe)
			assert.Equal(t, 4.0, out.ScaledServings)
			assert.Contains(t, out.ScalingNotes, "could not be completed")
		})
	}
}

func TestScaleRecipeTimeout(t *testing.T) {
	slow := PolicyFunc(func(ctx context.Context, req Request) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := NewScaler(slow, 10*time.Millisecond)

	out, err := s.ScaleRecipe(context.Background(), parsedCake(), 8, common.ScalingManual)
	require.NoError(t, err)
	assert.True(t, out.ScalingFailed)
	assert.Contains(t, out.ScalingError, "deadline exceeded")
}
