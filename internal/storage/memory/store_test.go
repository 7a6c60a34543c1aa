package memory

import (
	"context"
	"testing"

	"catering-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	ing := &common.Ingredient{ID: "ing_1", Name: "Flour", NormalizedName: "flour", Allergens: map[string][]string{}}
	require.NoError(t, s.CreateIngredient(ctx, ing))
	assert.ErrorIs(t, s.CreateIngredient(ctx, &common.Ingredient{ID: "ing_2", NormalizedName: "flour"}), common.ErrConflict)

	found, err := s.FindIngredientByNormalizedName(ctx, "flour")
	require.NoError(t, err)
	assert.Equal(t, "ing_1", found.ID)

	// 回傳值是複本
	found.Substitutes = append(found.Substitutes, "almond flour")
	again, err := s.GetIngredient(ctx, "ing_1")
	require.NoError(t, err)
	assert.Empty(t, again.Substitutes)

	require.NoError(t, s.IncrementIngredientUsage(ctx, []string{"ing_1", "ing_missing"}))
	again, err = s.GetIngredient(ctx, "ing_1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.UsageCount)

	_, err = s.GetIngredient(ctx, "ing_missing")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestRecipeStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.CreateRecipe(ctx, &common.Recipe{ID: "rcp_b", Name: "Tacos"}))
	require.NoError(t, s.CreateRecipe(ctx, &common.Recipe{ID: "rcp_a", Name: "Chili"}))

	r, err := s.FindRecipeByName(ctx, "TACOS")
	require.NoError(t, err)
	assert.Equal(t, "rcp_b", r.ID)

	parsed := []common.ParsedIngredientLine{{Original: "1 lb beef", Name: "beef", IngredientID: "ing_1"}}
	require.NoError(t, s.SetParsedIngredients(ctx, "rcp_b", parsed, []string{"ing_1"}))
	r, err = s.GetRecipe(ctx, "rcp_b")
	require.NoError(t, err)
	assert.True(t, r.IngredientsParsed)
	assert.Equal(t, []string{"ing_1"}, r.IngredientIDs)

	assert.ErrorIs(t, s.SetParsedIngredients(ctx, "rcp_x", nil, nil), common.ErrRecordNotFound)

	list, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Chili", list[0].Name)
}

func TestAllergyStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.CreateEvent(ctx, &common.Event{ID: "evt_1", Name: "Gala"}))
	require.NoError(t, s.CreateAllergy(ctx, &common.AllergyRecord{ID: "alg_2", EventID: "evt_1", PersonName: "Sam"}))
	require.NoError(t, s.CreateAllergy(ctx, &common.AllergyRecord{ID: "alg_1", EventID: "evt_1", PersonName: "Alex"}))
	require.NoError(t, s.CreateAllergy(ctx, &common.AllergyRecord{ID: "alg_3", EventID: "evt_2", PersonName: "Kim"}))

	list, err := s.ListAllergies(ctx, "evt_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alex", list[0].PersonName)

	require.NoError(t, s.CreateAllergy(ctx, &common.AllergyRecord{ID: "alg_4", EventID: "evt_0", PersonName: "Alex"}))
	mine, err := s.ListAllergiesByPerson(ctx, "Alex")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "alg_4", mine[0].ID)
	assert.Equal(t, "alg_1", mine[1].ID)

	require.NoError(t, s.DeleteAllergy(ctx, "alg_1"))
	assert.ErrorIs(t, s.DeleteAllergy(ctx, "alg_1"), common.ErrRecordNotFound)

	require.NoError(t, s.Close(ctx))
	_, err = s.GetEvent(ctx, "evt_1")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}
