package recipe

import (
	"context"
	"testing"

	"catering-planner/internal/core/ingredient"
	"catering-planner/internal/pkg/common"
	"catering-planner/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Extractor, *memory.Store, *ingredient.Catalog) {
	t.Helper()
	store := memory.NewStore()
	catalog := ingredient.NewCatalog(store)
	return NewExtractor(catalog, store), store, catalog
}

const cakeText = `Dough:
2 cups flour
1 tsp salt

# Topping
2 cups flour
3 eggs
`

func TestParseRecipeIngredients(t *testing.T) {
	ex, _, _ := setup(t)
	ctx := context.Background()

	parsed, err := ex.ParseRecipeIngredients(ctx, cakeText)
	require.NoError(t, err)
	require.Len(t, parsed, 4)

	assert.Equal(t, "2 cups flour", parsed[0].Original)
	assert.Equal(t, "flour", parsed[0].NormalizedName)
	assert.Equal(t, "salt", parsed[1].NormalizedName)
	assert.Equal(t, "flour", parsed[2].NormalizedName)
	assert.Equal(t, "egg", parsed[3].NormalizedName)

	// 重複的食材不合併，但指向同一個目錄項目
	assert.Equal(t, parsed[0].IngredientID, parsed[2].IngredientID)
	for _, p := range parsed {
		assert.NotEmpty(t, p.IngredientID)
	}
}

func TestUpdateRecipeIncrementsUsageOncePerIngredient(t *testing.T) {
	ex, store, catalog := setup(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecipe(ctx, &common.Recipe{ID: "rcp_1", Name: "Cake", Ingredients: cakeText, Serves: 8}))

	parsed, err := ex.ParseRecipeIngredients(ctx, cakeText)
	require.NoError(t, err)
	ids, err := ex.UpdateRecipeWithParsedIngredients(ctx, "rcp_1", parsed)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	for _, id := range ids {
		ing, err := catalog.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, ing.UsageCount, ing.NormalizedName)
	}

	r, err := store.GetRecipe(ctx, "rcp_1")
	require.NoError(t, err)
	assert.True(t, r.IngredientsParsed)
	assert.Equal(t, ids, r.IngredientIDs)
	assert.Len(t, r.ParsedIngredients, 4)

	// 每個 ID 都至少出現在一行解析結果中
	for _, id := range r.IngredientIDs {
		found := false
		for _, p := range r.ParsedIngredients {
			if p.IngredientID == id {
				found = true
			}
		}
		assert.True(t, found, id)
	}
}

func TestReparseDoesNotDoubleCount(t *testing.T) {
	ex, store, catalog := setup(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecipe(ctx, &common.Recipe{ID: "rcp_1", Name: "Cake", Ingredients: cakeText, Serves: 8}))
	r, err := store.GetRecipe(ctx, "rcp_1")
	require.NoError(t, err)

	_, _, err = ex.Reparse(ctx, r)
	require.NoError(t, err)

	r, err = store.GetRecipe(ctx, "rcp_1")
	require.NoError(t, err)
	r.Ingredients += "\n1 cup milk"
	_, ids, err := ex.Reparse(ctx, r)
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	all, err := catalog.List(ctx)
	require.NoError(t, err)
	for _, ing := range all {
		assert.Equal(t, 1, ing.UsageCount, ing.NormalizedName)
	}
}

func TestUpdateMissingRecipe(t *testing.T) {
	ex, _, _ := setup(t)
	_, err := ex.UpdateRecipeWithParsedIngredients(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}
