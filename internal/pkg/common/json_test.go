package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAIJSON(t *testing.T) {
	var out struct {
		Ingredients []string `json:"ingredients"`
		Notes       string   `json:"notes"`
	}

	content := "Here you go:\n```json\n{\"ingredients\": [\"2 cups rice\"], \"notes\": \"ok\"}\n```"
	require.NoError(t, ParseAIJSON(content, &out))
	assert.Equal(t, []string{"2 cups rice"}, out.Ingredients)
	assert.Equal(t, "ok", out.Notes)

	require.NoError(t, ParseAIJSON(`{ingredients: ["1 egg"], notes: "x"}`, &out))
	assert.Equal(t, []string{"1 egg"}, out.Ingredients)

	assert.Error(t, ParseAIJSON("no json here", &out))
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	assert.Error(t, ParseJSON(`{"a":1} {"b":2}`, &v))
	assert.NoError(t, ParseJSON(`{"a":1}`, &v))
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestEventHelpers(t *testing.T) {
	e := Event{GuestCount: 40, StaffCount: 5, Menu: []MenuItem{{RecipeID: "a"}, {RecipeID: ""}, {RecipeID: "b"}, {RecipeID: "a"}}}
	assert.Equal(t, 45, e.HeadCount())
	assert.Equal(t, []string{"a", "b"}, e.MenuRecipeIDs())

	assert.False(t, Recipe{}.HasServings())
	assert.True(t, Recipe{Serves: 0.5}.HasServings())
}
