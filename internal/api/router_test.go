package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catering-planner/internal/api/handlers/health"
	"catering-planner/internal/core/planner"
	"catering-planner/internal/core/scaling"
	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:    config.AppConfig{Version: "test"},
		Server: config.ServerConfig{MaxBodyBytes: 1 << 20},
		Scaling: config.ScalingConfig{
			Policy:           config.PolicyArithmetic,
			Timeout:          time.Second,
			OvershootPercent: 10,
			SkipTolerance:    0.08,
			RatioTolerance:   0.08,
			Indivisible:      []string{"egg"},
		},
		DedupWindow: time.Nanosecond,
	}
	store := memory.NewStore()
	policy := scaling.NewArithmetic(cfg.Scaling.Indivisible, cfg.Scaling.RatioTolerance)
	svc := planner.NewService(store, scaling.NewScaler(policy, cfg.Scaling.Timeout), cfg.Scaling)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return SetupRouter(ctx, cfg, svc, health.Dependencies{Store: svc, Policy: policy.Name()})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthRoutes(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp health.HealthResponse
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["store"])
	assert.Equal(t, "disabled", resp.Checks["cache"])
	assert.Equal(t, "arithmetic", resp.Scaling["policy"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/live", nil).Code)
}

func TestIngredientParseAndNormalize(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/ingredients/parse", gin.H{"line": "2 cups chopped fresh tomatoes"})
	require.Equal(t, http.StatusOK, w.Code)
	var parsed struct {
		Quantity       string `json:"quantity"`
		Unit           string `json:"unit"`
		Name           string `json:"name"`
		NormalizedName string `json:"normalized_name"`
		Category       string `json:"category"`
		Degraded       bool   `json:"degraded"`
	}
	decode(t, w, &parsed)
	assert.Equal(t, "2", parsed.Quantity)
	assert.Equal(t, "cups", parsed.Unit)
	assert.Equal(t, "tomatoes", parsed.Name)
	assert.Equal(t, "tomato", parsed.NormalizedName)
	assert.Equal(t, "Vegetables", parsed.Category)
	assert.False(t, parsed.Degraded)

	w = doJSON(t, r, http.MethodPost, "/api/v1/ingredients/normalize", gin.H{"name": "  Blueberries "})
	require.Equal(t, http.StatusOK, w.Code)
	var norm struct {
		NormalizedName string `json:"normalized_name"`
		Category       string `json:"category"`
	}
	decode(t, w, &norm)
	assert.Equal(t, "blueberry", norm.NormalizedName)
	assert.Equal(t, "Fruits", norm.Category)

	w = doJSON(t, r, http.MethodPost, "/api/v1/ingredients/parse", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/recipes", gin.H{
		"name":         "Scrambled Eggs",
		"ingredients":  "4 eggs\n2 tbsp butter\n1/4 cup milk",
		"instructions": "Whisk and cook gently.",
		"serves":       2,
		"parse":        true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID                string   `json:"id"`
		IngredientIDs     []string `json:"ingredient_ids"`
		IngredientsParsed bool     `json:"ingredients_parsed"`
	}
	decode(t, w, &created)
	assert.True(t, created.IngredientsParsed)
	assert.Len(t, created.IngredientIDs, 3)

	w = doJSON(t, r, http.MethodGet, "/api/v1/recipes/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/recipes/"+created.ID+"/scale", gin.H{"target_servings": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var scaled struct {
		Ingredients    string  `json:"ingredients"`
		ScaleFactor    float64 `json:"scale_factor"`
		ScaledServings float64 `json:"scaled_servings"`
		SourceRecipeID string  `json:"source_recipe_id"`
		ScalingFailed  bool    `json:"scaling_failed"`
	}
	decode(t, w, &scaled)
	assert.Equal(t, 2.0, scaled.ScaleFactor)
	assert.Equal(t, 4.0, scaled.ScaledServings)
	assert.Equal(t, created.ID, scaled.SourceRecipeID)
	assert.False(t, scaled.ScalingFailed)
	assert.Contains(t, scaled.Ingredients, "8 eggs")
	assert.Contains(t, scaled.Ingredients, "1/2 cup milk")

	w = doJSON(t, r, http.MethodGet, "/api/v1/recipes/rcp_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/recipes", gin.H{"name": "scrambled eggs", "serves": 2})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScaleRecipeWithoutServings(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/recipes", gin.H{"name": "House Salad", "ingredients": "1 head lettuce"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = doJSON(t, r, http.MethodPost, "/api/v1/recipes/"+created.ID+"/scale", gin.H{"target_servings": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var errResp struct {
		Code string `json:"code"`
	}
	decode(t, w, &errResp)
	assert.Equal(t, "MISSING_SERVINGS", errResp.Code)
}

func TestEventAllergyFlow(t *testing.T) {
	r := newTestRouter(t)

	type recipeResp struct {
		ID                string `json:"id"`
		ParsedIngredients []struct {
			NormalizedName string `json:"normalized_name"`
			IngredientID   string `json:"ingredient_id"`
		} `json:"parsed_ingredients"`
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/recipes", gin.H{
		"name":        "Garlic Shrimp",
		"ingredients": "1 lb shrimp\n2 cloves garlic\n2 tbsp butter",
		"serves":      4,
		"parse":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var shrimp recipeResp
	decode(t, w, &shrimp)
	require.NotEmpty(t, shrimp.ParsedIngredients)
	require.Equal(t, "shrimp", shrimp.ParsedIngredients[0].NormalizedName)
	shrimpIngredient := shrimp.ParsedIngredients[0].IngredientID

	w = doJSON(t, r, http.MethodPost, "/api/v1/recipes", gin.H{
		"name":        "Rice Pilaf",
		"ingredients": "10 cups rice\n20 cups water",
		"serves":      52,
		"parse":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rice recipeResp
	decode(t, w, &rice)

	w = doJSON(t, r, http.MethodPost, "/api/v1/events", gin.H{
		"name":        "Gala",
		"guest_count": 45,
		"staff_count": 5,
		"menu":        []gin.H{{"recipe_id": shrimp.ID}, {"recipe_id": rice.ID}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var event struct {
		ID string `json:"id"`
	}
	decode(t, w, &event)
	base := "/api/v1/events/" + event.ID

	w = doJSON(t, r, http.MethodPost, base+"/allergies", gin.H{
		"person_name":    "Alex",
		"allergies":      []string{"shellfish"},
		"severity":       "severe",
		"ingredient_ids": []string{shrimpIngredient},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added struct {
		Record struct {
			ID string `json:"id"`
		} `json:"record"`
	}
	decode(t, w, &added)

	w = doJSON(t, r, http.MethodGet, base+"/recipes/"+shrimp.ID+"/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conflicts struct {
		People []string `json:"people"`
	}
	decode(t, w, &conflicts)
	assert.Equal(t, []string{"Alex"}, conflicts.People)

	w = doJSON(t, r, http.MethodGet, base+"/safe-recipes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var safe struct {
		Recipes []struct {
			ID string `json:"id"`
		} `json:"recipes"`
	}
	decode(t, w, &safe)
	require.Len(t, safe.Recipes, 1)
	assert.Equal(t, rice.ID, safe.Recipes[0].ID)

	w = doJSON(t, r, http.MethodPost, base+"/scale-menu", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var menu scaling.MenuResult
	decode(t, w, &menu)
	assert.Equal(t, 50, menu.HeadCount)
	assert.Equal(t, []string{shrimp.ID, rice.ID}, menu.Order)
	assert.Empty(t, menu.Failed)

	shrimpEntry := menu.Entries[shrimp.ID]
	require.NotNil(t, shrimpEntry)
	assert.Equal(t, scaling.EntryScaled, shrimpEntry.Status)
	assert.Equal(t, 1, shrimpEntry.Excluded)
	assert.Equal(t, 54, shrimpEntry.TargetServings)
	assert.Contains(t, shrimpEntry.Warning, "Alex (shellfish)")

	riceEntry := menu.Entries[rice.ID]
	require.NotNil(t, riceEntry)
	assert.Equal(t, scaling.EntryUnchanged, riceEntry.Status)
	assert.Equal(t, 55, riceEntry.TargetServings)

	w = doJSON(t, r, http.MethodDelete, base+"/allergies/"+added.Record.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, base+"/recipes/"+shrimp.ID+"/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &conflicts)
	assert.Empty(t, conflicts.People)
}

func TestEventNotFound(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/v1/events/evt_missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodPost, "/api/v1/events/evt_missing/allergies",
		gin.H{"person_name": "Sam"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/v1/events",
		gin.H{"name": "Picnic", "guest_count": -1}).Code)
}
