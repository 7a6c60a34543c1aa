package storage

import (
	"context"

	"catering-planner/internal/pkg/common"
)

// IngredientStore 食材文件
type IngredientStore interface {
	GetIngredient(ctx context.Context, id string) (*common.Ingredient, error)
	FindIngredientByNormalizedName(ctx context.Context, normalized string) (*common.Ingredient, error)
	CreateIngredient(ctx context.Context, ing *common.Ingredient) error
	UpdateIngredient(ctx context.Context, ing *common.Ingredient) error
	IncrementIngredientUsage(ctx context.Context, ids []string) error
	ListIngredients(ctx context.Context) ([]common.Ingredient, error)
}

// RecipeStore 食譜文件
type RecipeStore interface {
	GetRecipe(ctx context.Context, id string) (*common.Recipe, error)
	FindRecipeByName(ctx context.Context, name string) (*common.Recipe, error)
	CreateRecipe(ctx context.Context, r *common.Recipe) error
	UpdateRecipe(ctx context.Context, r *common.Recipe) error
	SetParsedIngredients(ctx context.Context, id string, parsed []common.ParsedIngredientLine, ingredientIDs []string) error
	ListRecipes(ctx context.Context) ([]common.Recipe, error)
}

// EventStore 活動文件
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*common.Event, error)
	CreateEvent(ctx context.Context, e *common.Event) error
	UpdateEvent(ctx context.Context, e *common.Event) error
}

// AllergyStore 過敏紀錄文件
type AllergyStore interface {
	ListAllergies(ctx context.Context, eventID string) ([]common.AllergyRecord, error)
	ListAllergiesByPerson(ctx context.Context, personName string) ([]common.AllergyRecord, error)
	GetAllergy(ctx context.Context, id string) (*common.AllergyRecord, error)
	CreateAllergy(ctx context.Context, a *common.AllergyRecord) error
	UpdateAllergy(ctx context.Context, a *common.AllergyRecord) error
	DeleteAllergy(ctx context.Context, id string) error
}

// Store 完整的文件儲存
type Store interface {
	IngredientStore
	RecipeStore
	EventStore
	AllergyStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
