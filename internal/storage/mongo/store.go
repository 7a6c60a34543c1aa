package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"
	"catering-planner/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// 集合名稱
const (
	ingredientsCollection = "ingredients"
	recipesCollection     = "recipes"
	eventsCollection      = "events"
	allergiesCollection   = "allergies"
)

// Store MongoDB 文件儲存
type Store struct {
	client      *mongo.Client
	timeout     time.Duration
	ingredients *mongo.Collection
	recipes     *mongo.Collection
	events      *mongo.Collection
	allergies   *mongo.Collection
}

// NewStore 連線 MongoDB 並建立索引
func NewStore(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:      client,
		timeout:     timeout,
		ingredients: db.Collection(ingredientsCollection),
		recipes:     db.Collection(recipesCollection),
		events:      db.Collection(eventsCollection),
		allergies:   db.Collection(allergiesCollection),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	common.LogInfo("MongoDB 已連線",
		zap.String("database", cfg.Database),
		zap.Duration("timeout", timeout),
	)
	return s, nil
}

// ensureIndexes normalized_name 在目錄中必須唯一
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.ingredients.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "normalized_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create ingredient index: %w", err)
	}
	_, err = s.allergies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "person_name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create allergy index: %w", err)
	}
	_, err = s.allergies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "person_name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create allergy person index: %w", err)
	}
	_, err = s.recipes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create recipe index: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close 中斷連線
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// mapError 將 driver 錯誤轉為儲存層錯誤
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return common.ErrRecordNotFound
	case mongo.IsDuplicateKeyError(err):
		return common.ErrConflict
	}
	return err
}

func (s *Store) findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return mapError(coll.FindOne(ctx, filter).Decode(out))
}

func (s *Store) insert(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := coll.InsertOne(ctx, doc)
	return mapError(err)
}

func (s *Store) replace(ctx context.Context, coll *mongo.Collection, id string, doc interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return common.ErrRecordNotFound
	}
	return nil
}

func findAll[T any](ctx context.Context, s *Store, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return out, nil
}

// --- ingredients ---

func (s *Store) GetIngredient(ctx context.Context, id string) (*common.Ingredient, error) {
	var ing common.Ingredient
	if err := s.findOne(ctx, s.ingredients, bson.M{"_id": id}, &ing); err != nil {
		return nil, err
	}
	return &ing, nil
}

func (s *Store) FindIngredientByNormalizedName(ctx context.Context, normalized string) (*common.Ingredient, error) {
	var ing common.Ingredient
	if err := s.findOne(ctx, s.ingredients, bson.M{"normalized_name": normalized}, &ing); err != nil {
		return nil, err
	}
	return &ing, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ing *common.Ingredient) error {
	return s.insert(ctx, s.ingredients, ing)
}

func (s *Store) UpdateIngredient(ctx context.Context, ing *common.Ingredient) error {
	return s.replace(ctx, s.ingredients, ing.ID, ing)
}

func (s *Store) IncrementIngredientUsage(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.ingredients.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$inc": bson.M{"usage_count": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	return mapError(err)
}

func (s *Store) ListIngredients(ctx context.Context) ([]common.Ingredient, error) {
	return findAll[common.Ingredient](ctx, s, s.ingredients, bson.M{},
		options.Find().SetSort(bson.D{{Key: "normalized_name", Value: 1}}))
}

// --- recipes ---

func (s *Store) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	var r common.Recipe
	if err := s.findOne(ctx, s.recipes, bson.M{"_id": id}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) FindRecipeByName(ctx context.Context, name string) (*common.Recipe, error) {
	var r common.Recipe
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	if err := s.recipes.FindOne(ctx, bson.M{"name": name}, opts).Decode(&r); err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

func (s *Store) CreateRecipe(ctx context.Context, r *common.Recipe) error {
	return s.insert(ctx, s.recipes, r)
}

func (s *Store) UpdateRecipe(ctx context.Context, r *common.Recipe) error {
	return s.replace(ctx, s.recipes, r.ID, r)
}

func (s *Store) SetParsedIngredients(ctx context.Context, id string, parsed []common.ParsedIngredientLine, ingredientIDs []string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.recipes.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"parsed_ingredients": parsed,
			"ingredient_ids":     ingredientIDs,
			"ingredients_parsed": true,
			"updated_at":         time.Now(),
		},
	})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return common.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListRecipes(ctx context.Context) ([]common.Recipe, error) {
	return findAll[common.Recipe](ctx, s, s.recipes, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// --- events ---

func (s *Store) GetEvent(ctx context.Context, id string) (*common.Event, error) {
	var e common.Event
	if err := s.findOne(ctx, s.events, bson.M{"_id": id}, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *common.Event) error {
	return s.insert(ctx, s.events, e)
}

func (s *Store) UpdateEvent(ctx context.Context, e *common.Event) error {
	return s.replace(ctx, s.events, e.ID, e)
}

// --- allergies ---

func (s *Store) ListAllergies(ctx context.Context, eventID string) ([]common.AllergyRecord, error) {
	return findAll[common.AllergyRecord](ctx, s, s.allergies, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "person_name", Value: 1}, {Key: "_id", Value: 1}}))
}

// ListAllergiesByPerson 跨活動列出同一人的過敏紀錄
func (s *Store) ListAllergiesByPerson(ctx context.Context, personName string) ([]common.AllergyRecord, error) {
	return findAll[common.AllergyRecord](ctx, s, s.allergies, bson.M{"person_name": personName},
		options.Find().SetSort(bson.D{{Key: "event_id", Value: 1}, {Key: "_id", Value: 1}}))
}

func (s *Store) GetAllergy(ctx context.Context, id string) (*common.AllergyRecord, error) {
	var a common.AllergyRecord
	if err := s.findOne(ctx, s.allergies, bson.M{"_id": id}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAllergy(ctx context.Context, a *common.AllergyRecord) error {
	return s.insert(ctx, s.allergies, a)
}

func (s *Store) UpdateAllergy(ctx context.Context, a *common.AllergyRecord) error {
	return s.replace(ctx, s.allergies, a.ID, a)
}

func (s *Store) DeleteAllergy(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.allergies.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return common.ErrRecordNotFound
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
