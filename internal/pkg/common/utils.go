package common

import (
	"context"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// NewID 生成帶前綴的識別碼，例如 ing_xxxx
func NewID(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}

// ID 前綴
const (
	PrefixIngredient = "ing"
	PrefixRecipe     = "rcp"
	PrefixEvent      = "evt"
	PrefixAllergy    = "alg"
)

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context，供下游記錄日誌
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 取出請求 ID，沒有時回傳空字串
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
