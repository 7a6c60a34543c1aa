package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MissingServingsError 食譜缺少可用份量時無法縮放
type MissingServingsError struct {
	RecipeID   string
	RecipeName string
}

func (e *MissingServingsError) Error() string {
	if e.RecipeName != "" {
		return fmt.Sprintf("recipe %q (%s) has no usable serving count", e.RecipeName, e.RecipeID)
	}
	return fmt.Sprintf("recipe %s has no usable serving count", e.RecipeID)
}

// IsMissingServings 檢查是否為缺少份量錯誤
func IsMissingServings(err error) bool {
	var me *MissingServingsError
	return errors.As(err, &me)
}

var (
	// ErrRecordNotFound 文件不存在
	ErrRecordNotFound = errors.New("record not found")

	// ErrExternalService 文字生成服務失敗、逾時或回傳無法解析的內容
	ErrExternalService = errors.New("external service failure")
)

// StaleReference 指向已不存在食材的引用（非致命）
type StaleReference struct {
	Owner        string `json:"owner"` // 例如 allergy:<id>
	IngredientID string `json:"ingredient_id"`
}

func (s StaleReference) String() string {
	return fmt.Sprintf("%s -> %s", s.Owner, s.IngredientID)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE" // 413
	ErrCodeMissingServings = "MISSING_SERVINGS"  // 422
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrConflict        = NewError(ErrCodeConflict, "資源衝突", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrRequestTooLarge = NewError(ErrCodeRequestTooLarge, "請求內容過大", http.StatusRequestEntityTooLarge, nil)

	// 服務器錯誤
	ErrInternalError  = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrGatewayTimeout = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrCacheMiss = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
)

// ToCustomError 將領域錯誤對應為 API 錯誤
func ToCustomError(err error) *CustomError {
	var ce *CustomError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return ce
	case IsMissingServings(err):
		return NewError(ErrCodeMissingServings, "食譜缺少份量", http.StatusUnprocessableEntity, err)
	case IsValidationError(err):
		return NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, err)
	case errors.Is(err, ErrRecordNotFound):
		return NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, err)
	case errors.Is(err, ErrExternalService):
		return NewError(ErrCodeServiceUnavailable, "AI 服務錯誤", http.StatusServiceUnavailable, err)
	}
	return NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, err)
}
