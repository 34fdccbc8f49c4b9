package common

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
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

// ValidationError 表示驗證錯誤，可包含多條訊息
type ValidationError struct {
	Messages []string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(messages ...string) error {
	return &ValidationError{Messages: messages}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidationMessages 取出驗證錯誤的訊息，非驗證錯誤則回傳其字串
func ValidationMessages(err error) []string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Messages
	}
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeValidation      = "VALIDATION_FAILED" // 422
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeInternalError   = "INTERNAL_ERROR"    // 500
)

// IngredientCreationErrorPrefix 出現此前綴的錯誤會讓整個食譜建立回滾
const IngredientCreationErrorPrefix = "Error creating ingredient"

// 預定義錯誤
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "missing or invalid user id", http.StatusUnauthorized, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrConflict        = NewError(ErrCodeConflict, "resource already exists", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)

	ErrCacheDisabled = errors.New("cache disabled")
	ErrCacheMiss     = errors.New("cache miss")
	ErrCacheFull     = errors.New("cache full")
)
