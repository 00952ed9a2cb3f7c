package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法、フィールド単位のエラー一覧を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, resource, system
	Action   string   // ユーザー向け対処方法
	Errors   []string // フィールド単位の詳細（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// NewUnauthenticatedError は認証情報がない、または無効な場合のエラーを生成する。
func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  message,
		Category: "auth",
		Action:   "Log in and retry with a valid access token.",
	}
}

// NewForbiddenError は認証済みだが権限がない場合のエラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "Use an account with sufficient permissions.",
	}
}

// NewNotFoundError は指定リソースのレコードが存在しない場合のエラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found.", resource),
		Category: "resource",
		Action:   "Check the resource ID.",
	}
}

// NewRouteNotFoundError は存在しないルートへのリクエストに対するエラーを生成する。
func NewRouteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  "Route not found.",
		Category: "resource",
		Action:   "Check the request method and path.",
	}
}

// NewValidationError は入力値が不正な場合のエラーを生成する。
func NewValidationError(message string, errs ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Fix the listed fields and retry.",
		Errors:   errs,
	}
}

// NewConflictError は一意制約違反など既存データと衝突する場合のエラーを生成する。
func NewConflictError(message string, errs ...string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  message,
		Category: "validation",
		Action:   "Use different values for the unique fields.",
		Errors:   errs,
	}
}

// NewInvalidCredentialsError はログイン情報が一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials.",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewRateLimitedError はレート制限超過時のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests from this IP, please try again after a minute.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーの統一エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Something went wrong on the server.",
		Category: "system",
		Action:   "Please try again later.",
	}
}

// NewUnavailableError は依存先が利用できない場合のエラーを生成する。
func NewUnavailableError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUnavailable,
		Message:  message,
		Category: "system",
		Action:   "Please try again later.",
	}
}
