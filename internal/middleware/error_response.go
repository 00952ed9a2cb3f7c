package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hitoshi/eventhub/internal/model"
)

var diagnosticsContextKey = contextKey("diagnostics")

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Success  bool     `json:"success"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Action   string   `json:"action"`
	Errors   []string `json:"errors,omitempty"`
	Stack    string   `json:"stack,omitempty"`
}

// SuccessResponseBody は成功レスポンスの統一フォーマット。
type SuccessResponseBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewDiagnosticsMiddleware は開発モードの場合に500レスポンスへスタックトレースを含めるよう
// リクエストコンテキストに印を付ける。
func NewDiagnosticsMiddleware(enabled bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), diagnosticsContextKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func diagnosticsEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(diagnosticsContextKey).(bool)
	return enabled
}

// StatusForError はAPIErrorのコードに対応するHTTPステータスを返す。
func StatusForError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeNotFound, model.ErrCodeRouteNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeInvalidCredentials:
		return http.StatusBadRequest
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はerrを統一エラーフォーマットで書き込む。
// APIError以外のエラーはログに記録し、500として応答する。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apiErr = model.NewInternalError()
	}

	status := StatusForError(apiErr)
	body := ErrorResponseBody{
		Success:  false,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Errors:   apiErr.Errors,
	}
	if status == http.StatusInternalServerError && diagnosticsEnabled(r.Context()) {
		body.Errors = append(body.Errors, err.Error())
		body.Stack = string(debug.Stack())
	}
	writeJSON(w, status, body)
}

// WriteSuccess は統一成功フォーマットで書き込む。dataがnilの場合はdataを省略する。
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, SuccessResponseBody{Success: true, Message: message, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// NotFoundHandler は未定義ルートおよび未許可メソッドに対する404ハンドラー。
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, model.NewRouteNotFoundError())
	}
}
