// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/eventhub/internal/auth"
	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/model"
)

const refreshCookieName = "refreshToken"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Refresh(ctx context.Context, rawRefresh string) (string, error)
	Logout(ctx context.Context, rawRefresh string) error
	CurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は登録・ログイン・トークン更新のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *model.User `json:"user,omitempty"`
}

// Register は新規ユーザーを登録する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, r, model.NewValidationError("Invalid request body.", err.Error()))
		return
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusCreated, "User registered successfully.", user)
}

// Login はメールアドレスとパスワードで認証し、アクセストークンを返す。
// リフレッシュトークンはHttpOnly Cookieに設定する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, model.NewValidationError("Invalid request body.", err.Error()))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken.Token, result.RefreshToken.ExpiresAt)
	middleware.WriteSuccess(w, http.StatusOK, "Logged in successfully.", tokenResponse{
		AccessToken: result.AccessToken,
		User:        result.User,
	})
}

// Refresh はリフレッシュトークンCookieから新しいアクセストークンを発行する。
// 検証に失敗した場合はCookieをクリアする。
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		raw = cookie.Value
	}

	token, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		if raw != "" {
			h.clearRefreshCookie(w)
		}
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "", tokenResponse{AccessToken: token})
}

// Logout はリフレッシュトークンを失効させ、Cookieをクリアする。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			// 失効に失敗してもCookieはクリアする
			slog.Error("failed to revoke refresh token", slog.String("error", err.Error()))
		}
	}
	h.clearRefreshCookie(w)
	middleware.WriteSuccess(w, http.StatusOK, "Logged out successfully.", nil)
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "", user)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/api/auth",
		Domain:   h.config.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
