// Package middleware はHTTPミドルウェアとレスポンス書き込みヘルパーを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/metrics"
	"github.com/hitoshi/eventhub/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var identityContextKey = contextKey("identity")

// Verifier はBearerトークンを検証して認証主体を返す。
type Verifier interface {
	Verify(raw string) (*model.Identity, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証主体をリクエストコンテキストに注入するミドルウェアを返す。
// トークンがない場合と検証に失敗した場合はいずれも401を返す。
func NewAuthMiddleware(verifier Verifier, rec metrics.Recorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				rec.RecordAuthFailure("no_token")
				WriteError(w, r, model.NewUnauthenticatedError("Not authorized, no token"))
				return
			}

			identity, err := verifier.Verify(raw)
			if err != nil {
				slog.Warn("token verification failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				rec.RecordAuthFailure("token_failed")
				WriteError(w, r, model.NewUnauthenticatedError("Not authorized, token failed"))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole はコンテキストの認証主体のロールがrolesに含まれる場合のみ通過させる。
// 認証主体がない場合は401、ロール不一致は403を返す。
func RequireRole(roles access.RoleSet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				WriteError(w, r, model.NewUnauthenticatedError("Not authorized, no token"))
				return
			}
			if !access.Allow(identity, roles) {
				WriteError(w, r, model.NewForbiddenError(access.RoleDeniedMessage(roles)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証主体を取得する。
// 認証ミドルウェアを通過していない場合はnilを返す。
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityContextKey).(*model.Identity)
	return identity
}

// ContextWithIdentity はコンテキストに認証主体を注入する。
// ロギングミドルウェアの配下であれば、ログにも認証主体が記録される。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	if info := requestInfoFromContext(ctx); info != nil {
		info.identity = identity
	}
	return context.WithValue(ctx, identityContextKey, identity)
}
