package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/eventhub/internal/metrics"
	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/resource"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Recorder          metrics.Recorder
	Verifier          middleware.Verifier
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRF
	CORSAllowedOrigin string
	Diagnostics       bool
	HSTS              bool
	// TrustProxy がtrueの場合のみX-Forwarded-For/X-Real-IPを送信元として扱う
	TrustProxy bool

	// ヘルスチェック
	DB Pinger

	// /metrics（nilの場合は公開しない）
	Metrics http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 汎用リソース
	Resources []Resource
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → Logging → Diagnostics → Recovery → SecurityHeaders → CORS → RateLimit(General)
//
// RealIPはTrustProxyが有効な場合のみ適用し、それ以外はTCP接続元でレート制限する。
// 未定義のルートと未許可のメソッドはどちらもROUTE_NOT_FOUNDを返す。
func NewRouter(deps *RouterDeps) http.Handler {
	rec := deps.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.NotFound(middleware.NotFoundHandler())
	r.MethodNotAllowed(middleware.NotFoundHandler())

	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger, rec))
	r.Use(middleware.NewDiagnosticsMiddleware(deps.Diagnostics))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authn := middleware.NewAuthMiddleware(deps.Verifier, rec)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)

	// --- 稼働確認 ---
	r.Get("/", Root)
	r.Get("/health", Health(deps.DB))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/csrf-token", deps.CSRF.TokenHandler())

		// 認証ルート（認証専用のレート制限を追加）
		r.Route("/api/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Cookieで認証するルートはCSRF検証を行う
			r.Group(func(r chi.Router) {
				r.Use(deps.CSRF.Protect())
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/logout", authHandler.Logout)
			})

			r.With(authn).Get("/me", authHandler.Me)
		})

		// 汎用リソース
		for _, res := range deps.Resources {
			resource.Mount(r, res.Base, res.Routes(authn))
		}
	})

	return r
}
