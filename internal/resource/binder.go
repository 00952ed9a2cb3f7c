package resource

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/middleware"
)

// Endpoint はルートに結び付けられるリソースのHTTPハンドラー群。
// *Dispatcher[T] が実装する。
type Endpoint interface {
	Config() access.ResourceConfig
	HasOwnership() bool
	HandleList(w http.ResponseWriter, r *http.Request)
	HandleGet(w http.ResponseWriter, r *http.Request)
	HandleCreate(w http.ResponseWriter, r *http.Request)
	HandleUpdate(w http.ResponseWriter, r *http.Request)
	HandleDelete(w http.ResponseWriter, r *http.Request)
}

// Route は1つのHTTPルート定義。Middlewaresは登録順に適用される。
type Route struct {
	Method      string
	Pattern     string
	Middlewares []func(http.Handler) http.Handler
	Handler     http.HandlerFunc
}

// Bind はエンドポイントの認可設定からルート定義を生成する。
// 読み取りはPublicReadなら認証なし、それ以外は認証と読み取りロールの検査を挟む。
// 作成・更新・削除は対応するロール集合が設定されている場合のみ生成する。
// OwnerFieldが設定されているのに所有判定がない場合はpanicする。
func Bind(ep Endpoint, authn func(http.Handler) http.Handler) []Route {
	cfg := ep.Config()
	if cfg.OwnerField != "" && !ep.HasOwnership() {
		panic(fmt.Sprintf("resource %q declares owner field %q but has no ownership check", cfg.Name, cfg.OwnerField))
	}

	guarded := func(roles access.RoleSet) []func(http.Handler) http.Handler {
		return []func(http.Handler) http.Handler{authn, middleware.RequireRole(roles)}
	}

	var readChain []func(http.Handler) http.Handler
	if !cfg.PublicRead {
		readChain = guarded(cfg.EffectiveReadRoles())
	}

	routes := []Route{
		{Method: http.MethodGet, Pattern: "/", Middlewares: readChain, Handler: ep.HandleList},
		{Method: http.MethodGet, Pattern: "/{id}", Middlewares: readChain, Handler: ep.HandleGet},
	}
	if cfg.CreateRoles.Configured() {
		routes = append(routes, Route{Method: http.MethodPost, Pattern: "/", Middlewares: guarded(cfg.CreateRoles), Handler: ep.HandleCreate})
	}
	if cfg.UpdateRoles.Configured() {
		routes = append(routes, Route{Method: http.MethodPut, Pattern: "/{id}", Middlewares: guarded(cfg.UpdateRoles), Handler: ep.HandleUpdate})
	}
	if cfg.DeleteRoles.Configured() {
		routes = append(routes, Route{Method: http.MethodDelete, Pattern: "/{id}", Middlewares: guarded(cfg.DeleteRoles), Handler: ep.HandleDelete})
	}
	return routes
}

// Mount はルート定義をbase配下に登録する。
func Mount(r chi.Router, base string, routes []Route) {
	r.Route(base, func(sub chi.Router) {
		for _, rt := range routes {
			sub.With(rt.Middlewares...).Method(rt.Method, rt.Pattern, rt.Handler)
		}
	})
}
