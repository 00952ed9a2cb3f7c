package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/model"
)

// Pinger はデータベースの疎通確認に使う。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Root は稼働確認用のプレーンテキストを返す。
// GET /
func Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Event Management API is running!"))
}

// Health はデータベースへの疎通を確認するハンドラーを返す。
// GET /health
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			middleware.WriteError(w, r, model.NewUnavailableError("Database is unreachable."))
			return
		}
		middleware.WriteSuccess(w, http.StatusOK, "ok", map[string]string{"database": "up"})
	}
}
