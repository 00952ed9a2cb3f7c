// Package app はコマンドラインの起動モードごとに依存関係を組み立てて実行する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/auth"
	"github.com/hitoshi/eventhub/internal/config"
	"github.com/hitoshi/eventhub/internal/database"
	"github.com/hitoshi/eventhub/internal/handler"
	"github.com/hitoshi/eventhub/internal/logger"
	"github.com/hitoshi/eventhub/internal/metrics"
	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/repository"
	"github.com/hitoshi/eventhub/internal/security"
	"github.com/hitoshi/eventhub/internal/seed"
	"github.com/hitoshi/eventhub/internal/worker/eventstatus"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// newRevocationStore はREDIS_URLが設定されていればRedis、なければプロセス内の失効ストアを返す。
// 戻り値のclose関数は必ず呼び出すこと。
func newRevocationStore(ctx context.Context, redisURL string) (auth.RevocationStore, func() error, error) {
	if redisURL == "" {
		slog.Warn("REDIS_URL is not set, refresh token revocations are kept in memory")
		return auth.NewMemoryRevocationStore(), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connection established", slog.String("addr", opts.Addr))
	return auth.NewRedisRevocationStore(client), client.Close, nil
}

// newRegistry はプロセス・Goランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// apiDeps はAPIハンドラーの構築に必要な外部リソース。
type apiDeps struct {
	DB          *sql.DB
	Stores      *repository.Stores
	Revocations auth.RevocationStore
	Registry    *prometheus.Registry
}

// newAPIHandler は設定と外部リソースからルーターを組み立てる。
// 戻り値のstop関数はレートリミッターのクリーンアップを停止する。
func newAPIHandler(cfg *config.Config, deps apiDeps) (http.Handler, func(), error) {
	policies, err := access.LoadPolicies(cfg.ResourcePolicyFile)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTExpiresIn,
		RefreshTTL:    cfg.JWTRefreshTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	sanitizer := security.NewTextSanitizer()
	collector := metrics.NewCollector(deps.Registry)

	resources, err := handler.NewResources(policies, deps.Stores, handler.ResourceOptions{
		Hasher:   hasher,
		Sanitize: sanitizer.Sanitize,
		Recorder: collector,
	})
	if err != nil {
		return nil, nil, err
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Window:     cfg.RateLimitWindow,
		GeneralMax: cfg.RateLimitMax,
		AuthMax:    cfg.RateLimitAuthMax,
	}, collector)

	routerDeps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Recorder:          collector,
		Verifier:          tokens,
		RateLimiter:       limiter,
		CSRF:              middleware.CSRF{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Diagnostics:       cfg.Development(),
		HSTS:              cfg.CookieSecure,
		TrustProxy:        cfg.TrustProxy,
		DB:                deps.DB,
		AuthService:       auth.NewService(deps.Stores.Users, tokens, hasher, deps.Revocations, sanitizer.Sanitize),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
		Resources: resources,
	}
	if cfg.MetricsAddr == "" {
		routerDeps.Metrics = metrics.Handler(deps.Registry)
	}

	return handler.NewRouter(routerDeps), limiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
// METRICS_ADDRが設定されている場合は/metricsを別サーバーで公開する。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	revocations, closeRevocations, err := newRevocationStore(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeRevocations()

	reg := newRegistry()
	router, stopLimiter, err := newAPIHandler(cfg, apiDeps{
		DB:          db,
		Stores:      repository.NewPostgresStores(db),
		Revocations: revocations,
		Registry:    reg,
	})
	if err != nil {
		return err
	}
	defer stopLimiter()

	servers := []*http.Server{{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}}
	if cfg.MetricsAddr != "" {
		servers = append(servers, metricsServer(cfg.MetricsAddr, reg))
	}
	return serveUntilDone(ctx, servers...)
}

func metricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           metrics.SetupMetricsRoute(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveUntilDone はサーバー群を起動し、ctxのキャンセルまたはいずれかの異常終了で全体を停止する。
func serveUntilDone(ctx context.Context, servers ...*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("server starting", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server %s shutdown failed: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("servers stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 終了日時を過ぎたイベントの状態更新をEVENT_STATUS_INTERVAL間隔で実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := newRegistry()
	job := eventstatus.NewJob(repository.NewPostgresEventRepo(db), slog.Default(), metrics.NewCollector(reg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		job.Start(gctx, cfg.EventStatusInterval)
		return nil
	})
	if cfg.MetricsAddr != "" {
		srv := metricsServer(cfg.MetricsAddr, reg)
		g.Go(func() error {
			return serveUntilDone(gctx, srv)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// directionはup・down・versionのいずれか。downのstepsが0以下の場合はすべて戻す。
func runMigrate(cfg *config.Config, direction string, steps int, out io.Writer) error {
	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch direction {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "down":
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	case "version":
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はサンプルデータを1トランザクションで投入する。
func runSeed(ctx context.Context, cfg *config.Config, out io.Writer) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := seed.NewSeeder(auth.NewPasswordHasher(cfg.BcryptCost), slog.Default())
	summary, err := seeder.RunInTx(ctx, db)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	if summary.Skipped {
		fmt.Fprintln(out, "seed data already present")
		return nil
	}
	fmt.Fprintf(out, "seeded %d users, %d events, %d registrations\n",
		summary.Users, summary.Events, summary.Registrations)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
