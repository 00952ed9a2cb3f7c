package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret        string
	JWTRefreshSecret string
	JWTExpiresIn     time.Duration
	JWTRefreshTTL    time.Duration
	BcryptCost       int

	// Rate Limit
	RateLimitWindow  time.Duration
	RateLimitMax     int
	RateLimitAuthMax int

	// Redis（空の場合はプロセス内で失効管理する）
	RedisURL string

	// Access policy（空の場合は組み込み定義）
	ResourcePolicyFile string

	// Worker
	EventStatusInterval time.Duration

	// Logging / Metrics
	LogLevel    string
	MetricsAddr string

	// Server
	ServerPort string
	AppEnv     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// リバースプロキシのX-Forwarded-Forを信頼するか
	TrustProxy bool
}

// Development は開発モードかどうかを返す。開発モードでは500応答にスタックトレースを含める。
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.JWTRefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	if cfg.JWTRefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.AppEnv = getEnvString("APP_ENV", "production")
	cfg.JWTExpiresIn = getEnvDuration("JWT_EXPIRES_IN", 15*time.Minute)
	cfg.JWTRefreshTTL = getEnvDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 12)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", 100)
	cfg.RateLimitAuthMax = getEnvInt("RATE_LIMIT_AUTH_MAX", 10)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.ResourcePolicyFile = getEnvString("RESOURCE_POLICY_FILE", "")
	cfg.EventStatusInterval = getEnvDuration("EVENT_STATUS_INTERVAL", time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnvString("METRICS_ADDR", "")
	cfg.CookieSecure = cfg.AppEnv == "production"
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
