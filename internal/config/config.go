package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はサーバー（serve / worker / migrate）の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Session
	SessionCookieName      string
	SessionDays            int
	SessionResolveAttempts int
	SessionResolveBackoff  time.Duration
	SessionCleanupInterval time.Duration

	// Auth
	BcryptCost int // 0の場合はbcrypt.DefaultCost

	// Messages
	MessagePageSize int

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitSend    int

	// Server
	AppEnv     string
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// SessionMaxAge はセッションの有効期間を返す。
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionDays) * 24 * time.Hour
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "session")
	cfg.SessionDays = getEnvPositiveInt("SESSION_DAYS", 7)
	cfg.SessionResolveAttempts = getEnvPositiveInt("SESSION_RESOLVE_ATTEMPTS", 3)
	cfg.SessionResolveBackoff = getEnvDuration("SESSION_RESOLVE_BACKOFF", 200*time.Millisecond)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 0)
	cfg.MessagePageSize = getEnvPositiveInt("MESSAGE_PAGE_SIZE", 200)
	cfg.RateLimitGeneral = getEnvPositiveInt("RATE_LIMIT_GENERAL", 600)
	cfg.RateLimitSend = getEnvPositiveInt("RATE_LIMIT_SEND", 60)
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://") || cfg.IsProduction()
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// ClientConfig は watch サブコマンド（APIクライアント）の設定を保持する。
type ClientConfig struct {
	ServerURL      string
	Login          string
	Password       string
	RequestTimeout time.Duration

	PollForeground time.Duration
	PollBackground time.Duration
	PollIdle       time.Duration
	IdleThreshold  int
}

// LoadClient は環境変数からClientConfigを読み込む。
// 値はフラグで上書きされる前提のため、必須チェックは行わない。
func LoadClient() *ClientConfig {
	return &ClientConfig{
		ServerURL:      getEnvString("CHATLINE_SERVER_URL", "http://localhost:8080"),
		Login:          os.Getenv("CHATLINE_LOGIN"),
		Password:       os.Getenv("CHATLINE_PASSWORD"),
		RequestTimeout: getEnvDuration("CHATLINE_REQUEST_TIMEOUT", 10*time.Second),
		PollForeground: getEnvDuration("CHATLINE_POLL_FOREGROUND", 2*time.Second),
		PollBackground: getEnvDuration("CHATLINE_POLL_BACKGROUND", 15*time.Second),
		PollIdle:       getEnvDuration("CHATLINE_POLL_IDLE", 10*time.Second),
		IdleThreshold:  getEnvPositiveInt("CHATLINE_IDLE_THRESHOLD", 10),
	}
}

// LoadDotEnv はカレントディレクトリの .env を環境変数に読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
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

// getEnvPositiveInt は0以下の値をデフォルト値に置き換える。
func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i > 0 {
		return i
	}
	return defaultVal
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
