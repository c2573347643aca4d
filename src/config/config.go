package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret 開発用の署名鍵。serveでは使用できない
const DefaultJWTSecret = "change-me-in-production"

// ErrInsecureJWTSecret 署名鍵が未設定またはデフォルトのまま
var ErrInsecureJWTSecret = errors.New("AUTH_JWT_SECRET must be set to a non-default value")

// Config アプリケーション設定
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	S3        S3Config
	GraphQL   GraphQLConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Notes     NotesConfig
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port string
}

// LogConfig ログ設定
type LogConfig struct {
	Level          string
	Directory      string
	UploadEnabled  bool
	UploadMaxAge   time.Duration
	UploadInterval time.Duration
	// UploadPrefix ログを退避するキーのプレフィックス（メモの画像とは別領域）
	UploadPrefix string
}

// S3Config S3設定
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
	KeyPrefix       string
	PresignTTL      time.Duration
}

// GraphQLConfig GraphQL APIの設定
type GraphQLConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// AuthConfig セッション検証の設定
type AuthConfig struct {
	JWTSecret    string
	CookieName   string
	SignInURL    string
	SignOutURL   string
	CookieSecure bool
}

// RateLimitConfig レート制限の設定
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int
}

// NotesConfig メモ操作の動作設定
type NotesConfig struct {
	CompensateOrphanUpload bool
	RollbackFailedDelete   bool
	MaxImageBytes          int64
}

// LoadDotEnv .envファイルがあれば読み込む（存在しなくてもエラーにしない）
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadConfig 環境変数から設定を読み込み
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Log: LogConfig{
			Level:          getEnv("LOG_LEVEL", "info"),
			Directory:      getEnv("LOG_DIRECTORY", "logs"),
			UploadEnabled:  getBoolEnv("LOG_UPLOAD_ENABLED", false),
			UploadMaxAge:   getDurationEnv("LOG_UPLOAD_MAX_AGE", 24*time.Hour),
			UploadInterval: getDurationEnv("LOG_UPLOAD_INTERVAL", 1*time.Hour),
			UploadPrefix:   getEnv("LOG_UPLOAD_PREFIX", "logs/"),
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", "http://localhost:9000"), // MinIO用のデフォルト
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "notes-app-storage"),
			UseSSL:          getBoolEnv("S3_USE_SSL", false),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "public/"),
			PresignTTL:      getDurationEnv("S3_PRESIGN_TTL", 15*time.Minute),
		},
		GraphQL: GraphQLConfig{
			Endpoint: getEnv("GRAPHQL_ENDPOINT", "http://localhost:20002/graphql"),
			APIKey:   getEnv("GRAPHQL_API_KEY", ""),
			Timeout:  getDurationEnv("GRAPHQL_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("AUTH_JWT_SECRET", DefaultJWTSecret),
			CookieName:   getEnv("AUTH_COOKIE_NAME", "notes_session"),
			SignInURL:    getEnv("AUTH_SIGN_IN_URL", ""),
			SignOutURL:   getEnv("AUTH_SIGN_OUT_URL", "/"),
			CookieSecure: getBoolEnv("AUTH_COOKIE_SECURE", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolEnv("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getIntEnv("RATE_LIMIT_RPS", 10),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 20),
		},
		Notes: NotesConfig{
			CompensateOrphanUpload: getBoolEnv("NOTES_COMPENSATE_ORPHAN_UPLOAD", false),
			RollbackFailedDelete:   getBoolEnv("NOTES_ROLLBACK_FAILED_DELETE", true),
			MaxImageBytes:          int64(getIntEnv("NOTES_MAX_IMAGE_BYTES", 10<<20)),
		},
	}
}

// ValidateServe サーバー起動前に設定を検証
func (c *Config) ValidateServe() error {
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DefaultJWTSecret {
		return ErrInsecureJWTSecret
	}
	// メモの画像キーは"/"を含まないので、"/"で終わる別のプレフィックスなら重ならない
	logPrefix, notePrefix := c.Log.UploadPrefix, c.S3.KeyPrefix
	if !strings.HasSuffix(logPrefix, "/") ||
		(notePrefix != "" && (strings.HasPrefix(logPrefix, notePrefix) || strings.HasPrefix(notePrefix, logPrefix))) {
		return fmt.Errorf("LOG_UPLOAD_PREFIX %q must end with \"/\" and not overlap S3_KEY_PREFIX %q", logPrefix, notePrefix)
	}
	return nil
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv 環境変数をboolで取得
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv 環境変数をintで取得
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv 環境変数をtime.Durationで取得
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
