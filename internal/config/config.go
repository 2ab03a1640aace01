package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"Spotmap-App/internal/domain/model"
)

// Config アプリケーション設定
type Config struct {
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseDBPassword string // 設定時のみPostgreSQL直接接続で投稿を取得する

	Port     string
	LogLevel string

	PinCacheTTL       time.Duration
	RealtimeDebounce  time.Duration
	FetchTriggerDelay time.Duration
	SessionIdleTTL    time.Duration
}

// Load .envと環境変数から設定を読み込む
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := &Config{
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseDBPassword: os.Getenv("SUPABASE_DB_PASSWORD"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PinCacheTTL, err = getDuration("PIN_CACHE_TTL", model.PinCacheTTL); err != nil {
		return nil, err
	}
	if cfg.RealtimeDebounce, err = getDuration("REALTIME_DEBOUNCE", model.RealtimeDebounce); err != nil {
		return nil, err
	}
	if cfg.FetchTriggerDelay, err = getDuration("FETCH_TRIGGER_DELAY", model.CoalesceWindow); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", model.SessionIdleTTL); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 必須項目のチェック
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL環境変数が設定されていません")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY環境変数が設定されていません")
	}
	return nil
}

// UsePostgresActivity 投稿の取得にPostgreSQL直接接続を使うか
func (c *Config) UsePostgresActivity() bool {
	return c.SupabaseDBPassword != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%sの形式が正しくありません: %w", key, err)
	}
	return d, nil
}
