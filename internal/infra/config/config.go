package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию панели.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Amsterdam"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Backend struct {
		BaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://127.0.0.1:8000"`
		Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
	} `envconfig:""`

	AdminTokenFile string `envconfig:"ADMIN_TOKEN_FILE" default:"data/admin_token"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Poll struct {
		Posts     time.Duration `envconfig:"POLL_POSTS_INTERVAL" default:"30s"`
		Accounts  time.Duration `envconfig:"POLL_ACCOUNTS_INTERVAL" default:"30s"`
		Stats     time.Duration `envconfig:"POLL_STATS_INTERVAL" default:"60s"`
		Growth    time.Duration `envconfig:"POLL_GROWTH_INTERVAL" default:"5m"`
		BestTimes time.Duration `envconfig:"POLL_BEST_TIMES_INTERVAL" default:"1h"`
	} `envconfig:""`

	Cache struct {
		SnapshotTTL time.Duration `envconfig:"CACHE_SNAPSHOT_TTL" default:"24h"`
	} `envconfig:""`

	Upload struct {
		MaxFiles int   `envconfig:"UPLOAD_MAX_FILES" default:"4"`
		MaxBytes int64 `envconfig:"UPLOAD_MAX_BYTES" default:"52428800"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
