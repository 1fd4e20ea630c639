package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	BasePath    string `envconfig:"API_BASE_PATH" default:"/api/bmdb"`

	PGDSN      string `envconfig:"PG_DSN" required:"true"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"5"`

	Auth struct {
		JWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`
		Audience  string `envconfig:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	HTTP struct {
		CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
		RateLimitRPM       int      `envconfig:"RATE_LIMIT_RPM" default:"100"`
	} `envconfig:""`

	Limits struct {
		WritesPerMinute int `envconfig:"WRITE_LIMIT_PER_MINUTE" default:"30"`
	} `envconfig:""`

	Breaker struct {
		Failures uint32        `envconfig:"DB_BREAKER_FAILURES" default:"5"`
		Timeout  time.Duration `envconfig:"DB_BREAKER_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Queues struct {
		Backend   string `envconfig:"ACTIVITY_QUEUE_BACKEND" default:"none"`
		Activity  string `envconfig:"ACTIVITY_QUEUE_KEY" default:"bmdb_activity"`
		RabbitURL string `envconfig:"RABBITMQ_URL"`
	} `envconfig:""`
}

// Parse читает конфиг из окружения.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load загружает конфиг из окружения и завершает процесс при ошибке.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
