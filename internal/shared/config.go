package shared

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9100"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	RedisPass string `env:"REDIS_PASSWORD"`

	StoreBase string `env:"STORE_BASE_URL" envDefault:"http://localhost:54321/rest/v1"`
	StoreKey  string `env:"STORE_API_KEY"`
	StoreRPS  int    `env:"STORE_RPS" envDefault:"5"`

	JWTSecret string `env:"JWT_SECRET"`

	// Rotation tuning; the semantics are fixed, the constants are not.
	RotationEvery   time.Duration `env:"ROTATION_INTERVAL" envDefault:"60s"`
	WindowSize      int           `env:"WINDOW_SIZE" envDefault:"3"`
	StaticThreshold int           `env:"STATIC_THRESHOLD" envDefault:"6"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"15m"`
}

func Load() Config {
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal().Err(err).Msg("config parse failed")
	}
	if c.StoreKey == "" {
		log.Warn().Msg("STORE_API_KEY is empty")
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; all requests will be treated as signed out")
	}
	return c
}
