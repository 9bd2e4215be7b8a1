package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string          `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL    string          `env:"DATABASE_URL,required,notEmpty"`
	RedisAddr      string          `env:"REDIS_ADDR"`
	RedisPassword  string          `env:"REDIS_PASSWORD"`
	RedisDB        int             `env:"REDIS_DB" envDefault:"0"`
	VectorCacheTTL time.Duration   `env:"VECTOR_CACHE_TTL" envDefault:"24h"`
	RefreshWindow  time.Duration   `env:"REFRESH_WINDOW" envDefault:"1m"`
	RefreshMax     int             `env:"REFRESH_MAX" envDefault:"3"`
	RankWorkers    int             `env:"RANK_WORKERS" envDefault:"8"`
	LogJSON        bool            `env:"LOG_JSON" envDefault:"true"`
	LogDebug       bool            `env:"LOG_DEBUG" envDefault:"false"`
	Embedding      EmbeddingConfig `envPrefix:"EMBEDDING_"`
}

// EmbeddingConfig agrupa lo necesario para construir el cliente de embeddings.
type EmbeddingConfig struct {
	Provider string        `env:"PROVIDER" envDefault:"openai"`
	APIKey   string        `env:"API_KEY"`
	BaseURL  string        `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model    string        `env:"MODEL" envDefault:"text-embedding-3-small"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEmbeddingConfig carga solo el bloque EMBEDDING_*; sirve a herramientas sin base de datos.
func LoadEmbeddingConfig() (*EmbeddingConfig, error) {
	var cfg EmbeddingConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "EMBEDDING_"}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
