package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/homefinder/listing-service/internal/core/domain"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Media    MediaConfig
	Listings ListingsConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, required"`
	Database string `env:"MONGO_DB,  default=listings"`
}

// RedisConfig configures the listing cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB,   default=0"`
	CacheTTL time.Duration `env:"CACHE_TTL,  default=30s"`
}

type MediaConfig struct {
	Root           string        `env:"MEDIA_ROOT,            required"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT,       default=10s"`
	MaxUploadBytes string        `env:"MAX_UPLOAD_BYTES,      default=20M"`
	PurgeOnDelete  bool          `env:"MEDIA_PURGE_ON_DELETE, default=false"`
	JanitorWorkers int           `env:"JANITOR_WORKERS,       default=4"`
}

type ListingsConfig struct {
	DeletePolicy domain.DeletePolicy `env:"LISTING_DELETE_POLICY, default=open"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for process start-up: any configuration error is fatal.
func MustLoad(ctx context.Context) *Config {
	cfg, err := Load(ctx)
	if err != nil {
		panic(err)
	}
	return cfg
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) validate() error {
	if !c.Listings.DeletePolicy.Valid() {
		return fmt.Errorf("LISTING_DELETE_POLICY must be %q or %q, got %q",
			domain.DeleteOpen, domain.DeleteOwner, c.Listings.DeletePolicy)
	}
	if c.Media.StorageTimeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive")
	}
	return nil
}
