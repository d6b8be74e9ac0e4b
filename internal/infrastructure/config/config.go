package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// Store selects the persistence backend: mongo or memory.
	Store string `env:"STORE, default=mongo"`

	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	NATS   NATSConfig
	Worker WorkerConfig
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTExpire  time.Duration `env:"JWT_EXPIRE,       default=168h"`
	Issuer     string        `env:"JWT_ISSUER,       default=event-booker-api"`
	Audience   string        `env:"JWT_AUDIENCE,     default=event-booker-users"`
	CookieName string        `env:"AUTH_COOKIE_NAME, default=authToken"`
	BcryptCost int           `env:"BCRYPT_COST,      default=10"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=event_booker"`
	Timeout  time.Duration `env:"STORE_TIMEOUT, default=5s"`
}

type RedisConfig struct {
	Enabled        bool          `env:"REDIS_ENABLED,   default=true"`
	Addr           string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

type NATSConfig struct {
	// URL is optional; notices are logged when it is empty.
	URL string `env:"NATS_URL"`
}

type WorkerConfig struct {
	NotifyWorkers int    `env:"NOTIFY_WORKERS, default=4"`
	SweepSchedule string `env:"SWEEP_SCHEDULE, default=0 0 * * * *"`
}

// Load reads configuration through lookuper using go-envconfig and validates
// it. Pass envconfig.OsLookuper() to read the process environment.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minSecretLength))
	}
	if c.Auth.JWTExpire <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	switch c.Store {
	case "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE must be mongo or memory, got %q", c.Store))
	}
	if c.Mongo.Timeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
