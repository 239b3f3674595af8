package config // package config loads application configuration from environment variables

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all runtime configuration values. Each leaf field maps to an
// environment variable; nested structs group the settings owned by a single
// subsystem and live in their own files (redis.go, cache.go, mail.go, ...).
type Config struct {
	Env      string `env:"APP_ENV, default=dev"`    // application environment (e.g. "dev", "prod")
	Port     string `env:"APP_PORT, default=8000"`  // HTTP port to listen on
	LogLevel string `env:"LOG_LEVEL, default=info"` // zerolog level name

	// StoreDriver selects the persistent store: "mysql" or "memory".
	StoreDriver string `env:"STORE_DRIVER, default=mysql"`

	DB DBConfig

	JWTSecret string `env:"JWT_SECRET, required"` // secret used to sign JWTs
	Tokens    TokenConfig

	BcryptCost    int    `env:"BCRYPT_COST, default=10"`
	DefaultAvatar string `env:"DEFAULT_AVATAR_URL, default=https://www.rpnation.com/gallery/250-x-250-placeholder.30091/full?d=1504582354"`

	HTTP      HTTPConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Storage   StorageConfig
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User string `env:"DB_USER, default=root"`
	Pass string `env:"DB_PASS"` // empty allowed
	Host string `env:"DB_HOST, default=localhost"`
	Port string `env:"DB_PORT, default=3306"`
	Name string `env:"DB_NAME, default=contacts"`
}

// TokenConfig holds the lifetime of every token kind.
type TokenConfig struct {
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL, default=60m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	EmailTTL   time.Duration `env:"EMAIL_TOKEN_TTL, default=168h"`
	ResetTTL   time.Duration `env:"RESET_TOKEN_TTL, default=10m"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper. Tests use a
// MapLookuper so they never touch the real environment.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

// ErrNoPublicURL is returned by ValidateServe outside development when
// APP_BASE_URL is unset.
var ErrNoPublicURL = errors.New("APP_BASE_URL is required outside development")

// ValidateServe checks the settings only the HTTP server depends on.
func (c Config) ValidateServe() error {
	if !c.IsDev() && c.HTTP.PublicURL() == "" {
		return ErrNoPublicURL
	}
	return nil
}
