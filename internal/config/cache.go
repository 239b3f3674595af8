package config

import "time"

// CacheConfig defines settings for the read-through cache. When Enabled is
// false or no Redis client is available, every read goes to the store. TTL
// bounds how long an entry may be served after the data it mirrors changes
// without an invalidation landing. Prefix namespaces every key.
type CacheConfig struct {
	Enabled bool          `env:"CACHE_ENABLED, default=true"`
	TTL     time.Duration `env:"CACHE_TTL, default=1h"`
	Prefix  string        `env:"CACHE_PREFIX, default=contacts"`
}
