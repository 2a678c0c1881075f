package memory

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Config.Backend.
const (
	BackendNone  = ""
	BackendFile  = "file"
	BackendRedis = "redis"
)

// RedisConfig locates the Redis server backing a RedisStore.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// Config selects and configures the memory backend.
// An empty Backend with a Path set implies the file backend.
type Config struct {
	Backend string      `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path    string      `json:"path,omitempty" yaml:"path,omitempty"`
	Redis   RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// DefaultConfig returns a disabled memory configuration.
func DefaultConfig() Config {
	return Config{Redis: RedisConfig{Prefix: DefaultRedisPrefix}}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Redis.Addr != "" {
		c.Redis.Addr = source.Redis.Addr
	}
	if source.Redis.Password != "" {
		c.Redis.Password = source.Redis.Password
	}
	if source.Redis.DB != 0 {
		c.Redis.DB = source.Redis.DB
	}
	if source.Redis.Prefix != "" {
		c.Redis.Prefix = source.Redis.Prefix
	}
}

// NewStore creates a Store from configuration. A nil Store with a nil error
// means memory is disabled.
func NewStore(cfg *Config) (Store, error) {
	backend := cfg.Backend
	if backend == BackendNone && cfg.Path != "" {
		backend = BackendFile
	}

	switch backend {
	case BackendNone:
		return nil, nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, ErrMissingPath
		}
		return NewFileStore(cfg.Path), nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
