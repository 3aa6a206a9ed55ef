package cache

import (
	"fmt"

	"github.com/seunghun2/daedaesonson/internal/config"
)

// NewFromConfig builds the configured cache client. The "none" driver
// returns a nil client, which disables extraction caching.
func NewFromConfig(cfg config.CacheConfig) (Client, error) {
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "memory", "":
		return NewMemoryClient(cfg.MaxEntries), nil
	case "redis":
		client, err := NewRedisClient(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}
