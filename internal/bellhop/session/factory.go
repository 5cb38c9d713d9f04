package session

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a session store backend.
type Options struct {
	// Backend is one of "memory", "sqlite" or "redis".
	Backend string
	// DatabasePath is the SQLite file path (sqlite backend only).
	DatabasePath string
	// RedisAddr, RedisPassword and RedisDB configure the Redis connection
	// (redis backend only).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// TTL is the Redis key lifetime. Ignored by the other backends, which
	// keep sessions until cleared.
	TTL time.Duration
}

// Open creates the session store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil

	case BackendSQLite, "":
		if opts.DatabasePath == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		return NewSQLiteStore(opts.DatabasePath)

	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		return NewRedisStore(client, opts.TTL), nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}
}
