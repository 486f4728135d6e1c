package storage

import "fmt"

// Supported driver names for Open
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Options carries the connection settings for the configured driver
type Options struct {
	SQLitePath  string
	RedisURL    string
	DatabaseURL string
}

// Open constructs the Adapter for the named driver. The returned adapter may
// also implement io.Closer; callers should close it on shutdown.
func Open(driver string, opts Options) (Adapter, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryAdapter(), nil
	case DriverSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		return NewSQLiteAdapter(opts.SQLitePath)
	case DriverRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis driver requires a redis URL")
		}
		return NewRedisAdapter(opts.RedisURL)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres driver requires a database URL")
		}
		return NewPostgresAdapter(opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
