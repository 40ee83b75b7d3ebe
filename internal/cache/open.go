package cache

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	DriverMemory = "memory"
	DriverNone   = "none"

	// DefaultPath is the sqlite cache file used when none is configured.
	DefaultPath = ".copylog-cache.db"
)

// Options selects and configures a cache backend.
type Options struct {
	Driver string // memory (default), none, sqlite or mysql
	Path   string // sqlite file
	DSN    string // mysql data source name
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Cache, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverNone:
		return Nop{}, nil
	case DriverSQLite:
		path := opts.Path
		if path == "" {
			path = DefaultPath
		}
		return OpenSQLite(ctx, path, logger)
	case DriverMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("cache driver mysql requires a dsn")
		}
		return OpenMySQL(ctx, opts.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown cache driver %q (available: memory, none, sqlite, mysql)", opts.Driver)
	}
}
