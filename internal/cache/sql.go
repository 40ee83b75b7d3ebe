package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	// Import MySQL driver for shared cache servers
	_ "github.com/go-sql-driver/mysql"
	// Import SQLite driver and embedded engine for the local cache file
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	// connectMaxElapsed bounds how long Open waits for a cache server
	// that is still starting.
	connectMaxElapsed = 30 * time.Second
)

// dialect holds the statements that differ between backends.
type dialect struct {
	driver string
	schema string
	upsert string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver: "sqlite3",
		schema: `CREATE TABLE IF NOT EXISTS cache_entries (
			cache_key  TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		upsert: `INSERT INTO cache_entries (cache_key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
	},
	DriverMySQL: {
		driver: "mysql",
		schema: `CREATE TABLE IF NOT EXISTS cache_entries (
			cache_key  VARCHAR(255) NOT NULL PRIMARY KEY,
			value      LONGBLOB NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
		upsert: `INSERT INTO cache_entries (cache_key, value, expires_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)`,
	},
}

// SQLStore persists cache entries in a SQL table so they survive between
// runs. expires_at holds unix seconds, 0 for entries that never expire.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) a cache file at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(dialects[DriverSQLite].driver, fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return newSQLStore(ctx, db, dialects[DriverSQLite], logger)
}

// OpenMySQL connects to a shared cache database. dsn uses the
// go-sql-driver format, e.g. "user:pass@tcp(host:3306)/copylog".
// Transient connection errors are retried with exponential backoff.
func OpenMySQL(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(dialects[DriverMySQL].driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql cache: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed
	err = backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect mysql cache: %w", err)
	}
	return newSQLStore(ctx, db, dialects[DriverMySQL], logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger *slog.Logger) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, dialect: d, logger: logger, now: time.Now}, nil
}

// isRetryableError returns true for connection errors a starting server
// produces before it accepts clients.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"invalid connection",
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"gone away",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}

func (s *SQLStore) Contains(ctx context.Context, key string) bool {
	_, ok := s.Fetch(ctx, key)
	return ok
}

func (s *SQLStore) Fetch(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE cache_key = ?", key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if expiresAt != 0 && expiresAt <= s.now().Unix() {
		return nil, false
	}
	return value, true
}

func (s *SQLStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, expiresAt); err != nil {
		return fmt.Errorf("save cache entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at != 0 AND expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry and returns how many were dropped.
func (s *SQLStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries")
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
