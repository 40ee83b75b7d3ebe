// Package cache provides the key/value store copylog uses to avoid
// repeating tracker queries within and between runs.
//
// A cache is an optimization only. Every caller must behave the same
// when it is backed by Nop.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

// NoExpiry keeps an entry until it is overwritten or deleted.
const NoExpiry time.Duration = 0

// Cache is a TTL key/value store. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Contains reports whether key holds an unexpired value.
	Contains(ctx context.Context, key string) bool

	// Fetch returns the value stored under key. Expired entries and
	// backend failures are reported as a miss.
	Fetch(ctx context.Context, key string) ([]byte, bool)

	// Save stores value under key for ttl. A ttl of NoExpiry never expires.
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Purger is implemented by persistent backends.
type Purger interface {
	// Purge removes expired entries.
	Purge(ctx context.Context) (int64, error)
	// Clear removes every entry.
	Clear(ctx context.Context) (int64, error)
}

var _ Purger = (*SQLStore)(nil)

// GetJSON decodes the value stored under key into v. It returns false on a
// miss or when the stored value no longer decodes.
func GetJSON(ctx context.Context, c Cache, key string, v interface{}) bool {
	data, ok := c.Fetch(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Save(ctx, key, data, ttl)
}

// Hash returns the hex md5 digest of s, used to fold free text into keys.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Nop is a cache that stores nothing.
type Nop struct{}

func (Nop) Contains(context.Context, string) bool                     { return false }
func (Nop) Fetch(context.Context, string) ([]byte, bool)              { return nil, false }
func (Nop) Save(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error                      { return nil }
func (Nop) Close() error                                              { return nil }
