package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	m := NewMemory(WithClock(clock.Now))

	require.NoError(t, m.Save(ctx, "AIL_worklogs", []byte("[]"), time.Minute))
	assert.True(t, m.Contains(ctx, "AIL_worklogs"))

	clock.Advance(59 * time.Second)
	got, ok := m.Fetch(ctx, "AIL_worklogs")
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), got)

	clock.Advance(time.Second)
	assert.False(t, m.Contains(ctx, "AIL_worklogs"), "entry should expire at its ttl")
	assert.Equal(t, 0, m.Len(), "expired entry should be dropped on read")
}

func TestMemoryNoExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	m := NewMemory(WithClock(clock.Now))

	require.NoError(t, m.Save(ctx, "k", []byte("v"), NoExpiry))
	clock.Advance(24 * 365 * time.Hour)
	assert.True(t, m.Contains(ctx, "k"))
}

func TestMemoryOverwriteAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Save(ctx, "k", []byte("one"), time.Hour))
	require.NoError(t, m.Save(ctx, "k", []byte("two"), time.Hour))
	got, ok := m.Fetch(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "two", string(got))

	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "missing"))
	assert.False(t, m.Contains(ctx, "k"))
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	value := []byte("abc")
	require.NoError(t, m.Save(ctx, "k", value, NoExpiry))
	value[0] = 'x'

	got, _ := m.Fetch(ctx, "k")
	assert.Equal(t, "abc", string(got))
	got[1] = 'y'
	again, _ := m.Fetch(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type entry struct {
		Key string `json:"key"`
	}
	require.NoError(t, PutJSON(ctx, m, "issue", entry{Key: "AIL-7"}, time.Minute))

	var got entry
	require.True(t, GetJSON(ctx, m, "issue", &got))
	assert.Equal(t, "AIL-7", got.Key)

	require.NoError(t, m.Save(ctx, "broken", []byte("{"), time.Minute))
	assert.False(t, GetJSON(ctx, m, "broken", &got), "undecodable value should read as a miss")
	assert.False(t, GetJSON(ctx, m, "missing", &got))
}

func TestNopStoresNothing(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	require.NoError(t, c.Save(ctx, "k", []byte("v"), time.Hour))
	assert.False(t, c.Contains(ctx, "k"))
	_, ok := c.Fetch(ctx, "k")
	assert.False(t, ok)
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash("[SS-12] Fix login"), Hash("[SS-12] Fix login"))
	assert.NotEqual(t, Hash("[SS-12] Fix login"), Hash("[SS-13] Fix login"))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Hash(""))
	assert.Len(t, Hash("anything"), 32)
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, Options{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = Open(ctx, Options{Driver: DriverNone}, nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, c)

	_, err = Open(ctx, Options{Driver: DriverMySQL}, nil)
	assert.Error(t, err, "mysql without dsn should fail")

	_, err = Open(ctx, Options{Driver: "redis"}, nil)
	assert.ErrorContains(t, err, "unknown cache driver")
}
