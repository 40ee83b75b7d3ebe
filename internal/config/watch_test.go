package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFlagsConfigChanges(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, BaseFile, baseJSON)

	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	assert.False(t, w.Changed())

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, w.Changed())

	writeConfig(t, dir, LocalFile, `{"since": "2024-03-01"}`)
	require.Eventually(t, w.Changed, 2*time.Second, 20*time.Millisecond)

	// Changed resets after it is read.
	assert.False(t, w.Changed())
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
