// Package lockfile guards a working directory against concurrent copylog
// runs with an advisory file lock.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileName is the lock file created next to the configuration.
const FileName = ".copylog.lock"

var errLocked = errors.New("lock already held by another process")

// Info describes the process holding the lock.
type Info struct {
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// BusyError is returned by Acquire when another process holds the lock.
type BusyError struct {
	Path   string
	Holder *Info // nil if the lock file could not be read
}

func (e *BusyError) Error() string {
	if e.Holder == nil {
		return fmt.Sprintf("another copylog run holds %s", e.Path)
	}
	return fmt.Sprintf("another copylog run holds %s (pid %d, %s since %s)",
		e.Path, e.Holder.PID, e.Holder.Command, e.Holder.StartedAt.Format(time.RFC3339))
}

func (e *BusyError) Unwrap() error { return errLocked }

// Lock is a held run lock.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path without blocking and records info in it.
// The lock is released by Release or when the process exits.
func Acquire(path string, info Info) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- path is the configured working dir
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errLocked) {
			holder, _ := ReadInfo(path)
			return nil, &BusyError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	if err := writeInfo(f, info); err != nil {
		_ = flockUnlock(f)
		_ = f.Close()
		return nil, err
	}

	return &Lock{path: path, f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	_ = f.Truncate(0)
	unlockErr := flockUnlock(f)
	closeErr := f.Close()
	return errors.Join(unlockErr, closeErr)
}

// ReadInfo reads the holder recorded in a lock file.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the configured working dir
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &info, nil
}

// IsBusy reports whether err means another process holds the lock.
func IsBusy(err error) bool {
	return errors.Is(err, errLocked)
}

func writeInfo(f *os.File, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode lock info: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return f.Sync()
}
