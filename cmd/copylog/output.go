package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/copylog/copylog/internal/config"
	"github.com/copylog/copylog/internal/lockfile"
	"github.com/copylog/copylog/internal/tracker"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// errorHint suggests a fix for the fatal errors an operator can act on.
func errorHint(err error) string {
	var (
		cfgErr  *config.ConfigError
		authErr *tracker.AuthError
		busyErr *lockfile.BusyError
	)
	switch {
	case errors.As(err, &authErr):
		return fmt.Sprintf("check the username and password for %s, then run 'copylog verify'", authErr.URL)
	case errors.As(err, &busyErr):
		return "wait for the other run to finish; the lock is released when it exits"
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("fix %s and %s in --config-dir, or run 'copylog config show'", config.BaseFile, config.LocalFile)
	}
	return ""
}
