package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/copylog/copylog/internal/timeparsing"
)

// Key describes a scalar configuration key.
type Key struct {
	Key         string // Full key name (e.g., "from.url")
	Description string // Human-readable description
	EnvVar      string // Corresponding env var name (empty = no env mapping)
	Secret      bool   // If true, value is redacted by `config show`
	Required    bool   // If true, a sync cannot start without it
	Default     string // Default value (empty = no default)
	Validate    func(string) error
}

// Keys defines the scalar configuration keys. The projects map is handled
// separately because its keys are user data.
var Keys = []Key{
	// Source tracker
	{Key: "from.type", Description: "Source tracker type", EnvVar: "COPYLOG_FROM_TYPE", Default: "jira"},
	{Key: "from.url", Description: "Source tracker base URL", EnvVar: "COPYLOG_FROM_URL", Required: true, Validate: validateURL},
	{Key: "from.username", Description: "Source tracker user whose worklogs are copied", EnvVar: "COPYLOG_FROM_USERNAME", Required: true},
	{Key: "from.password", Description: "Source tracker password or API token", EnvVar: "COPYLOG_FROM_PASSWORD", Secret: true},

	// Target tracker
	{Key: "to.type", Description: "Target tracker type", EnvVar: "COPYLOG_TO_TYPE", Default: "jira"},
	{Key: "to.url", Description: "Target tracker base URL", EnvVar: "COPYLOG_TO_URL", Required: true, Validate: validateURL},
	{Key: "to.username", Description: "Target tracker user the copies are logged as", EnvVar: "COPYLOG_TO_USERNAME", Required: true},
	{Key: "to.password", Description: "Target tracker password or API token", EnvVar: "COPYLOG_TO_PASSWORD", Secret: true},

	// Sync behaviour
	{Key: "since", Description: "Only consider issues updated on or after this date", EnvVar: "COPYLOG_SINCE", Required: true, Validate: validateSince},
	{Key: "timezone", Description: "Reference timezone for same-day comparison", EnvVar: "COPYLOG_TIMEZONE", Default: DefaultTimezone, Validate: validateTimezone},
	{Key: "limit", Description: "Maximum source issues scanned per project", EnvVar: "COPYLOG_LIMIT", Default: "150", Validate: validatePositive},
	{Key: "issue_type_id", Description: "Issue type id for created target issues", EnvVar: "COPYLOG_ISSUE_TYPE_ID", Default: "3"},

	// Cache
	{Key: "cache.driver", Description: "Cache backend (sqlite, mysql, memory, none)", EnvVar: "COPYLOG_CACHE_DRIVER", Default: "sqlite", Validate: validateDriver},
	{Key: "cache.path", Description: "SQLite cache file, relative to the config directory", EnvVar: "COPYLOG_CACHE_PATH", Default: ".copylog-cache.db"},
	{Key: "cache.dsn", Description: "MySQL DSN for a shared cache", EnvVar: "COPYLOG_CACHE_DSN", Secret: true},

	// Logging
	{Key: "log.file", Description: "Rotating log file, relative to the config directory", EnvVar: "COPYLOG_LOG_FILE"},
	{Key: "log.level", Description: "Console log level", EnvVar: "COPYLOG_LOG_LEVEL", Default: "info", Validate: validateLogLevel},

	// Reports
	{Key: "report.out_dir", Description: "Directory CSV reports are written to", EnvVar: "COPYLOG_REPORT_OUT_DIR", Default: "reports"},
	{Key: "report.jobs_file", Description: "TOML file listing report jobs", EnvVar: "COPYLOG_REPORT_JOBS_FILE", Default: "reports.toml"},
}

// keyMap is a lookup table built from Keys.
var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Key] = &Keys[i]
	}
}

// LookupKey returns the Key definition if key is known.
// Returns nil if the key is not recognized.
func LookupKey(key string) *Key {
	return keyMap[key]
}

// ValidateKey checks whether key is known and the value is valid.
// Returns nil if valid, or an error describing the problem.
func ValidateKey(key, value string) error {
	k := keyMap[key]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, k := range Keys {
			known = append(known, k.Key)
		}
		return fmt.Errorf("unknown key %q; valid keys: %s", key, strings.Join(known, ", "))
	}

	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	return nil
}

// EnvMap returns a mapping from key to environment variable name.
func EnvMap() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if k.EnvVar != "" {
			m[k.Key] = k.EnvVar
		}
	}
	return m
}

// Validation helpers

func validateURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got %q", value)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", value)
	}
	return nil
}

func validateSince(value string) error {
	_, err := timeparsing.SinceOperand(value, time.Now())
	return err
}

func validateTimezone(value string) error {
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("unknown timezone %q", value)
	}
	return nil
}

func validatePositive(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	if n < 1 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

// drivers lists the cache backends, sorted.
var drivers = []string{"memory", "mysql", "none", "sqlite"}

func validateDriver(value string) error {
	i := sort.SearchStrings(drivers, value)
	if i < len(drivers) && drivers[i] == value {
		return nil
	}
	return fmt.Errorf("must be one of: %s; got %q", strings.Join(drivers, ", "), value)
}

func validateLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of: debug, info, warn, error; got %q", value)
	}
}
