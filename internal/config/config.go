// Package config loads copylog's configuration: config.json merged with an
// optional config.local.json, then COPYLOG_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo for the reference timezone

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// BaseFile is the shared configuration file.
	BaseFile = "config.json"
	// LocalFile holds per-machine overrides such as passwords. Its
	// top-level keys replace those of BaseFile.
	LocalFile = "config.local.json"
	// DefaultTimezone is the reference zone for same-day comparison.
	DefaultTimezone = "Asia/Manila"
)

// redacted replaces secret values in Redacted output.
const redacted = "********"

// ConfigError reports a missing, unreadable or invalid configuration.
// It is fatal: no sync starts.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Endpoint holds the connection settings for one tracker.
type Endpoint struct {
	Type     string `mapstructure:"type" yaml:"type"`
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file,omitempty"`
	Level string `mapstructure:"level" yaml:"level"`
}

// ReportConfig locates report jobs and output.
type ReportConfig struct {
	OutDir   string `mapstructure:"out_dir" yaml:"out_dir"`
	JobsFile string `mapstructure:"jobs_file" yaml:"jobs_file"`
}

// Config is the validated configuration of a copylog run.
type Config struct {
	From        Endpoint          `mapstructure:"from" yaml:"from"`
	To          Endpoint          `mapstructure:"to" yaml:"to"`
	Projects    map[string]string `mapstructure:"projects" yaml:"projects"`
	Since       string            `mapstructure:"since" yaml:"since"`
	Timezone    string            `mapstructure:"timezone" yaml:"timezone"`
	Limit       int               `mapstructure:"limit" yaml:"limit"`
	IssueTypeID string            `mapstructure:"issue_type_id" yaml:"issue_type_id"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Report      ReportConfig      `mapstructure:"report" yaml:"report"`

	// Dir is the directory the files were read from.
	Dir string `mapstructure:"-" yaml:"-"`
	// Files lists the files that were found, base first.
	Files []string `mapstructure:"-" yaml:"-"`
}

// Load reads BaseFile and LocalFile from dir. At least one must exist.
// The result is not validated; call Validate before a sync.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	merged := make(map[string]any)
	var files []string
	for _, name := range []string{BaseFile, LocalFile} {
		path := filepath.Join(dir, name)
		settings, err := readFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		// Shallow merge: a local "from" replaces the whole base "from".
		for k, val := range settings {
			merged[k] = val
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("neither %s nor %s exists in %s", BaseFile, LocalFile, dir)}
	}

	v := newViper()
	if err := v.MergeConfigMap(merged); err != nil {
		return nil, &ConfigError{Path: files[len(files)-1], Err: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return nil, &ConfigError{Path: files[len(files)-1], Err: err}
	}

	cfg.Dir = dir
	cfg.Files = files
	cfg.normalize()
	return &cfg, nil
}

// readFile parses one JSON file into a settings map.
func readFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return v.AllSettings(), nil
}

// newViper returns a viper instance with defaults and env bindings from Keys.
func newViper() *viper.Viper {
	v := viper.New()
	for _, k := range Keys {
		if k.Default != "" {
			v.SetDefault(k.Key, k.Default)
		}
		if k.EnvVar != "" {
			_ = v.BindEnv(k.Key, k.EnvVar)
		}
	}
	return v
}

// normalize upper-cases project keys, which viper folds to lower case.
func (c *Config) normalize() {
	projects := make(map[string]string, len(c.Projects))
	for src, dst := range c.Projects {
		projects[strings.ToUpper(strings.TrimSpace(src))] = dst
	}
	c.Projects = projects
}

// stringFields maps scalar keys to the fields holding them.
func (c *Config) stringFields() map[string]*string {
	return map[string]*string{
		"from.type":        &c.From.Type,
		"from.url":         &c.From.URL,
		"from.username":    &c.From.Username,
		"from.password":    &c.From.Password,
		"to.type":          &c.To.Type,
		"to.url":           &c.To.URL,
		"to.username":      &c.To.Username,
		"to.password":      &c.To.Password,
		"since":            &c.Since,
		"timezone":         &c.Timezone,
		"issue_type_id":    &c.IssueTypeID,
		"cache.driver":     &c.Cache.Driver,
		"cache.path":       &c.Cache.Path,
		"cache.dsn":        &c.Cache.DSN,
		"log.file":         &c.Log.File,
		"log.level":        &c.Log.Level,
		"report.out_dir":   &c.Report.OutDir,
		"report.jobs_file": &c.Report.JobsFile,
	}
}

// Values returns every scalar key with its string value.
func (c *Config) Values() map[string]string {
	values := make(map[string]string, len(Keys))
	for key, field := range c.stringFields() {
		values[key] = *field
	}
	values["limit"] = strconv.Itoa(c.Limit)
	return values
}

// Validate checks required keys and value formats. Passwords are checked
// separately by FillPasswords so they can be prompted for.
func (c *Config) Validate() error {
	values := c.Values()
	var problems []string
	for _, k := range Keys {
		val := values[k.Key]
		if val == "" {
			if k.Required {
				problems = append(problems, fmt.Sprintf("%s is required", k.Key))
			}
			continue
		}
		if err := ValidateKey(k.Key, val); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(c.Projects) == 0 {
		problems = append(problems, "projects must map at least one source project")
	}
	if c.Cache.Driver == "mysql" && c.Cache.DSN == "" {
		problems = append(problems, "cache.dsn is required for the mysql driver")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return &ConfigError{Path: c.path(), Err: errors.New(strings.Join(problems, "; "))}
	}
	return nil
}

// PasswordPrompt asks the operator for an endpoint password. side is
// "from" or "to".
type PasswordPrompt func(side string, ep Endpoint) (string, error)

// FillPasswords asks prompt for any missing endpoint password. A nil
// prompt turns a missing password into a ConfigError.
func (c *Config) FillPasswords(prompt PasswordPrompt) error {
	sides := []struct {
		name string
		ep   *Endpoint
	}{
		{"from", &c.From},
		{"to", &c.To},
	}
	for _, side := range sides {
		if side.ep.Password != "" {
			continue
		}
		key := side.name + ".password"
		if prompt == nil {
			return &ConfigError{Path: c.path(), Err: fmt.Errorf("%s is required (set it in %s or %s)", key, LocalFile, LookupKey(key).EnvVar)}
		}
		pw, err := prompt(side.name, *side.ep)
		if err != nil {
			return &ConfigError{Path: c.path(), Err: fmt.Errorf("%s: %w", key, err)}
		}
		if pw == "" {
			return &ConfigError{Path: c.path(), Err: fmt.Errorf("%s is required", key)}
		}
		side.ep.Password = pw
	}
	return nil
}

// Location returns the reference timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &ConfigError{Path: c.path(), Err: fmt.Errorf("timezone: %w", err)}
	}
	return loc, nil
}

// ResolvePath interprets p relative to the config directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Redacted returns a copy with secret values masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Projects = make(map[string]string, len(c.Projects))
	for k, v := range c.Projects {
		out.Projects[k] = v
	}
	fields := out.stringFields()
	for _, k := range Keys {
		if f := fields[k.Key]; k.Secret && f != nil && *f != "" {
			*f = redacted
		}
	}
	return &out
}

func (c *Config) path() string {
	if len(c.Files) == 0 {
		return ""
	}
	return c.Files[len(c.Files)-1]
}
