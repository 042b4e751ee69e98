package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/taskboard/internal/filelock"
)

const (
	fileMode = 0o600
	dirMode  = 0o750
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no config found (run 'taskboard init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config is the client configuration.
type Config struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Auth    AuthConfig   `yaml:"auth,omitempty"`
	Board   string       `yaml:"board,omitempty"`
	Feed    FeedConfig   `yaml:"feed,omitempty"`
	View    ViewConfig   `yaml:"view,omitempty"`
	TUI     TUIConfig    `yaml:"tui,omitempty"`

	// path is the absolute path to the config file (not serialized).
	path string `yaml:"-"`
}

// ServerConfig locates the API.
type ServerConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout,omitempty"`
}

// UnmarshalYAML accepts either a plain URL string (v1: "server: http://...")
// or a mapping.
func (s *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.URL = value.Value
		return nil
	}
	type plain ServerConfig
	return value.Decode((*plain)(s))
}

// AuthConfig holds the bearer token.
type AuthConfig struct {
	Token string `yaml:"token,omitempty"`
}

// FeedConfig overrides the public base of calendar feed URLs.
type FeedConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
}

// ViewConfig holds default filters.
type ViewConfig struct {
	ShowCompleted bool   `yaml:"show_completed,omitempty"`
	Timezone      string `yaml:"timezone,omitempty"`
	Assignee      string `yaml:"assignee,omitempty"`
}

// TUIConfig holds TUI-specific display settings.
type TUIConfig struct {
	TitleLines      int    `yaml:"title_lines,omitempty"`
	RefreshInterval string `yaml:"refresh_interval,omitempty"`
}

// NewDefault creates a Config pointing at serverURL.
func NewDefault(serverURL string) *Config {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Config{
		Version: CurrentVersion,
		Server:  ServerConfig{URL: serverURL, Timeout: DefaultTimeout.String()},
		TUI: TUIConfig{
			TitleLines:      DefaultTitleLines,
			RefreshInterval: DefaultRefreshInterval.String(),
		},
	}
}

// DefaultPath returns $TASKBOARD_CONFIG, or ~/.config/taskboard/config.yml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return filepath.Abs(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "taskboard", ConfigFileName), nil
}

// Path returns the absolute path of the config file.
func (c *Config) Path() string { return c.path }

// SetPath sets where Save writes.
func (c *Config) SetPath(path string) { c.path = path }

// Timeout returns the per-request timeout, or DefaultTimeout when unset.
func (c *Config) Timeout() time.Duration {
	return durationOr(c.Server.Timeout, DefaultTimeout)
}

// RefreshInterval returns the TUI refetch interval. Zero disables it.
func (c *Config) RefreshInterval() time.Duration {
	return durationOr(c.TUI.RefreshInterval, DefaultRefreshInterval)
}

// TitleLines returns the configured number of title lines for TUI cards.
// Returns DefaultTitleLines if the value is unset (zero).
func (c *Config) TitleLines() int {
	if c.TUI.TitleLines == 0 {
		return DefaultTitleLines
	}
	return c.TUI.TitleLines
}

// FeedBaseURL returns the base of calendar feed URLs, defaulting to the server URL.
func (c *Config) FeedBaseURL() string {
	if c.Feed.BaseURL != "" {
		return strings.TrimRight(c.Feed.BaseURL, "/")
	}
	return strings.TrimRight(c.Server.URL, "/")
}

// Location returns the time zone dates are bucketed in, defaulting to Local.
func (c *Config) Location() *time.Location {
	if c.View.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.View.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	for _, fn := range []func() error{c.validateServer, c.validateFeed, c.validateView, c.validateTUI} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.URL == "" {
		return fmt.Errorf("%w: server.url is required", ErrInvalid)
	}
	if err := validateURL(c.Server.URL); err != nil {
		return fmt.Errorf("%w: server.url: %w", ErrInvalid, err)
	}
	if c.Server.Timeout != "" {
		d, err := time.ParseDuration(c.Server.Timeout)
		if err != nil {
			return fmt.Errorf("%w: invalid server.timeout %q: %w", ErrInvalid, c.Server.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: server.timeout must be positive", ErrInvalid)
		}
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.BaseURL == "" {
		return nil
	}
	if err := validateURL(c.Feed.BaseURL); err != nil {
		return fmt.Errorf("%w: feed.base_url: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) validateView() error {
	if c.View.Timezone == "" {
		return nil
	}
	if _, err := time.LoadLocation(c.View.Timezone); err != nil {
		return fmt.Errorf("%w: invalid view.timezone %q: %w", ErrInvalid, c.View.Timezone, err)
	}
	return nil
}

func (c *Config) validateTUI() error {
	const minTitleLines, maxTitleLines = 1, 3
	if c.TUI.TitleLines != 0 && (c.TUI.TitleLines < minTitleLines || c.TUI.TitleLines > maxTitleLines) {
		return fmt.Errorf("%w: tui.title_lines must be between %d and %d",
			ErrInvalid, minTitleLines, maxTitleLines)
	}
	if c.TUI.RefreshInterval != "" {
		d, err := time.ParseDuration(c.TUI.RefreshInterval)
		if err != nil {
			return fmt.Errorf("%w: invalid tui.refresh_interval %q: %w", ErrInvalid, c.TUI.RefreshInterval, err)
		}
		if d != 0 && d < time.Second {
			return fmt.Errorf("%w: tui.refresh_interval must be 0 or at least 1s", ErrInvalid)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// Init writes a default config to path. It refuses to overwrite an existing file.
func Init(path, serverURL string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(absPath); err == nil {
		return nil, fmt.Errorf("config already exists at %s", absPath)
	}

	cfg := NewDefault(serverURL)
	cfg.path = absPath
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config under an exclusive lock, replacing the file atomically.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	unlock, err := filelock.Lock(c.path + ".lock")
	if err != nil {
		return fmt.Errorf("locking config: %w", err)
	}
	defer func() { _ = unlock() }()

	tmp, err := os.CreateTemp(dir, ".config-*.yml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting config mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config: %w", err)
	}
	return os.Rename(tmp.Name(), c.path)
}

// Load reads, migrates and validates the config at path.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %w", ErrInvalid, err)
	}
	cfg.path = absPath

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}
	return &cfg, nil
}
