package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg, err := Init(path, "https://tasks.example.com")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q, want %q", cfg.Path(), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != fileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(fileMode))
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.URL != "https://tasks.example.com" {
		t.Errorf("server.url = %q", loaded.Server.URL)
	}
	if loaded.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %v", loaded.Timeout())
	}
	if loaded.TitleLines() != DefaultTitleLines {
		t.Errorf("TitleLines = %d", loaded.TitleLines())
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := writeFile(t, "version: 2\nserver:\n  url: http://localhost:8080\n")
	if _, err := Init(path, ""); err == nil {
		t.Fatal("expected error for existing config")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadMigratesV1(t *testing.T) {
	path := writeFile(t, "server: http://old.example.com:9000\nboard: b1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Server.URL != "http://old.example.com:9000" {
		t.Errorf("server.url = %q", cfg.Server.URL)
	}
	if cfg.Board != "b1" {
		t.Errorf("board = %q", cfg.Board)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "url: http://old.example.com:9000") {
		t.Errorf("migrated file not persisted:\n%s", data)
	}
	if !strings.Contains(string(data), "version: 2") {
		t.Errorf("version not bumped on disk:\n%s", data)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := writeFile(t, "version: 9\nserver:\n  url: http://localhost:8080\n")
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := writeFile(t, "server: [unterminated\n")
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"default", func(*Config) {}, ""},
		{"missing url", func(c *Config) { c.Server.URL = "" }, "server.url is required"},
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://x" }, "scheme"},
		{"no host", func(c *Config) { c.Server.URL = "http://" }, "host"},
		{"bad timeout", func(c *Config) { c.Server.Timeout = "soon" }, "server.timeout"},
		{"negative timeout", func(c *Config) { c.Server.Timeout = "-1s" }, "positive"},
		{"bad feed url", func(c *Config) { c.Feed.BaseURL = "calendar" }, "feed.base_url"},
		{"bad timezone", func(c *Config) { c.View.Timezone = "Mars/Olympus" }, "view.timezone"},
		{"title lines", func(c *Config) { c.TUI.TitleLines = 5 }, "tui.title_lines"},
		{"refresh too fast", func(c *Config) { c.TUI.RefreshInterval = "10ms" }, "tui.refresh_interval"},
		{"refresh disabled", func(c *Config) { c.TUI.RefreshInterval = "0s" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault("")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestAccessorsFallBack(t *testing.T) {
	cfg := NewDefault("http://localhost:8080/")
	cfg.TUI = TUIConfig{}
	cfg.Server.Timeout = ""

	if cfg.RefreshInterval() != DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval())
	}
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
	if got := cfg.FeedBaseURL(); got != "http://localhost:8080" {
		t.Errorf("FeedBaseURL = %q", got)
	}
	cfg.Feed.BaseURL = "https://cal.example.com/"
	if got := cfg.FeedBaseURL(); got != "https://cal.example.com" {
		t.Errorf("FeedBaseURL = %q", got)
	}
	if cfg.Location() != time.Local {
		t.Error("empty timezone should be Local")
	}
	cfg.View.Timezone = "Europe/Berlin"
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("Location = %v", cfg.Location())
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefault("")
	cfg.SetPath(filepath.Join(dir, "config.yml"))
	cfg.Auth.Token = "secret"

	for range 3 {
		if err := cfg.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".config-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	loaded, err := Load(cfg.Path())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Auth.Token != "secret" {
		t.Errorf("token = %q", loaded.Auth.Token)
	}
}

func TestDefaultPathEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.yml")
	t.Setenv(EnvPath, want)
	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("DefaultPath = %q, want %q", got, want)
	}
}
