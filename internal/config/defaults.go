// Package config handles the client configuration file.
package config

import "time"

const (
	// EnvPath overrides the config file location.
	EnvPath = "TASKBOARD_CONFIG"

	// ConfigFileName is the name of the config file within the config directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2

	// DefaultServerURL is where a fresh config points.
	DefaultServerURL = "http://localhost:8080"
	// DefaultTimeout bounds each API request.
	DefaultTimeout = 10 * time.Second
	// DefaultTitleLines is the default number of title lines in TUI cards.
	DefaultTitleLines = 2
	// DefaultRefreshInterval is how often the TUI refetches the board.
	DefaultRefreshInterval = 30 * time.Second
)
