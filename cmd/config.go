package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify the client configuration",
	Long: `View the full configuration, get a specific key, or set a writable value.
Values shown are those of the file; --server, --token, --board and the
TASKBOARD_* environment variables are not applied here.`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func stringAccessor(field func(*config.Config) *string) configAccessor {
	return configAccessor{
		get:      func(c *config.Config) any { return *field(c) },
		set:      func(c *config.Config, v string) error { *field(c) = v; return nil },
		writable: true,
	}
}

func durationAccessor(key string, field func(*config.Config) *string) configAccessor {
	acc := stringAccessor(field)
	acc.set = func(c *config.Config, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return clierr.Newf(clierr.InvalidInput, "invalid %s %q: %v", key, v, err)
		}
		*field(c) = v
		return nil
	}
	return acc
}

func configAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version": {
			get: func(c *config.Config) any { return c.Version },
		},
		"path": {
			get: func(c *config.Config) any { return c.Path() },
		},
		"server.url":       stringAccessor(func(c *config.Config) *string { return &c.Server.URL }),
		"server.timeout":   durationAccessor("server.timeout", func(c *config.Config) *string { return &c.Server.Timeout }),
		"auth.token":       stringAccessor(func(c *config.Config) *string { return &c.Auth.Token }),
		"board":            stringAccessor(func(c *config.Config) *string { return &c.Board }),
		"feed.base_url":    stringAccessor(func(c *config.Config) *string { return &c.Feed.BaseURL }),
		"view.timezone":    stringAccessor(func(c *config.Config) *string { return &c.View.Timezone }),
		"view.assignee":    stringAccessor(func(c *config.Config) *string { return &c.View.Assignee }),
		"tui.refresh_interval": durationAccessor("tui.refresh_interval",
			func(c *config.Config) *string { return &c.TUI.RefreshInterval }),
		"view.show_completed": {
			get: func(c *config.Config) any { return c.View.ShowCompleted },
			set: func(c *config.Config, v string) error {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid view.show_completed %q: must be true or false", v)
				}
				c.View.ShowCompleted = b
				return nil
			},
			writable: true,
		},
		"tui.title_lines": {
			get: func(c *config.Config) any { return c.TitleLines() },
			set: func(c *config.Config, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid tui.title_lines %q: must be an integer", v)
				}
				c.TUI.TitleLines = n
				return nil // validation handles range check
			},
			writable: true,
		},
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"path",
		"server.url",
		"server.timeout",
		"auth.token",
		"board",
		"feed.base_url",
		"view.show_completed",
		"view.timezone",
		"view.assignee",
		"tui.title_lines",
		"tui.refresh_interval",
	}
}

// loadConfigFile loads the config file without flag or environment overrides.
func loadConfigFile() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotFound) {
		cfg = config.NewDefault("")
		cfg.SetPath(path)
		return cfg, nil
	}
	return cfg, err
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = displayValue(key, accessors[key].get(cfg))
		}
		return output.JSON(os.Stdout, m)
	}

	for _, key := range allConfigKeys() {
		val := displayValue(key, accessors[key].get(cfg))
		fmt.Fprintf(os.Stdout, "%-22s %v\n", key, val)
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}

	key := args[0]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	val := acc.get(cfg)
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}
	fmt.Fprintln(os.Stdout, val)
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "%v", err)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": displayValue(key, acc.get(cfg))})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, displayValue(key, acc.get(cfg)))
	return nil
}

// displayValue masks the token in listings.
func displayValue(key string, val any) any {
	const visible = 4
	s, ok := val.(string)
	if key != "auth.token" || !ok || s == "" {
		return val
	}
	if len(s) <= visible {
		return "****"
	}
	return "****" + s[len(s)-visible:]
}
