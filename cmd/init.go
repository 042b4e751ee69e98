package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a client config file",
	Long: `Creates the client config with the server URL and, optionally, the token
and default board. Use --config to write somewhere other than the default path.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(absPath); err == nil {
		return clierr.Newf(clierr.Conflict, "config already exists at %s", absPath).
			WithDetails(map[string]any{"path": absPath})
	}

	cfg, err := config.Init(absPath, firstNonEmpty(flagServer, os.Getenv(envServer)))
	if err != nil {
		return err
	}
	if tok := firstNonEmpty(flagToken, os.Getenv(envToken)); tok != "" || flagBoard != "" {
		cfg.Auth.Token = tok
		cfg.Board = flagBoard
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"path":   cfg.Path(),
			"server": cfg.Server.URL,
			"board":  cfg.Board,
		})
	}
	output.Messagef(os.Stdout, "Wrote %s", cfg.Path())
	output.Messagef(os.Stdout, "  Server: %s", cfg.Server.URL)
	return nil
}
