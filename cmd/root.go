// Package cmd implements the taskboard CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/api"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// version is set at build time via ldflags.
var version = "dev"

// Environment overrides for the client config.
const (
	envServer = "TASKBOARD_SERVER"
	envToken  = "TASKBOARD_TOKEN"
)

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagNoColor bool
	flagVerbose bool
	flagConfig  string
	flagServer  string
	flagToken   string
	flagBoard   string
)

// logger is the CLI's logrus instance; it writes to stderr.
var logger = log.New()

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Kanban board, timers and calendar feed for a small team",
	Long: `taskboard is the terminal client of the task board.
Run taskboard with no arguments to open the interactive board, or use the
subcommands to script it. "taskboard serve" runs the API server.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
		logger.SetOutput(os.Stderr)
		logger.SetLevel(log.WarnLevel)
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "output as JSON")
	pf.BoolVar(&flagTable, "table", false, "output as table")
	pf.BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	pf.BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable color output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&flagConfig, "config", "", "path to the config file (default $"+config.EnvPath+" or ~/.config/taskboard/config.yml)")
	pf.StringVar(&flagServer, "server", "", "API server URL (overrides config)")
	pf.StringVar(&flagToken, "token", "", "bearer token (overrides config)")
	pf.StringVarP(&flagBoard, "board", "b", "", "board ID (default from config, else the first board)")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	_, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err == nil {
		return
	}

	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	jsonMode := flagJSON
	if !jsonMode {
		jsonMode = os.Getenv(output.EnvFormat) == "json"
	}

	if jsonMode {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// configPath returns the config file the CLI reads and writes.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the client config. A missing file is not an error: the
// defaults are used in memory until "taskboard init" writes one. Flags beat
// environment variables, which beat the file.
func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, config.ErrNotFound):
		cfg = config.NewDefault("")
		cfg.SetPath(path)
		logger.WithField("path", path).Debug("no config file, using defaults")
	case err != nil:
		return nil, err
	}
	applyOverrides(cfg)
	output.SetLocation(cfg.Location())
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if v := firstNonEmpty(flagServer, os.Getenv(envServer)); v != "" {
		cfg.Server.URL = v
	}
	if v := firstNonEmpty(flagToken, os.Getenv(envToken)); v != "" {
		cfg.Auth.Token = v
	}
	if flagBoard != "" {
		cfg.Board = flagBoard
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// newClient returns an API client for cfg.
func newClient(cfg *config.Config) (*api.Client, error) {
	opts := []api.Option{
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(log.NewEntry(logger)),
	}
	if cfg.Auth.Token != "" {
		opts = append(opts, api.WithToken(cfg.Auth.Token))
	}
	return api.New(cfg.Server.URL, opts...)
}

// openSession loads the config, connects and opens the configured board.
// Commands that address tasks by ID pass includeCompleted so done tasks
// resolve too.
func openSession(ctx context.Context, includeCompleted bool) (*session.Session, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	sess, err := newSession(cfg, includeCompleted)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.Open(ctx, cfg.Board); err != nil {
		return nil, nil, err
	}
	return sess, cfg, nil
}

func newSession(cfg *config.Config, includeCompleted bool) (*session.Session, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return session.New(client, session.Options{
		IncludeCompleted: includeCompleted || cfg.View.ShowCompleted,
		FeedBaseURL:      cfg.FeedBaseURL(),
		Logger:           log.NewEntry(logger),
	}), nil
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// resolveTask finds a task in the open board by full ID or unique prefix.
func resolveTask(sess *session.Session, arg string) (task.Task, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return task.Task{}, task.ValidateTaskID(arg)
	}
	if t, ok := sess.Store.Get(arg); ok {
		return t, nil
	}
	var matches []task.Task
	for _, t := range sess.Store.Tasks() {
		if strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return task.Task{}, task.NotFound(arg)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return task.Task{}, clierr.Newf(clierr.InvalidTaskID, "task ID prefix %q is ambiguous", arg).
			WithDetails(map[string]any{"input": arg, "matches": ids})
	}
}

// resolveColumn finds a column by ID, case-insensitive name or status tag.
func resolveColumn(cols []task.Column, arg string) (task.Column, error) {
	if c, ok := task.FindColumn(cols, arg); ok {
		return c, nil
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, arg) || strings.EqualFold(string(c.Status), arg) {
			return c, nil
		}
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return task.Column{}, clierr.Newf(clierr.NotFound, "column %q not found; available: %s",
		arg, strings.Join(names, ", ")).
		WithDetails(map[string]any{"input": arg, "columns": names})
}

// printWarning writes an advisory error to stderr.
func printWarning(w io.Writer, warn *clierr.Error) {
	if warn != nil {
		fmt.Fprintf(w, "Warning: %s\n", warn.Message)
	}
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(ids []string, fn func(string) error) error {
	results := make([]output.BatchResult, 0, len(ids))
	anyFailed := false

	for _, id := range ids {
		err := fn(id)
		if err != nil {
			anyFailed = true
			var cliErr *clierr.Error
			if errors.As(err, &cliErr) {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: cliErr.Message, Code: cliErr.Code})
			} else {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: err.Error()})
			}
		} else {
			results = append(results, output.BatchResult{ID: id, OK: true})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "Error: task %s: %s\n", r.ID, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(ids))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
