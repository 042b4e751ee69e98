package cmd

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/tui"
	"github.com/twiced-technology-gmbh/taskboard/internal/watcher"
)

// tuiLogFile receives debug logs while the TUI owns the terminal.
const tuiLogFile = "taskboard-debug.log"

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive board",
	Long: `Opens the kanban board in the terminal. This is also what taskboard does
when run without a subcommand. Edits to the config file apply live.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Anything written to stderr would tear the alt screen.
	logger.SetOutput(io.Discard)
	if flagVerbose {
		f, err := tea.LogToFile(tuiLogFile, "")
		if err != nil {
			return err
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	sess, err := newSession(cfg, false)
	if err != nil {
		return err
	}
	model := tui.NewBoard(sess, cfg, cfg.Board, log.NewEntry(logger))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go startTUIWatcher(ctx, cfg.Path(), p)

	_, err = p.Run()
	return err
}

// startTUIWatcher reloads the config whenever its file changes. A config
// that fails to load keeps the old one and only refetches.
func startTUIWatcher(ctx context.Context, path string, p *tea.Program) {
	entry := logger.WithField("component", "watcher")
	w, err := watcher.New([]string{path}, func() {
		cfg, err := config.Load(path)
		if err != nil {
			entry.WithError(err).Warn("reloading config failed")
			p.Send(tui.ReloadMsg{})
			return
		}
		applyOverrides(cfg)
		p.Send(tui.ReloadMsg{Config: cfg})
	})
	if err != nil {
		entry.WithError(err).Debug("config watcher unavailable")
		return // non-fatal: TUI works without live reload
	}
	defer w.Close()
	w.Run(ctx, func(err error) {
		entry.WithError(err).Debug("watch error")
	})
}

