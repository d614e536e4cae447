package main

import (
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/heatmap"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/tui"
)

var tuiLogFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the panels in a terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The UI owns the terminal; logs go to a file or nowhere.
		if err := redirectLogs(tuiLogFile); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg, "tui")
		if err != nil {
			return err
		}
		defer env.Close()

		m := tui.New(ctx, tui.Deps{
			Services: env.Services,
			Config:   cfg,
			Assets:   heatmap.NewResources(),
			Sink:     notify.LogSink{Panel: "tui"},
		})
		defer m.Close()

		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !eris.Is(err, tea.ErrProgramKilled) {
			return eris.Wrap(err, "run tui")
		}
		return nil
	},
}

func redirectLogs(path string) error {
	if path == "" {
		zap.ReplaceGlobals(zap.NewNop())
		return nil
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.L().Level())
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	logger, err := zc.Build()
	if err != nil {
		return eris.Wrap(err, "open tui log file")
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func init() {
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "write logs to this file while the UI runs")
	rootCmd.AddCommand(tuiCmd)
}
