package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "panels",
	Short: "Company suggest, FX rate, address autofill and activity heat map panels",
	Long:  "Hosts the record-page panels in a terminal UI, over HTTP, or as one-shot commands, backed by Salesforce Apex actions or public APIs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
