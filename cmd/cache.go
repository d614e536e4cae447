package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired entries from the SQLite cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Cache.Driver != "sqlite" {
			return eris.Errorf("cache prune needs the sqlite driver, configured driver is %q", cfg.Cache.Driver)
		}
		store, err := cache.NewSQLite(cmd.Context(), cfg.Cache.SQLitePath, cfg.Cache.TTL())
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		n, err := store.Prune(cmd.Context())
		if err != nil {
			return err
		}
		zap.L().Info("cache pruned", zap.String("path", cfg.Cache.SQLitePath), zap.Int64("deleted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
