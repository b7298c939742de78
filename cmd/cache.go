package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the identity cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Store.Driver == "none" {
			return eris.New("cache: store driver is none")
		}
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "cache: open store")
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpired(ctx)
		if err != nil {
			return eris.Wrap(err, "cache: prune")
		}
		zap.L().Info("expired identities pruned", zap.Int("deleted", n))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
