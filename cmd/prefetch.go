package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/gateway"
	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/pipeline"
	"github.com/sells-group/property-report/internal/store"
)

var prefetchAddress string

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Look up a property and store its identity in the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "prefetch", true)
		if err != nil {
			return err
		}
		defer env.Close()

		id, err := prefetch(ctx, env.Gateway, env.Store, prefetchAddress, cfg.Enrichment.CacheTTL())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), id)
	},
}

// prefetch runs the primary lookup for address and caches the identity
// under its normalized key.
func prefetch(ctx context.Context, gw gateway.Gateway, st store.Store, address string, ttl time.Duration) (*model.PropertyIdentity, error) {
	id, err := gw.FetchPropertyIdentity(ctx, address)
	if err != nil {
		return nil, eris.Wrap(err, "prefetch: lookup")
	}

	key := pipeline.NormalizeAddress(address)
	if err := st.PutIdentity(ctx, key, id, ttl); err != nil {
		return nil, eris.Wrap(err, "prefetch: store identity")
	}

	zap.L().Info("identity prefetched",
		zap.String("key", key),
		zap.String("provider_id", id.ProviderID),
	)
	return id, nil
}

func init() {
	prefetchCmd.Flags().StringVar(&prefetchAddress, "address", "", "property address (required)")
	_ = prefetchCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(prefetchCmd)
}
