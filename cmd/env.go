package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/config"
	"github.com/sells-group/property-report/internal/gateway"
	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/narrative"
	"github.com/sells-group/property-report/internal/pipeline"
	"github.com/sells-group/property-report/internal/resilience"
	"github.com/sells-group/property-report/internal/store"
	anthropicpkg "github.com/sells-group/property-report/pkg/anthropic"
	"github.com/sells-group/property-report/pkg/propdata"
)

// reportEnv holds the initialized clients and session options needed by the
// report, prefetch and serve commands.
type reportEnv struct {
	Store    store.Store // nil when caching is disabled
	Gateway  *gateway.Upstream
	Breakers *resilience.Breakers
	Options  pipeline.Options
}

// Close releases resources held by the environment.
func (e *reportEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens the identity cache (unless useCache
// is false or the driver is "none") and builds the gateway, narrative
// provider and session options. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string, useCache bool) (*reportEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	env := &reportEnv{}
	if useCache && c.Store.Driver != "none" {
		st, err := store.Open(ctx, c.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open identity cache")
		}
		env.Store = st
	}

	env.Gateway = newGateway(c)
	env.Breakers = env.Gateway.Breakers()

	canned, err := narrative.LoadCanned(c.Analysis.CannedPath)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Options = sessionOptions(c, env.Gateway, newNarrative(c), canned)
	if env.Store != nil {
		env.Options.Sink = env.Store
	}
	return env, nil
}

func newGateway(c *config.Config) *gateway.Upstream {
	opts := []propdata.Option{
		propdata.WithHost(c.PropData.Host),
		propdata.WithRateLimit(c.PropData.RateLimit),
		propdata.WithTimeout(c.PropData.Timeout()),
	}
	if c.PropData.BaseURL != "" {
		opts = append(opts, propdata.WithBaseURL(c.PropData.BaseURL))
	}
	client := propdata.NewClient(c.PropData.Key, opts...)

	r := c.Enrichment.Retry
	cb := c.Enrichment.Circuit
	return gateway.NewUpstream(client,
		gateway.WithRetry(resilience.FromRetryConfig(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs)),
		gateway.WithCircuit(resilience.FromCircuitConfig(cb.FailureThreshold, cb.ResetTimeoutSecs)),
	)
}

// newNarrative returns nil in offline mode; offline jobs never call it.
func newNarrative(c *config.Config) narrative.Provider {
	if c.Analysis.Offline || c.Anthropic.Key == "" {
		zap.L().Debug("narrative provider disabled, analysis runs offline")
		return nil
	}
	client := anthropicpkg.NewClient(c.Anthropic.Key)
	return narrative.NewAnthropic(client, c.Anthropic.Model, c.Anthropic.MaxTokens)
}

func sessionOptions(c *config.Config, gw gateway.Gateway, p narrative.Provider, canned *narrative.Canned) pipeline.Options {
	return pipeline.Options{
		Gateway:   gw,
		Narrative: p,
		Canned:    canned,
		Pacing: pipeline.Pacing{
			Preparing:    time.Duration(c.Analysis.PreparingMs) * time.Millisecond,
			FetchingData: time.Duration(c.Analysis.FetchingDataMs) * time.Millisecond,
		},
		Offline:       c.Analysis.Offline,
		LookupTimeout: c.Enrichment.LookupTimeout(),
		ImagesTimeout: c.Enrichment.ImagesTimeout(),
		Grace:         c.Enrichment.Grace(),
		CacheTTL:      c.Enrichment.CacheTTL(),
		OnDataLoaded: func(v pipeline.View) {
			zap.L().Info("data loading complete",
				zap.String("session_id", v.SessionID),
				zap.Int("comparables", len(v.Result.Comparables)),
				zap.Int("images", len(v.Result.Images)),
			)
		},
	}
}

// cachedIdentity returns the prefetched identity for address, or nil. Cache
// errors are logged and treated as a miss.
func cachedIdentity(ctx context.Context, st store.Store, address string) *model.PropertyIdentity {
	if st == nil {
		return nil
	}
	id, err := st.GetIdentity(ctx, pipeline.NormalizeAddress(address))
	if err != nil {
		zap.L().Warn("identity cache read failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	return id
}
