// Package gateway defines the upstream provider contracts consumed by the
// enrichment pipeline and an implementation backed by the property data API.
package gateway

import (
	"context"
	"time"

	"github.com/sells-group/property-report/internal/model"
)

// Provider names used for breakers, logs and failures.
const (
	ProviderIdentity    = "identity"
	ProviderImages      = string(model.LookupImages)
	ProviderComparables = string(model.LookupComparables)
	ProviderMarket      = string(model.LookupMarket)
	ProviderValuation   = string(model.LookupValuation)
)

// Gateway is the set of independently fallible upstream lookups. Every
// error returned is a *Failure. All methods are safe for concurrent use.
type Gateway interface {
	FetchPropertyIdentity(ctx context.Context, address string) (*model.PropertyIdentity, error)
	FetchPropertyImages(ctx context.Context, providerID string, timeout time.Duration) (model.ImageList, error)
	FetchComparables(ctx context.Context, providerID string) (model.ComparableList, error)
	FetchMarketStatistics(ctx context.Context, postalCode string) (*model.MarketStats, error)
	FetchValuationSeries(ctx context.Context, providerID string) (model.ValuationSeries, error)
}
