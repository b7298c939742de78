package gateway

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/resilience"
	"github.com/sells-group/property-report/pkg/propdata"
)

// Upstream implements Gateway over a propdata.Client, wrapping each provider
// in its own circuit breaker and a shallow retry on transient errors.
type Upstream struct {
	client   propdata.Client
	breakers *resilience.Breakers
	retry    resilience.RetryConfig
}

var _ Gateway = (*Upstream)(nil)

// Option configures Upstream.
type Option func(*Upstream)

// WithRetry sets the retry policy applied to every call.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(u *Upstream) {
		u.retry = cfg
	}
}

// WithCircuit sets the per-provider circuit breaker policy.
func WithCircuit(cfg resilience.CircuitBreakerConfig) Option {
	return func(u *Upstream) {
		cfg.ShouldTrip = tripsBreaker
		u.breakers = resilience.NewBreakers(cfg)
	}
}

// NewUpstream creates a Gateway backed by client.
func NewUpstream(client propdata.Client, opts ...Option) *Upstream {
	cb := resilience.DefaultCircuitBreakerConfig()
	cb.ShouldTrip = tripsBreaker
	u := &Upstream{
		client:   client,
		breakers: resilience.NewBreakers(cb),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Breakers exposes the circuit breaker registry for health reporting.
func (u *Upstream) Breakers() *resilience.Breakers {
	return u.breakers
}

func call[T any](ctx context.Context, u *Upstream, provider string, fn func(ctx context.Context) (T, error)) (T, error) {
	cb := u.breakers.For(provider)
	retry := u.retry
	retry.OnRetry = resilience.RetryLogger(provider)

	val, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		return resilience.ExecuteVal(ctx, cb, fn)
	})
	if err != nil {
		var zero T
		return zero, classify(provider, err)
	}
	return val, nil
}

func (u *Upstream) FetchPropertyIdentity(ctx context.Context, address string) (*model.PropertyIdentity, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, invalidInput(ProviderIdentity, "empty address")
	}

	p, err := call(ctx, u, ProviderIdentity, func(ctx context.Context) (*propdata.Property, error) {
		return u.client.Property(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	return identityFromProperty(p, address), nil
}

func (u *Upstream) FetchPropertyImages(ctx context.Context, providerID string, timeout time.Duration) (model.ImageList, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, invalidInput(ProviderImages, "missing provider id")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := call(ctx, u, ProviderImages, func(ctx context.Context) (*propdata.ImagesResponse, error) {
		return u.client.Images(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}

	images := make(model.ImageList, 0, len(resp.Images))
	for _, ph := range resp.Images {
		if ph.URL == "" {
			continue
		}
		images = append(images, model.Image{URL: ph.URL, Caption: ph.Caption, Width: ph.Width, Height: ph.Height})
	}
	return images, nil
}

func (u *Upstream) FetchComparables(ctx context.Context, providerID string) (model.ComparableList, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, invalidInput(ProviderComparables, "missing provider id")
	}

	resp, err := call(ctx, u, ProviderComparables, func(ctx context.Context) (*propdata.CompsResponse, error) {
		return u.client.Comps(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}

	comps := make(model.ComparableList, 0, len(resp.Comps))
	for _, c := range resp.Comps {
		comp := model.Comparable{
			ProviderID:    string(c.ZPID),
			Address:       c.Address.OneLine(),
			Price:         c.Price,
			Bedrooms:      c.Bedrooms,
			Bathrooms:     c.Bathrooms,
			LivingArea:    c.LivingArea,
			Latitude:      c.Latitude,
			Longitude:     c.Longitude,
			DistanceMiles: c.Distance,
		}
		if t := c.DateSold.Time(); !t.IsZero() {
			comp.SoldOn = &t
		}
		comps = append(comps, comp)
	}
	return comps, nil
}

func (u *Upstream) FetchMarketStatistics(ctx context.Context, postalCode string) (*model.MarketStats, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return nil, invalidInput(ProviderMarket, "missing postal code")
	}

	resp, err := call(ctx, u, ProviderMarket, func(ctx context.Context) (*propdata.MarketResponse, error) {
		return u.client.MarketData(ctx, postalCode)
	})
	if err != nil {
		return nil, err
	}

	zip := resp.Zip
	if zip == "" {
		zip = postalCode
	}
	return &model.MarketStats{
		PostalCode:         zip,
		MedianListPrice:    resp.MedianListPrice,
		MedianSalePrice:    resp.MedianSalePrice,
		MedianDaysOnMarket: resp.MedianDaysOnMarket,
		ActiveInventory:    resp.Inventory,
		// The API reports percent; the model stores a fraction.
		YearOverYearChange: resp.YoYChange / 100,
	}, nil
}

func (u *Upstream) FetchValuationSeries(ctx context.Context, providerID string) (model.ValuationSeries, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, invalidInput(ProviderValuation, "missing provider id")
	}

	resp, err := call(ctx, u, ProviderValuation, func(ctx context.Context) (*propdata.ValueHistoryResponse, error) {
		return u.client.ValueHistory(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}

	series := make(model.ValuationSeries, 0, len(resp.History))
	for _, pt := range resp.History {
		if pt.Date == 0 || pt.Value <= 0 {
			continue
		}
		series = append(series, model.ValuationPoint{Date: pt.Date.Time(), Value: pt.Value})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

func identityFromProperty(p *propdata.Property, requested string) *model.PropertyIdentity {
	addr := p.Address.OneLine()
	if addr == "" {
		addr = requested
	}
	return &model.PropertyIdentity{
		ProviderID:     string(p.ZPID),
		Address:        addr,
		Street:         p.Address.StreetAddress,
		City:           p.Address.City,
		State:          p.Address.State,
		ZipCode:        p.Address.Zipcode,
		Bedrooms:       p.Bedrooms,
		Bathrooms:      p.Bathrooms,
		LivingArea:     p.LivingArea,
		YearBuilt:      p.YearBuilt,
		EstimatedValue: p.Zestimate,
		HomeType:       p.HomeType,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
	}
}
