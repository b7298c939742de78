// Package propdata provides a client for a RapidAPI-hosted residential
// property data API (property lookup, photos, comps, market data and value
// history).
package propdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/property-report/internal/resilience"
)

// ErrNotFound is returned when the API has no record for the request.
var ErrNotFound = eris.New("propdata: not found")

// Client defines the property data API operations.
type Client interface {
	// Property looks up a property by free-form address.
	Property(ctx context.Context, address string) (*Property, error)
	// Images returns the listing photos for a property.
	Images(ctx context.Context, zpid string) (*ImagesResponse, error)
	// Comps returns comparable sales for a property.
	Comps(ctx context.Context, zpid string) (*CompsResponse, error)
	// MarketData returns housing market statistics for a ZIP code.
	MarketData(ctx context.Context, zip string) (*MarketResponse, error)
	// ValueHistory returns the estimated value history for a property.
	ValueHistory(ctx context.Context, zpid string) (*ValueHistoryResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHost sets the X-RapidAPI-Host header value.
func WithHost(host string) Option {
	return func(c *httpClient) {
		c.host = host
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request HTTP timeout. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit sets the requests-per-second limit shared by all calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	host    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new property data client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		host:    "zillow-com1.p.rapidapi.com",
		baseURL: "https://zillow-com1.p.rapidapi.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Property(ctx context.Context, address string) (*Property, error) {
	var out Property
	if err := c.get(ctx, "/property", url.Values{"address": {address}}, &out); err != nil {
		return nil, eris.Wrap(err, "propdata: property")
	}
	if out.ZPID == "" {
		return nil, eris.Wrapf(ErrNotFound, "propdata: property %q", address)
	}
	return &out, nil
}

func (c *httpClient) Images(ctx context.Context, zpid string) (*ImagesResponse, error) {
	var out ImagesResponse
	if err := c.get(ctx, "/images", url.Values{"zpid": {zpid}}, &out); err != nil {
		return nil, eris.Wrapf(err, "propdata: images %s", zpid)
	}
	return &out, nil
}

func (c *httpClient) Comps(ctx context.Context, zpid string) (*CompsResponse, error) {
	var out CompsResponse
	if err := c.get(ctx, "/propertyComps", url.Values{"zpid": {zpid}}, &out); err != nil {
		return nil, eris.Wrapf(err, "propdata: comps %s", zpid)
	}
	return &out, nil
}

func (c *httpClient) MarketData(ctx context.Context, zip string) (*MarketResponse, error) {
	var out MarketResponse
	if err := c.get(ctx, "/marketData", url.Values{"resourceId": {zip}}, &out); err != nil {
		return nil, eris.Wrapf(err, "propdata: market data %s", zip)
	}
	return &out, nil
}

func (c *httpClient) ValueHistory(ctx context.Context, zpid string) (*ValueHistoryResponse, error) {
	var out ValueHistoryResponse
	if err := c.get(ctx, "/valueHistory/zestimate", url.Values{"zpid": {zpid}}, &out); err != nil {
		return nil, eris.Wrapf(err, "propdata: value history %s", zpid)
	}
	return &out, nil
}

// get issues a rate-limited GET and decodes a 200 JSON body into out.
// 404 maps to ErrNotFound; 408/429/5xx come back as transient errors so the
// caller's retry policy can pick them up.
func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(
			eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)),
			resp.StatusCode,
		)
	default:
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
