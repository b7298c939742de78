package model

// LookupName identifies one of the dependent lookups.
type LookupName string

const (
	LookupImages      LookupName = "images"
	LookupComparables LookupName = "comparables"
	LookupMarket      LookupName = "market"
	LookupValuation   LookupName = "valuation"
)

// DependentLookups lists the lookups issued after the identity is known.
var DependentLookups = []LookupName{LookupImages, LookupComparables, LookupMarket, LookupValuation}

// LookupStatus is the settled outcome of a lookup.
type LookupStatus string

const (
	LookupStatusComplete LookupStatus = "complete"
	LookupStatusFailed   LookupStatus = "failed"
)

// LookupOutcome records how a dependent lookup settled.
type LookupOutcome struct {
	Name     LookupName   `json:"name"`
	Status   LookupStatus `json:"status"`
	Duration int64        `json:"duration_ms"`
	Error    string       `json:"error,omitempty"`
}

// IdentitySource says where the session's identity came from.
type IdentitySource string

const (
	IdentityFromCache  IdentitySource = "cache"
	IdentityFromLookup IdentitySource = "lookup"
)

// EnrichmentResult aggregates the identity and every dependent dataset for
// one address session. Sub-results are nil when their lookup failed.
type EnrichmentResult struct {
	Identity       *PropertyIdentity `json:"identity,omitempty"`
	IdentitySource IdentitySource    `json:"identity_source,omitempty"`
	Images         ImageList         `json:"images,omitempty"`
	Comparables    ComparableList    `json:"comparables,omitempty"`
	Market         *MarketStats      `json:"market,omitempty"`
	Valuation      ValuationSeries   `json:"valuation,omitempty"`
	Lookups        []LookupOutcome   `json:"lookups,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with r.
func (r EnrichmentResult) Clone() EnrichmentResult {
	out := r
	if r.Identity != nil {
		id := *r.Identity
		out.Identity = &id
	}
	if r.Market != nil {
		m := *r.Market
		out.Market = &m
	}
	out.Images = append(ImageList(nil), r.Images...)
	out.Comparables = append(ComparableList(nil), r.Comparables...)
	out.Valuation = append(ValuationSeries(nil), r.Valuation...)
	out.Lookups = append([]LookupOutcome(nil), r.Lookups...)
	return out
}

// Outcome returns the recorded outcome for a lookup, if any.
func (r EnrichmentResult) Outcome(name LookupName) (LookupOutcome, bool) {
	for _, o := range r.Lookups {
		if o.Name == name {
			return o, true
		}
	}
	return LookupOutcome{}, false
}
