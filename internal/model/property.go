package model

import (
	"regexp"
	"strings"
	"time"
)

// PropertyIdentity is the canonical record for a single property returned by
// the primary lookup provider.
type PropertyIdentity struct {
	ProviderID     string  `json:"provider_id,omitempty"` // zpid-equivalent; empty for cache-only partials
	Address        string  `json:"address"`               // provider's canonical one-line address
	Street         string  `json:"street,omitempty"`
	City           string  `json:"city,omitempty"`
	State          string  `json:"state,omitempty"`
	ZipCode        string  `json:"zip_code,omitempty"`
	Bedrooms       int     `json:"bedrooms"`
	Bathrooms      float64 `json:"bathrooms"`
	LivingArea     int     `json:"living_area"`
	YearBuilt      int     `json:"year_built"`
	EstimatedValue float64 `json:"estimated_value"`
	HomeType       string  `json:"home_type,omitempty"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
}

var zipPattern = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

// PostalCode returns the identity's ZIP code, falling back to the last
// 5-digit ZIP found in address. Returns "" when neither yields one.
func (p *PropertyIdentity) PostalCode(address string) string {
	if p != nil && strings.TrimSpace(p.ZipCode) != "" {
		return strings.TrimSpace(p.ZipCode)
	}
	return ParsePostalCode(address)
}

// ParsePostalCode extracts the last 5-digit ZIP code from a free-form
// address. The street number is skipped when it is the only match.
func ParsePostalCode(address string) string {
	matches := zipPattern.FindAllStringSubmatchIndex(address, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		start := matches[i][2]
		// A leading number is the street number, not a ZIP.
		if strings.TrimSpace(address[:start]) == "" {
			continue
		}
		return address[matches[i][2]:matches[i][3]]
	}
	return ""
}

// HasProviderID reports whether the identity carries the provider key
// required by the provider-keyed lookups.
func (p *PropertyIdentity) HasProviderID() bool {
	return p != nil && strings.TrimSpace(p.ProviderID) != ""
}

// Image is a single listing photo.
type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// ImageList holds the photos for a property.
type ImageList []Image

// Comparable is a nearby recently sold property.
type Comparable struct {
	ProviderID    string     `json:"provider_id"`
	Address       string     `json:"address"`
	Price         float64    `json:"price"`
	Bedrooms      int        `json:"bedrooms"`
	Bathrooms     float64    `json:"bathrooms"`
	LivingArea    int        `json:"living_area"`
	Latitude      float64    `json:"latitude,omitempty"`
	Longitude     float64    `json:"longitude,omitempty"`
	DistanceMiles float64    `json:"distance_miles,omitempty"`
	SoldOn        *time.Time `json:"sold_on,omitempty"`
}

// PricePerSqFt returns price divided by living area, or 0 when unknown.
func (c Comparable) PricePerSqFt() float64 {
	if c.LivingArea <= 0 {
		return 0
	}
	return c.Price / float64(c.LivingArea)
}

// ComparableList holds comparable sales for a property.
type ComparableList []Comparable

// MarketStats summarizes the housing market for a postal code.
type MarketStats struct {
	PostalCode         string  `json:"postal_code"`
	MedianListPrice    float64 `json:"median_list_price"`
	MedianSalePrice    float64 `json:"median_sale_price"`
	MedianDaysOnMarket int     `json:"median_days_on_market"`
	ActiveInventory    int     `json:"active_inventory"`
	YearOverYearChange float64 `json:"yoy_change"` // fraction, 0.05 = +5%
}

// ValuationPoint is one sample of a property's estimated value over time.
type ValuationPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ValuationSeries is a time series of estimated values, oldest first.
type ValuationSeries []ValuationPoint

// Latest returns the most recent point and true, or false if empty.
func (s ValuationSeries) Latest() (ValuationPoint, bool) {
	if len(s) == 0 {
		return ValuationPoint{}, false
	}
	return s[len(s)-1], true
}

// Change returns the fractional change between the first and last points.
func (s ValuationSeries) Change() float64 {
	if len(s) < 2 || s[0].Value == 0 {
		return 0
	}
	return (s[len(s)-1].Value - s[0].Value) / s[0].Value
}

// Questionnaire is the seller-supplied context for the summary narrative.
type Questionnaire struct {
	SellingTimeline   string   `json:"selling_timeline,omitempty"`
	SellingReason     string   `json:"selling_reason,omitempty"`
	PropertyCondition string   `json:"property_condition,omitempty"`
	RecentUpgrades    []string `json:"recent_upgrades,omitempty"`
}

// IsEmpty reports whether no questionnaire answers were supplied.
func (q Questionnaire) IsEmpty() bool {
	return q.SellingTimeline == "" && q.SellingReason == "" &&
		q.PropertyCondition == "" && len(q.RecentUpgrades) == 0
}
