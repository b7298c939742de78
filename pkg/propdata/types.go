package propdata

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ID is a provider identifier that the API sends either as a JSON number or
// a JSON string.
type ID string

// UnmarshalJSON accepts both 12345 and "12345".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// EpochMillis is a timestamp encoded as milliseconds since the Unix epoch.
type EpochMillis int64

// Time converts to time.Time in UTC. The zero value maps to the zero time.
func (e EpochMillis) Time() time.Time {
	if e == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(e)).UTC()
}

// Address is the structured address returned by the API.
type Address struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zipcode       string `json:"zipcode"`
}

// OneLine formats the address as "street, city, state zip".
func (a Address) OneLine() string {
	var parts []string
	for _, p := range []string{a.StreetAddress, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	tail := strings.TrimSpace(strings.TrimSpace(a.State) + " " + strings.TrimSpace(a.Zipcode))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// Property is the /property response.
type Property struct {
	ZPID       ID      `json:"zpid"`
	Address    Address `json:"address"`
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	LivingArea int     `json:"livingArea"`
	YearBuilt  int     `json:"yearBuilt"`
	Zestimate  float64 `json:"zestimate"`
	HomeType   string  `json:"homeType"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// ImagesResponse is the /images response.
type ImagesResponse struct {
	Images []Photo `json:"images"`
}

// Photo is a single listing photo.
type Photo struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// UnmarshalJSON accepts either a bare URL string or a photo object.
func (p *Photo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.URL)
	}
	type plain Photo
	return json.Unmarshal(data, (*plain)(p))
}

// CompsResponse is the /propertyComps response.
type CompsResponse struct {
	Comps []Comp `json:"comps"`
}

// Comp is one comparable sale.
type Comp struct {
	ZPID       ID          `json:"zpid"`
	Address    Address     `json:"address"`
	Price      float64     `json:"price"`
	Bedrooms   int         `json:"bedrooms"`
	Bathrooms  float64     `json:"bathrooms"`
	LivingArea int         `json:"livingArea"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Distance   float64     `json:"distance"`
	DateSold   EpochMillis `json:"dateSold"`
}

// MarketResponse is the /marketData response.
type MarketResponse struct {
	Zip                string  `json:"zip"`
	MedianListPrice    float64 `json:"medianListPrice"`
	MedianSalePrice    float64 `json:"medianSalePrice"`
	MedianDaysOnMarket int     `json:"medianDaysOnMarket"`
	Inventory          int     `json:"inventory"`
	YoYChange          float64 `json:"yoyChange"`
}

// ValueHistoryResponse is the /valueHistory/zestimate response.
type ValueHistoryResponse struct {
	History []ValuePoint `json:"history"`
}

// ValuePoint is one sample of the value history.
type ValuePoint struct {
	Date  EpochMillis `json:"x"`
	Value float64     `json:"y"`
}
