package pipeline

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/property-report/internal/model"
)

// Marker kinds set in the "kind" feature property.
const (
	MarkerSubject    = "subject"
	MarkerComparable = "comparable"
)

// Markers builds a GeoJSON FeatureCollection of the subject property and its
// comparables for the map widget. Entries without coordinates are skipped.
func Markers(r model.EnrichmentResult) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	bounds := geom.NewBounds(geom.XY)

	add := func(id string, lat, lng float64, props map[string]any) {
		if lat == 0 && lng == 0 {
			return
		}
		pt := geom.NewPointFlat(geom.XY, []float64{lng, lat})
		bounds.Extend(pt)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         id,
			Geometry:   pt,
			Properties: props,
		})
	}

	if id := r.Identity; id != nil {
		add(id.ProviderID, id.Latitude, id.Longitude, map[string]any{
			"kind":            MarkerSubject,
			"address":         id.Address,
			"estimated_value": id.EstimatedValue,
			"bedrooms":        id.Bedrooms,
			"bathrooms":       id.Bathrooms,
		})
	}
	for _, c := range r.Comparables {
		props := map[string]any{
			"kind":           MarkerComparable,
			"address":        c.Address,
			"price":          c.Price,
			"price_per_sqft": c.PricePerSqFt(),
		}
		if c.SoldOn != nil {
			props["sold_on"] = c.SoldOn.Format("2006-01-02")
		}
		add(c.ProviderID, c.Latitude, c.Longitude, props)
	}

	if len(fc.Features) > 0 {
		fc.BBox = bounds
	}
	return fc
}
