// Package export writes a settled property report to a spreadsheet.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/pipeline"
)

// Sheet names in workbook order.
const (
	SheetProperty    = "Property"
	SheetComparables = "Comparables"
	SheetMarket      = "Market"
	SheetValuation   = "Valuation"
	SheetAnalysis    = "Analysis"
)

// WriteWorkbook writes v to an XLSX file at path. Missing datasets produce
// a sheet with only its header row.
func WriteWorkbook(path string, v pipeline.View) error {
	f := xlsx.NewFile()

	builders := []struct {
		name  string
		build func(*xlsx.Sheet, pipeline.View)
	}{
		{SheetProperty, propertySheet},
		{SheetComparables, comparablesSheet},
		{SheetMarket, marketSheet},
		{SheetValuation, valuationSheet},
		{SheetAnalysis, analysisSheet},
	}
	for _, b := range builders {
		sheet, err := f.AddSheet(b.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", b.name)
		}
		b.build(sheet, v)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, val := range values {
		cell := row.AddCell()
		switch x := val.(type) {
		case string:
			cell.SetString(x)
		case int:
			cell.SetInt(x)
		case float64:
			cell.SetFloat(x)
		case bool:
			cell.SetBool(x)
		default:
			cell.SetValue(x)
		}
	}
}

func propertySheet(sheet *xlsx.Sheet, v pipeline.View) {
	addRow(sheet, "Field", "Value")
	addRow(sheet, "Session", v.SessionID)
	addRow(sheet, "Requested address", v.Address)
	addRow(sheet, "Status", string(v.Status))
	if v.Error != "" {
		addRow(sheet, "Error", v.Error)
	}

	id := v.Result.Identity
	if id == nil {
		return
	}
	addRow(sheet, "Provider ID", id.ProviderID)
	addRow(sheet, "Address", id.Address)
	addRow(sheet, "Identity source", string(v.Result.IdentitySource))
	addRow(sheet, "Home type", id.HomeType)
	addRow(sheet, "Bedrooms", id.Bedrooms)
	addRow(sheet, "Bathrooms", id.Bathrooms)
	addRow(sheet, "Living area (sq ft)", id.LivingArea)
	addRow(sheet, "Year built", id.YearBuilt)
	addRow(sheet, "Estimated value", id.EstimatedValue)
	addRow(sheet, "Photos", len(v.Result.Images))

	for _, o := range v.Result.Lookups {
		addRow(sheet, "Lookup "+string(o.Name), lookupSummary(o))
	}
}

func lookupSummary(o model.LookupOutcome) string {
	if o.Error == "" {
		return string(o.Status)
	}
	return string(o.Status) + ": " + o.Error
}

func comparablesSheet(sheet *xlsx.Sheet, v pipeline.View) {
	addRow(sheet, "Address", "Price", "Beds", "Baths", "Sq Ft", "Price / Sq Ft", "Distance (mi)", "Sold")
	for _, c := range v.Result.Comparables {
		sold := ""
		if c.SoldOn != nil {
			sold = c.SoldOn.Format("2006-01-02")
		}
		addRow(sheet, c.Address, c.Price, c.Bedrooms, c.Bathrooms, c.LivingArea, c.PricePerSqFt(), c.DistanceMiles, sold)
	}
}

func marketSheet(sheet *xlsx.Sheet, v pipeline.View) {
	addRow(sheet, "Metric", "Value")
	m := v.Result.Market
	if m == nil {
		return
	}
	addRow(sheet, "Postal code", m.PostalCode)
	addRow(sheet, "Median list price", m.MedianListPrice)
	addRow(sheet, "Median sale price", m.MedianSalePrice)
	addRow(sheet, "Median days on market", m.MedianDaysOnMarket)
	addRow(sheet, "Active inventory", m.ActiveInventory)
	addRow(sheet, "Year over year change", m.YearOverYearChange)
}

func valuationSheet(sheet *xlsx.Sheet, v pipeline.View) {
	addRow(sheet, "Date", "Value")
	for _, p := range v.Result.Valuation {
		addRow(sheet, p.Date.Format("2006-01-02"), p.Value)
	}
}

func analysisSheet(sheet *xlsx.Sheet, v pipeline.View) {
	addRow(sheet, "Job", "Phase", "Field", "Value")

	s := v.Summary
	addRow(sheet, pipeline.JobSummary, string(s.Phase), "error", s.Error)
	if p := s.Payload; p != nil {
		addRow(sheet, pipeline.JobSummary, string(s.Phase), "headline", p.Headline)
		addRow(sheet, pipeline.JobSummary, string(s.Phase), "summary", p.Summary)
		addRow(sheet, pipeline.JobSummary, string(s.Phase), "highlights", strings.Join(p.Highlights, "; "))
		addRow(sheet, pipeline.JobSummary, string(s.Phase), "considerations", strings.Join(p.Considerations, "; "))
	}

	val := v.Valuation
	addRow(sheet, pipeline.JobValuation, string(val.Phase), "error", val.Error)
	if p := val.Payload; p != nil {
		addRow(sheet, pipeline.JobValuation, string(val.Phase), "estimated_value", p.EstimatedValue)
		addRow(sheet, pipeline.JobValuation, string(val.Phase), "range", p.LowEstimate, p.HighEstimate)
		addRow(sheet, pipeline.JobValuation, string(val.Phase), "confidence", p.Confidence)
		addRow(sheet, pipeline.JobValuation, string(val.Phase), "trend", p.Trend)
		addRow(sheet, pipeline.JobValuation, string(val.Phase), "narrative", p.Narrative)
		addRow(sheet, pipeline.JobValuation, string(val.Phase), "factors", strings.Join(p.Factors, "; "))
	}
}
