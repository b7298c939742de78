package narrative

import (
	"fmt"
	"strings"

	"github.com/sells-group/property-report/internal/model"
)

const summarySystemPrompt = `You write short, factual summaries of residential properties for homeowners considering a sale.
Use only the facts provided. Do not invent amenities, renovations or neighborhood claims.
Respond with a single JSON object and nothing else:
{"headline": string, "summary": string, "highlights": [string], "considerations": [string]}
Keep the summary under 120 words and give at most four highlights and three considerations.`

const valuationSystemPrompt = `You explain automated home valuations to homeowners.
Base the estimate on the provided value history and property facts. Give a range, not a single promise.
Respond with a single JSON object and nothing else:
{"estimated_value": number, "low_estimate": number, "high_estimate": number,
 "confidence": "low"|"medium"|"high", "trend": "rising"|"flat"|"falling",
 "narrative": string, "factors": [string]}
Keep the narrative under 100 words.`

func writeFacts(b *strings.Builder, address string, id *model.PropertyIdentity) {
	fmt.Fprintf(b, "Address: %s\n", address)
	if id.Address != "" && id.Address != address {
		fmt.Fprintf(b, "Provider address: %s\n", id.Address)
	}
	if id.HomeType != "" {
		fmt.Fprintf(b, "Home type: %s\n", id.HomeType)
	}
	if id.Bedrooms > 0 {
		fmt.Fprintf(b, "Bedrooms: %d\n", id.Bedrooms)
	}
	if id.Bathrooms > 0 {
		fmt.Fprintf(b, "Bathrooms: %g\n", id.Bathrooms)
	}
	if id.LivingArea > 0 {
		fmt.Fprintf(b, "Living area: %d sq ft\n", id.LivingArea)
	}
	if id.YearBuilt > 0 {
		fmt.Fprintf(b, "Year built: %d\n", id.YearBuilt)
	}
	if id.EstimatedValue > 0 {
		fmt.Fprintf(b, "Provider estimate: $%.0f\n", id.EstimatedValue)
	}
}

func summaryPrompt(address string, id *model.PropertyIdentity, q model.Questionnaire) string {
	var b strings.Builder
	b.WriteString("Property facts:\n")
	writeFacts(&b, address, id)

	if !q.IsEmpty() {
		b.WriteString("\nSeller context:\n")
		if q.SellingTimeline != "" {
			fmt.Fprintf(&b, "Timeline: %s\n", q.SellingTimeline)
		}
		if q.SellingReason != "" {
			fmt.Fprintf(&b, "Reason: %s\n", q.SellingReason)
		}
		if q.PropertyCondition != "" {
			fmt.Fprintf(&b, "Condition: %s\n", q.PropertyCondition)
		}
		if len(q.RecentUpgrades) > 0 {
			fmt.Fprintf(&b, "Recent upgrades: %s\n", strings.Join(q.RecentUpgrades, ", "))
		}
	}
	return b.String()
}

// maxSeriesPoints bounds the history sent in the valuation prompt.
const maxSeriesPoints = 24

func valuationPrompt(address, providerID string, id *model.PropertyIdentity, series model.ValuationSeries) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Property %s facts:\n", providerID)
	writeFacts(&b, address, id)

	if len(series) == 0 {
		b.WriteString("\nNo value history is available.\n")
		return b.String()
	}

	points := series
	if len(points) > maxSeriesPoints {
		points = points[len(points)-maxSeriesPoints:]
	}
	b.WriteString("\nValue history (date, value):\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%s, %.0f\n", p.Date.Format("2006-01-02"), p.Value)
	}
	fmt.Fprintf(&b, "Change over the full history: %.1f%%\n", series.Change()*100)
	return b.String()
}
