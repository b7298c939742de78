package pipeline

import "github.com/sells-group/property-report/internal/model"

// Status is the coarse state of a session.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusNoData  Status = "no_data"
)

// NoDataMessage is reported when the primary lookup fails.
const NoDataMessage = "no property data available"

// View is a point-in-time snapshot of a session for the consuming view.
type View struct {
	SessionID           string                                      `json:"session_id"`
	Address             string                                      `json:"address"`
	Status              Status                                      `json:"status"`
	Error               string                                      `json:"error,omitempty"`
	Result              model.EnrichmentResult                      `json:"result"`
	DataLoadingComplete bool                                        `json:"data_loading_complete"`
	Summary             model.AnalysisState[model.SummaryPayload]   `json:"summary"`
	Valuation           model.AnalysisState[model.ValuationPayload] `json:"valuation"`
}

// Settled reports whether nothing further will change in the view. A
// session without data is settled at once. Otherwise data loading must be
// complete and every eligible job terminal: the summary whenever an identity
// is present, the valuation when that identity carries a provider ID.
func (v View) Settled() bool {
	if v.Status == StatusNoData {
		return true
	}
	if !v.DataLoadingComplete {
		return false
	}
	id := v.Result.Identity
	if id == nil {
		return true
	}
	if !v.Summary.Phase.Terminal() {
		return false
	}
	if id.HasProviderID() && !v.Valuation.Phase.Terminal() {
		return false
	}
	return true
}
