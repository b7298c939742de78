package model

// Phase is the state of an analysis job.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePreparing    Phase = "preparing"
	PhaseFetchingData Phase = "fetching-data"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseComplete     Phase = "complete"
	PhaseError        Phase = "error"
)

// rank orders phases for the forward-only transition check. Both terminal
// phases share the highest rank so neither can follow the other.
func (p Phase) rank() int {
	switch p {
	case PhaseIdle:
		return 0
	case PhasePreparing:
		return 1
	case PhaseFetchingData:
		return 2
	case PhaseAnalyzing:
		return 3
	case PhaseComplete, PhaseError:
		return 4
	default:
		return -1
	}
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// CanAdvanceTo reports whether moving from p to next is a forward move.
func (p Phase) CanAdvanceTo(next Phase) bool {
	return next.rank() > p.rank()
}

// AnalysisState is the observable state of one analysis job.
type AnalysisState[P any] struct {
	Phase     Phase  `json:"phase"`
	Payload   *P     `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
	Triggered bool   `json:"triggered"`
}

// SummaryPayload is the natural-language property summary.
type SummaryPayload struct {
	Headline       string   `json:"headline" yaml:"headline"`
	Summary        string   `json:"summary" yaml:"summary"`
	Highlights     []string `json:"highlights" yaml:"highlights"`
	Considerations []string `json:"considerations" yaml:"considerations"`
}

// ValuationPayload is the valuation narrative and its headline numbers.
type ValuationPayload struct {
	EstimatedValue float64  `json:"estimated_value" yaml:"estimated_value"`
	LowEstimate    float64  `json:"low_estimate" yaml:"low_estimate"`
	HighEstimate   float64  `json:"high_estimate" yaml:"high_estimate"`
	Confidence     string   `json:"confidence" yaml:"confidence"` // low, medium, high
	Trend          string   `json:"trend" yaml:"trend"`           // rising, flat, falling
	Narrative      string   `json:"narrative" yaml:"narrative"`
	Factors        []string `json:"factors" yaml:"factors"`
}

// Clone returns a copy that shares no slices with p.
func (p SummaryPayload) Clone() SummaryPayload {
	p.Highlights = cloneStrings(p.Highlights)
	p.Considerations = cloneStrings(p.Considerations)
	return p
}

// Clone returns a copy that shares no slices with p.
func (p ValuationPayload) Clone() ValuationPayload {
	p.Factors = cloneStrings(p.Factors)
	return p
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
