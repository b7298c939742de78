package pipeline

import (
	"context"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/narrative"
)

// Job names used in logs.
const (
	JobSummary   = "summary"
	JobValuation = "valuation"
)

func newSummaryJob(opts Options, onChange func()) *Job[model.SummaryPayload] {
	return NewJob(JobConfig[model.SummaryPayload]{
		Name:     JobSummary,
		Pacing:   opts.Pacing,
		Offline:  opts.Offline,
		Demo:     opts.Canned.Summary.Demo,
		Fallback: opts.Canned.Summary.Fallback,
		Clone:    model.SummaryPayload.Clone,
	}, onChange)
}

func newValuationJob(opts Options, onChange func()) *Job[model.ValuationPayload] {
	return NewJob(JobConfig[model.ValuationPayload]{
		Name:     JobValuation,
		Pacing:   opts.Pacing,
		Offline:  opts.Offline,
		Demo:     opts.Canned.Valuation.Demo,
		Fallback: opts.Canned.Valuation.Fallback,
		Clone:    model.ValuationPayload.Clone,
	}, onChange)
}

func summaryRun(p narrative.Provider, address string, id *model.PropertyIdentity, q model.Questionnaire) func(context.Context) (*model.SummaryPayload, error) {
	return func(ctx context.Context) (*model.SummaryPayload, error) {
		return p.GenerateSummary(ctx, address, id, q)
	}
}

func valuationRun(p narrative.Provider, address string, id *model.PropertyIdentity, series model.ValuationSeries) func(context.Context) (*model.ValuationPayload, error) {
	return func(ctx context.Context) (*model.ValuationPayload, error) {
		return p.GenerateValuation(ctx, address, id.ProviderID, id, series)
	}
}
