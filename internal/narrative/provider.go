// Package narrative generates the summary and valuation narratives for a
// property report.
package narrative

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/pkg/anthropic"
)

// Provider is the AI-text contract used by the analysis jobs.
type Provider interface {
	GenerateSummary(ctx context.Context, address string, identity *model.PropertyIdentity, q model.Questionnaire) (*model.SummaryPayload, error)
	GenerateValuation(ctx context.Context, address, providerID string, identity *model.PropertyIdentity, series model.ValuationSeries) (*model.ValuationPayload, error)
}

// Anthropic implements Provider with the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

var _ Provider = (*Anthropic)(nil)

// NewAnthropic creates a Provider that calls the given model.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens}
}

func (a *Anthropic) GenerateSummary(ctx context.Context, address string, identity *model.PropertyIdentity, q model.Questionnaire) (*model.SummaryPayload, error) {
	if identity == nil {
		return nil, eris.New("narrative: summary requires an identity")
	}
	var out model.SummaryPayload
	if err := a.generate(ctx, "summary", summarySystemPrompt, summaryPrompt(address, identity, q), &out); err != nil {
		return nil, err
	}
	if out.Summary == "" && out.Headline == "" {
		return nil, eris.New("narrative: summary: empty payload")
	}
	return &out, nil
}

func (a *Anthropic) GenerateValuation(ctx context.Context, address, providerID string, identity *model.PropertyIdentity, series model.ValuationSeries) (*model.ValuationPayload, error) {
	if identity == nil || providerID == "" {
		return nil, eris.New("narrative: valuation requires an identity with a provider id")
	}
	var out model.ValuationPayload
	if err := a.generate(ctx, "valuation", valuationSystemPrompt, valuationPrompt(address, providerID, identity, series), &out); err != nil {
		return nil, err
	}
	if out.EstimatedValue <= 0 && out.Narrative == "" {
		return nil, eris.New("narrative: valuation: empty payload")
	}
	return &out, nil
}

func (a *Anthropic) generate(ctx context.Context, job, system, prompt string, out any) error {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(system),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return eris.Wrapf(err, "narrative: %s", job)
	}
	resp.Usage.LogCost(a.model, job)

	text := cleanJSON(resp.Text())
	if err := json.Unmarshal([]byte(text), out); err != nil {
		zap.L().Debug("narrative: unparseable response",
			zap.String("job", job),
			zap.String("stop_reason", resp.StopReason),
		)
		return eris.Wrapf(err, "narrative: %s: parse response", job)
	}
	return nil
}
