package narrative

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/pkg/anthropic"
)

const testModel = "claude-sonnet-4-5-20250929"

func testIdentity() *model.PropertyIdentity {
	return &model.PropertyIdentity{
		ProviderID:     "Z1",
		Address:        "123 Main St, Anytown, CA 90210",
		Bedrooms:       3,
		Bathrooms:      2,
		LivingArea:     1600,
		YearBuilt:      1978,
		EstimatedValue: 850000,
	}
}

func TestGenerateSummary(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == testModel &&
			len(req.System) == 1 && req.System[0].CacheControl != nil &&
			len(req.Messages) == 1 &&
			strings.Contains(req.Messages[0].Content, "Bedrooms: 3") &&
			strings.Contains(req.Messages[0].Content, "Timeline: 3 months")
	})).Return(textResponse("```json\n{\"headline\":\"Sunny ranch\",\"summary\":\"Nice.\",\"highlights\":[\"Big yard\"]}\n```"), nil)

	p := NewAnthropic(client, testModel, 512)
	got, err := p.GenerateSummary(context.Background(), "123 Main St, Anytown, CA", testIdentity(),
		model.Questionnaire{SellingTimeline: "3 months"})
	require.NoError(t, err)
	assert.Equal(t, &model.SummaryPayload{Headline: "Sunny ranch", Summary: "Nice.", Highlights: []string{"Big yard"}}, got)
	client.AssertExpectations(t)
}

func TestGenerateSummary_ClientError(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := NewAnthropic(client, testModel, 0).GenerateSummary(context.Background(), "a", testIdentity(), model.Questionnaire{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narrative: summary")
}

func TestGenerateSummary_Unparseable(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("I cannot help with that."), nil)

	_, err := NewAnthropic(client, testModel, 0).GenerateSummary(context.Background(), "a", testIdentity(), model.Questionnaire{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestGenerateValuation(t *testing.T) {
	series := model.ValuationSeries{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 800000},
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Value: 840000},
	}
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		c := req.Messages[0].Content
		return strings.Contains(c, "Property Z1") && strings.Contains(c, "2025-01-01, 840000") &&
			strings.Contains(c, "5.0%")
	})).Return(textResponse(`Here you go: {"estimated_value": 845000, "low_estimate": 820000, "high_estimate": 870000, "confidence": "medium", "trend": "rising", "narrative": "Up.", "factors": ["history"]}`), nil)

	got, err := NewAnthropic(client, testModel, 0).GenerateValuation(context.Background(), "123 Main St", "Z1", testIdentity(), series)
	require.NoError(t, err)
	assert.InDelta(t, 845000, got.EstimatedValue, 0.1)
	assert.Equal(t, "rising", got.Trend)
	assert.Equal(t, []string{"history"}, got.Factors)
}

func TestGenerateValuation_RequiresProviderID(t *testing.T) {
	client := new(mockAnthropicClient)
	_, err := NewAnthropic(client, testModel, 0).GenerateValuation(context.Background(), "a", "", testIdentity(), nil)
	require.Error(t, err)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestValuationPrompt_NoHistory(t *testing.T) {
	p := valuationPrompt("a", "Z1", testIdentity(), nil)
	assert.Contains(t, p, "No value history is available.")
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`Sure! {"a":{"b":2}} Hope that helps.`, `{"a":{"b":2}}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanJSON(tt.in))
	}
}

func TestDefaultCanned(t *testing.T) {
	c := DefaultCanned()
	assert.NotEmpty(t, c.Summary.Fallback.Headline)
	assert.NotEmpty(t, c.Summary.Fallback.Summary)
	assert.NotEmpty(t, c.Summary.Demo.Highlights)
	assert.NotEmpty(t, c.Valuation.Fallback.Narrative)
	assert.Positive(t, c.Valuation.Demo.EstimatedValue)
	assert.Equal(t, "low", c.Valuation.Fallback.Confidence)
}

func TestLoadCanned_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canned.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
valuation:
  demo:
    estimated_value: 1000
    narrative: "Demo override"
`), 0o644))

	c, err := LoadCanned(path)
	require.NoError(t, err)
	assert.Equal(t, "Demo override", c.Valuation.Demo.Narrative)
	assert.InDelta(t, 1000, c.Valuation.Demo.EstimatedValue, 0.1)
	assert.Equal(t, DefaultCanned().Summary, c.Summary)
}

func TestLoadCanned_Errors(t *testing.T) {
	_, err := LoadCanned(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("summary: [unclosed"), 0o644))
	_, err = LoadCanned(path)
	require.Error(t, err)

	c, err := LoadCanned("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCanned(), c)
}
