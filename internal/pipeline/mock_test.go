package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/property-report/internal/model"
)

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) FetchPropertyIdentity(ctx context.Context, address string) (*model.PropertyIdentity, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PropertyIdentity), args.Error(1)
}

func (m *mockGateway) FetchPropertyImages(ctx context.Context, providerID string, timeout time.Duration) (model.ImageList, error) {
	args := m.Called(ctx, providerID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ImageList), args.Error(1)
}

func (m *mockGateway) FetchComparables(ctx context.Context, providerID string) (model.ComparableList, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ComparableList), args.Error(1)
}

func (m *mockGateway) FetchMarketStatistics(ctx context.Context, postalCode string) (*model.MarketStats, error) {
	args := m.Called(ctx, postalCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MarketStats), args.Error(1)
}

func (m *mockGateway) FetchValuationSeries(ctx context.Context, providerID string) (model.ValuationSeries, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ValuationSeries), args.Error(1)
}

// --- Narrative Mock ---

type mockNarrative struct {
	mock.Mock
}

func (m *mockNarrative) GenerateSummary(ctx context.Context, address string, identity *model.PropertyIdentity, q model.Questionnaire) (*model.SummaryPayload, error) {
	args := m.Called(ctx, address, identity, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SummaryPayload), args.Error(1)
}

func (m *mockNarrative) GenerateValuation(ctx context.Context, address, providerID string, identity *model.PropertyIdentity, series model.ValuationSeries) (*model.ValuationPayload, error) {
	args := m.Called(ctx, address, providerID, identity, series)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ValuationPayload), args.Error(1)
}

// --- Identity sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) PutIdentity(ctx context.Context, key string, identity *model.PropertyIdentity, ttl time.Duration) error {
	args := m.Called(ctx, key, identity, ttl)
	return args.Error(0)
}
