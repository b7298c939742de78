package main

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/property-report/internal/model"
)

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

func testIdentity() *model.PropertyIdentity {
	return &model.PropertyIdentity{
		ProviderID: "Z1",
		Address:    "123 Main St, Anytown, CA 90210",
		ZipCode:    "90210",
		Bedrooms:   3,
		Latitude:   34.09,
		Longitude:  -118.41,
	}
}

// expectDependents stubs the four dependent lookups for testIdentity.
func expectDependents(gw *mockGateway) {
	gw.On("FetchPropertyImages", mock.Anything, "Z1", mock.Anything).Return(model.ImageList{{URL: "https://img/1.jpg"}}, nil)
	gw.On("FetchComparables", mock.Anything, "Z1").Return(model.ComparableList{
		{ProviderID: "C1", Address: "125 Main St", Price: 840000, LivingArea: 1550, Latitude: 34.1, Longitude: -118.4},
	}, nil)
	gw.On("FetchMarketStatistics", mock.Anything, "90210").Return(&model.MarketStats{PostalCode: "90210"}, nil)
	gw.On("FetchValuationSeries", mock.Anything, "Z1").Return(model.ValuationSeries{
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Value: 850000},
	}, nil)
}
