package gateway

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/property-report/pkg/propdata"
)

// --- Property data Mock ---

type mockPropDataClient struct {
	mock.Mock
}

func (m *mockPropDataClient) Property(ctx context.Context, address string) (*propdata.Property, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*propdata.Property), args.Error(1)
}

func (m *mockPropDataClient) Images(ctx context.Context, zpid string) (*propdata.ImagesResponse, error) {
	args := m.Called(ctx, zpid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*propdata.ImagesResponse), args.Error(1)
}

func (m *mockPropDataClient) Comps(ctx context.Context, zpid string) (*propdata.CompsResponse, error) {
	args := m.Called(ctx, zpid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*propdata.CompsResponse), args.Error(1)
}

func (m *mockPropDataClient) MarketData(ctx context.Context, zip string) (*propdata.MarketResponse, error) {
	args := m.Called(ctx, zip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*propdata.MarketResponse), args.Error(1)
}

func (m *mockPropDataClient) ValueHistory(ctx context.Context, zpid string) (*propdata.ValueHistoryResponse, error) {
	args := m.Called(ctx, zpid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*propdata.ValueHistoryResponse), args.Error(1)
}
