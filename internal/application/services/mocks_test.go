package services

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
)

type mockStockProvider struct {
	mock.Mock
	name string
}

func (m *mockStockProvider) Name() string { return m.name }

func (m *mockStockProvider) GetStockQuotes(ctx context.Context, symbols []string, includeProfile bool) ([]entities.ProviderQuote, error) {
	args := m.Called(ctx, symbols, includeProfile)
	if q := args.Get(0); q != nil {
		return q.([]entities.ProviderQuote), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCryptoProvider struct {
	mock.Mock
}

func (m *mockCryptoProvider) GetCryptoMarkets(ctx context.Context, vsCurrency string, limit int) ([]entities.CryptoAsset, error) {
	args := m.Called(ctx, vsCurrency, limit)
	if a := args.Get(0); a != nil {
		return a.([]entities.CryptoAsset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCryptoProvider) GetMarketChart(ctx context.Context, coinID string, days int, vsCurrency string) ([]entities.Candle, error) {
	args := m.Called(ctx, coinID, days, vsCurrency)
	if c := args.Get(0); c != nil {
		return c.([]entities.Candle), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCryptoProvider) GetGainersLosers(ctx context.Context, vsCurrency string) ([]entities.CryptoAsset, []entities.CryptoAsset, error) {
	args := m.Called(ctx, vsCurrency)
	var gainers, losers []entities.CryptoAsset
	if g := args.Get(0); g != nil {
		gainers = g.([]entities.CryptoAsset)
	}
	if l := args.Get(1); l != nil {
		losers = l.([]entities.CryptoAsset)
	}
	return gainers, losers, args.Error(2)
}

type mockForexProvider struct {
	mock.Mock
}

func (m *mockForexProvider) GetPairRate(ctx context.Context, from, to string) (*entities.ForexPair, error) {
	args := m.Called(ctx, from, to)
	if p := args.Get(0); p != nil {
		return p.(*entities.ForexPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForexProvider) GetPopularForexPairs(ctx context.Context) ([]entities.ForexPair, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]entities.ForexPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockForexProvider) GetLatestRates(ctx context.Context, base string) (*entities.CurrencyRates, error) {
	args := m.Called(ctx, base)
	if r := args.Get(0); r != nil {
		return r.(*entities.CurrencyRates), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockHistoricalProvider struct {
	mock.Mock
}

func (m *mockHistoricalProvider) GetHistoricalData(ctx context.Context, symbol, timeframe, interval string) ([]entities.Candle, error) {
	args := m.Called(ctx, symbol, timeframe, interval)
	if c := args.Get(0); c != nil {
		return c.([]entities.Candle), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCustomClient struct {
	mock.Mock
}

func (m *mockCustomClient) Fetch(ctx context.Context, req interfaces.CustomRequest) (any, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}

func (m *mockCustomClient) Check(ctx context.Context, url string) (*interfaces.CheckResult, error) {
	args := m.Called(ctx, url)
	if r := args.Get(0); r != nil {
		return r.(*interfaces.CheckResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPinger struct {
	mock.Mock
	name string
}

func (m *mockPinger) Name() string { return m.name }

func (m *mockPinger) Ping(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(json.RawMessage), args.Error(1)
	}
	return nil, args.Error(1)
}
