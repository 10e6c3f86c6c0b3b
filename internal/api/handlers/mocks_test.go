package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/synthseries/internal/cache"
	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/services"
)

// MockSeriesGenerator is a mock implementation of SeriesGenerator
type MockSeriesGenerator struct {
	mock.Mock
}

func (m *MockSeriesGenerator) Defaults() services.GenerateInput {
	args := m.Called()
	return args.Get(0).(services.GenerateInput)
}

func (m *MockSeriesGenerator) Generate(ctx context.Context, in services.GenerateInput) (*services.GenerateResult, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*services.GenerateResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSeriesGenerator) GenerateBatch(ctx context.Context, in services.BatchInput) (*services.BatchResult, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*services.BatchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSeriesAnalyzer is a mock implementation of SeriesAnalyzer
type MockSeriesAnalyzer struct {
	mock.Mock
}

func (m *MockSeriesAnalyzer) Analyze(ctx context.Context, table models.SeriesTable, cfg services.IndicatorConfig) (*services.SeriesDiagnostics, error) {
	args := m.Called(ctx, table, cfg)
	if res := args.Get(0); res != nil {
		return res.(*services.SeriesDiagnostics), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCacheStore is a mock implementation of CacheStore
type MockCacheStore struct {
	mock.Mock
}

func (m *MockCacheStore) GetStats() cache.GenerationCacheStats {
	args := m.Called()
	return args.Get(0).(cache.GenerationCacheStats)
}

func (m *MockCacheStore) Clear(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
