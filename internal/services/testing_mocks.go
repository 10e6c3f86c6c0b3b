package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/synthseries/internal/cache"
	"github.com/irfndi/synthseries/internal/models"
)

// MockGenerationStore implements GenerationStore for testing within the services package
type MockGenerationStore struct {
	mock.Mock
}

func (m *MockGenerationStore) Get(ctx context.Context, key string) (*cache.GenerationCacheEntry, bool) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*cache.GenerationCacheEntry), args.Bool(1)
}

func (m *MockGenerationStore) Set(ctx context.Context, key string, seed uint64, gen models.Generation) error {
	args := m.Called(ctx, key, seed, gen)
	return args.Error(0)
}
