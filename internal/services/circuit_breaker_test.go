package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/synthseries/internal/cache"
	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/testutil"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	}, testLogger())
	cb.now = clock.now
	return cb
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("defaults", CircuitBreakerConfig{}, testLogger())
	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 2, cb.config.SuccessThreshold)
	assert.Equal(t, 30*time.Second, cb.config.Timeout)
	assert.Equal(t, Closed, cb.GetState())
}

func TestCircuitBreaker_StateMachine(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := newTestBreaker(clock)
	ctx := context.Background()
	fail := func(context.Context) error { return errors.New("write failed") }
	ok := func(context.Context) error { return nil }

	for i := 0; i < 2; i++ {
		assert.Error(t, cb.Execute(ctx, fail))
	}
	assert.Equal(t, Closed, cb.GetState())

	// a success resets the consecutive failure count
	require.NoError(t, cb.Execute(ctx, ok))
	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(ctx, fail))
	}
	assert.Equal(t, Open, cb.GetState())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.t = clock.t.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, HalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, Closed, cb.GetState())

	stats := cb.GetStats()
	assert.Equal(t, int64(1), stats.RejectedRequests)
	assert.Equal(t, int64(5), stats.FailedRequests)
	assert.Equal(t, int64(3), stats.StateChanges)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := newTestBreaker(clock)
	for i := 0; i < 3; i++ {
		cb.Record(errors.New("x"))
	}
	require.Equal(t, Open, cb.GetState())

	clock.t = clock.t.Add(time.Minute)
	require.True(t, cb.Allow())
	cb.Record(errors.New("still down"))
	assert.Equal(t, Open, cb.GetState())

	cb.Reset()
	assert.Equal(t, Closed, cb.GetState())
	assert.Equal(t, "half-open", HalfOpen.String())
}

func TestGuardedStore(t *testing.T) {
	store := &MockGenerationStore{}
	store.On("Set", mock.Anything, "k", uint64(1), mock.Anything).Return(errors.New("redis down"))

	guarded := NewGuardedStore(store, CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour}, testLogger())
	ctx := context.Background()

	store.On("Get", mock.Anything, "k").Return(nil, false).Once()
	_, found := guarded.Get(ctx, "k")
	assert.False(t, found)

	for i := 0; i < 2; i++ {
		assert.EqualError(t, guarded.Set(ctx, "k", 1, models.Generation{}), "redis down")
	}
	assert.Equal(t, Open, guarded.Breaker().GetState())

	// open breaker: neither call reaches the store
	_, found = guarded.Get(ctx, "k")
	assert.False(t, found)
	assert.ErrorIs(t, guarded.Set(ctx, "k", 1, models.Generation{}), ErrCircuitOpen)

	store.AssertNumberOfCalls(t, "Get", 1)
	store.AssertNumberOfCalls(t, "Set", 2)
}

func TestGeneratorService_GuardedStore(t *testing.T) {
	store := &MockGenerationStore{}
	store.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, false)
	store.On("Set", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(errors.New("redis down"))

	guarded := NewGuardedStore(store, CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour}, testLogger())
	svc := NewGeneratorService(testGenerationConfig(), guarded, testLogger())

	for seed := uint64(1); seed <= 3; seed++ {
		_, err := svc.Generate(context.Background(), dailyInput(seedPtr(seed)))
		require.NoError(t, err)
	}
	store.AssertNumberOfCalls(t, "Set", 1)
}

func TestGuardedStore_EncodingFailureKeepsBreakerClosed(t *testing.T) {
	store := &MockGenerationStore{}
	encodeErr := fmt.Errorf("%w: json: unsupported value: +Inf", cache.ErrUnserializable)
	store.On("Set", mock.Anything, "k", uint64(1), mock.Anything).Return(encodeErr)

	guarded := NewGuardedStore(store, CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour}, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, guarded.Set(ctx, "k", 1, models.Generation{}), cache.ErrUnserializable)
	}
	assert.Equal(t, Closed, guarded.Breaker().GetState())
	assert.Zero(t, guarded.Breaker().GetStats().FailedRequests)
	store.AssertNumberOfCalls(t, "Set", 3)
}

func TestGuardedStore_NonFiniteGenerationWithRedis(t *testing.T) {
	_, client := testutil.NewMiniRedis(t)
	genCache := cache.NewGenerationCache(client, time.Minute, testLogger())
	guarded := NewGuardedStore(genCache, CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour}, testLogger())

	gen := models.Generation{Table: models.SeriesTable{
		Dates:        []time.Time{time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		SeriesValues: []float64{math.NaN()},
		Noise:        []float64{1},
	}}
	ctx := context.Background()

	assert.ErrorIs(t, guarded.Set(ctx, "synth:nan", 1, gen), cache.ErrUnserializable)
	assert.Equal(t, Closed, guarded.Breaker().GetState())

	// a healthy Redis still accepts the next write
	gen.Table.SeriesValues[0] = 2
	require.NoError(t, guarded.Set(ctx, "synth:ok", 1, gen))
	_, found := guarded.Get(ctx, "synth:ok")
	assert.True(t, found)
}
