package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/synthseries/internal/cache"
	"github.com/irfndi/synthseries/internal/config"
	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/synthetic"
	"github.com/irfndi/synthseries/internal/telemetry"
	"github.com/irfndi/synthseries/internal/utils"
)

// GenerationStore is the subset of the generation cache the service needs
type GenerationStore interface {
	Get(ctx context.Context, key string) (*cache.GenerationCacheEntry, bool)
	Set(ctx context.Context, key string, seed uint64, gen models.Generation) error
}

// EventLogger receives the structured generation and cache events.
// logging.StandardLogger implements it.
type EventLogger interface {
	LogGeneration(frequency string, length int, transition bool, duration int64)
	LogCacheOperation(operation string, key string, hit bool, duration int64)
}

// GenerateInput is one generation request as it arrives at the service.
// A nil Seed draws a fresh one; only seeded requests are cached.
type GenerateInput struct {
	N          int               `json:"n"`
	Freq       string            `json:"freq,omitempty"`
	Start      *time.Time        `json:"start,omitempty"`
	Options    synthetic.Options `json:"options"`
	Transition bool              `json:"transition"`
	RandomWalk bool              `json:"random_walk"`
	Seed       *uint64           `json:"seed,omitempty"`
}

// Request converts the input to the generator's request type
func (in GenerateInput) Request() synthetic.Request {
	return synthetic.Request{
		N:          in.N,
		Freq:       in.Freq,
		Start:      in.Start,
		Options:    in.Options,
		Transition: in.Transition,
		RandomWalk: in.RandomWalk,
	}
}

// GenerateResult is a generation plus the seed that reproduces it
type GenerateResult struct {
	Generation models.Generation `json:"generation"`
	Seed       uint64            `json:"seed"`
	Cached     bool              `json:"cached"`
}

// BatchInput is a list of jobs sharing one base seed
type BatchInput struct {
	Jobs []GenerateInput `json:"jobs"`
	Seed *uint64         `json:"seed,omitempty"`
}

// BatchResult keeps results in job order
type BatchResult struct {
	Seed    uint64            `json:"seed"`
	Results []*GenerateResult `json:"results"`
}

// cacheKey is the canonical form hashed into a cache key
type cacheKey struct {
	Request synthetic.Request `json:"request"`
	Seed    uint64            `json:"seed"`
}

// GeneratorService runs generations against the configured limits
type GeneratorService struct {
	config    config.GenerationConfig
	store     GenerationStore
	generator *synthetic.Generator
	tracer    *telemetry.GenerationTracer
	logger    *logrus.Logger
	events    EventLogger
}

// NewGeneratorService creates a generator service. store may be nil, which
// disables caching.
func NewGeneratorService(cfg config.GenerationConfig, store GenerationStore, logger *logrus.Logger) *GeneratorService {
	return &GeneratorService{
		config:    cfg,
		store:     store,
		generator: synthetic.NewGenerator(),
		tracer:    telemetry.NewGenerationTracer(),
		logger:    logger,
	}
}

// SetEventLogger attaches a sink for generation and cache events
func (s *GeneratorService) SetEventLogger(events EventLogger) {
	s.events = events
}

// Defaults returns an input populated from the configured defaults
func (s *GeneratorService) Defaults() GenerateInput {
	return GenerateInput{
		N: s.config.DefaultLength,
		Options: synthetic.Options{
			TrendExp: s.config.TrendExp,
			ScaleNoise: synthetic.NoiseRatios{
				Low:      s.config.NoiseLowRatio,
				Moderate: s.config.NoiseModRatio,
			},
		},
		Transition: s.config.Transition,
		RandomWalk: s.config.RandomWalk,
	}
}

// Generate runs one generation, serving seeded repeats from the cache
func (s *GeneratorService) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.TraceGeneration(ctx, in.Freq, in.N, in.Transition)

	result, err := s.generate(ctx, in)

	telemetryResult := telemetry.GenerationResult{Duration: time.Since(start), Err: err}
	if result != nil {
		telemetryResult.Frequency = result.Generation.Config.Frequency
		telemetryResult.Rows = result.Generation.Table.Len()
		telemetryResult.Seed = result.Seed
		telemetryResult.CacheHit = result.Cached
	}
	s.tracer.RecordGenerationResult(span, telemetryResult)

	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"frequency":   result.Generation.Config.Frequency,
		"length":      in.N,
		"transition":  in.Transition,
		"random_walk": in.RandomWalk,
		"seed":        result.Seed,
		"cached":      result.Cached,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Series generated")

	if s.events != nil {
		s.events.LogGeneration(result.Generation.Config.Frequency, in.N, in.Transition, time.Since(start).Milliseconds())
	}

	return result, nil
}

func (s *GeneratorService) generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	req := in.Request()

	seed := synthetic.RandomSeed()
	if in.Seed != nil {
		seed = *in.Seed
	}

	var key string
	if in.Seed != nil && s.store != nil {
		k, err := cache.Key(cacheKey{Request: req, Seed: seed})
		if err != nil {
			s.logger.WithError(err).Warn("Failed to build cache key")
		} else {
			key = k
			lookup := time.Now()
			entry, ok := s.store.Get(ctx, key)
			s.cacheEvent("get", key, ok, lookup)
			if ok {
				return &GenerateResult{Generation: entry.Generation, Seed: entry.Seed, Cached: true}, nil
			}
		}
	}

	gen, err := s.generator.Generate(req, synthetic.NewRand(seed))
	if err != nil {
		return nil, classify(err)
	}

	if key != "" {
		write := time.Now()
		if err := s.store.Set(ctx, key, seed, gen); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Failed to cache generation")
		} else {
			s.cacheEvent("set", key, false, write)
		}
	}

	return &GenerateResult{Generation: gen, Seed: seed}, nil
}

func (s *GeneratorService) cacheEvent(operation, key string, hit bool, start time.Time) {
	if s.events != nil {
		s.events.LogCacheOperation(operation, key, hit, time.Since(start).Milliseconds())
	}
}

// GenerateBatch runs jobs concurrently. Jobs without their own seed get
// DeriveSeed(base, index), so a seeded batch is reproducible job by job.
func (s *GeneratorService) GenerateBatch(ctx context.Context, in BatchInput) (*BatchResult, error) {
	if len(in.Jobs) == 0 {
		return nil, utils.NewValidationError("jobs: at least one job is required")
	}
	if len(in.Jobs) > s.config.MaxBatch {
		return nil, utils.NewValidationErrorf("jobs: batch size %d exceeds limit %d", len(in.Jobs), s.config.MaxBatch)
	}
	for i, job := range in.Jobs {
		if err := s.validate(job); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}

	base := synthetic.RandomSeed()
	if in.Seed != nil {
		base = *in.Seed
	}

	start := time.Now()
	ctx, span := s.tracer.TraceBatch(ctx, len(in.Jobs), s.config.Concurrency)

	results := make([]*GenerateResult, len(in.Jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for i, job := range in.Jobs {
		if job.Seed == nil {
			derived := synthetic.DeriveSeed(base, i)
			job.Seed = &derived
		}
		g.Go(func() error {
			res, err := s.Generate(gctx, job)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	completed := 0
	for _, r := range results {
		if r != nil {
			completed++
		}
	}
	s.tracer.RecordBatchResult(span, completed, time.Since(start), err)

	if err != nil {
		s.logger.WithError(err).WithField("jobs", len(in.Jobs)).Warn("Batch generation failed")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"jobs":        len(in.Jobs),
		"seed":        base,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Batch generated")

	return &BatchResult{Seed: base, Results: results}, nil
}

// validate applies the service limits on top of the generator's own checks
func (s *GeneratorService) validate(in GenerateInput) error {
	if s.config.MaxLength > 0 && in.N > s.config.MaxLength {
		return utils.NewFieldError("n", fmt.Errorf("%w: %d exceeds limit %d", synthetic.ErrInvalidLength, in.N, s.config.MaxLength))
	}
	if err := in.Request().Validate(); err != nil {
		return classify(err)
	}
	return nil
}

// classify attributes generator errors to the request field that caused them
func classify(err error) error {
	switch {
	case errors.Is(err, synthetic.ErrInvalidLength):
		return utils.NewFieldError("n", err)
	case errors.Is(err, synthetic.ErrUnsupportedFrequency):
		return utils.NewFieldError("freq", err)
	case errors.Is(err, synthetic.ErrInvalidOption), errors.Is(err, synthetic.ErrMissingOption):
		return utils.NewFieldError("options", err)
	default:
		return err
	}
}
