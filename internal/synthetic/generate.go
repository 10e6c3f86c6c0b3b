package synthetic

import (
	"fmt"
	"time"

	"github.com/irfndi/synthseries/internal/calendar"
	"github.com/irfndi/synthseries/internal/models"
	"golang.org/x/exp/rand"
)

// Request describes one blended generation. An empty Freq picks a label at
// random per candidate; a nil Start samples one per candidate.
type Request struct {
	N          int        `json:"n"`
	Freq       string     `json:"freq,omitempty"`
	Start      *time.Time `json:"start,omitempty"`
	Options    Options    `json:"options"`
	Transition bool       `json:"transition"`
	RandomWalk bool       `json:"random_walk"`
}

// Validate rejects requests before any random draw is made
func (r Request) Validate() error {
	if r.N <= 0 {
		return fmt.Errorf("%w: n must be positive, got %d", ErrInvalidLength, r.N)
	}
	if r.Freq != "" {
		if _, err := Resolve(r.Freq); err != nil {
			return err
		}
	}
	if err := r.checkHorizon(); err != nil {
		return err
	}
	return r.Options.Validate()
}

// checkHorizon rejects lengths whose index would run past calendar.MaxTime.
// Without a start the latest sampled one, BaseEnd, is assumed; without a
// frequency every label must fit.
func (r Request) checkHorizon() error {
	start := BaseEnd
	if r.Start != nil {
		start = *r.Start
	}
	labels := Labels
	if r.Freq != "" {
		labels = []string{r.Freq}
	}
	for _, label := range labels {
		p, err := Resolve(label)
		if err != nil {
			return err
		}
		if !p.Offset().Fits(start, r.N) {
			return fmt.Errorf("%w: %d %s periods from %s end after %s", ErrInvalidLength,
				r.N, p.Label, start.Format(time.DateOnly), calendar.MaxTime.Format(time.DateOnly))
		}
	}
	return nil
}

// Generator composes the samplers, the series builder and the blender.
// The zero value is not usable; use NewGenerator.
type Generator struct {
	weights WeightsFunc
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithWeights replaces the transition weight producer
func WithWeights(fn WeightsFunc) GeneratorOption {
	return func(g *Generator) {
		g.weights = fn
	}
}

// NewGenerator returns a generator using TransitionWeights unless overridden
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{weights: TransitionWeights}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateOne samples a single configuration and builds its candidate series
func (g *Generator) GenerateOne(req Request, rng *rand.Rand) (models.SeriesConfig, models.RawSeries, error) {
	if err := req.Validate(); err != nil {
		return models.SeriesConfig{}, models.RawSeries{}, err
	}

	label := req.Freq
	if label == "" {
		label = ChooseLabel(rng)
	}
	profile, err := Resolve(label)
	if err != nil {
		return models.SeriesConfig{}, models.RawSeries{}, err
	}

	s := NewSampler(rng)
	scale, err := s.SampleScale(profile.OffsetCode, profile.Timescale, req.Options.TrendExp)
	if err != nil {
		return models.SeriesConfig{}, models.RawSeries{}, err
	}

	var start time.Time
	if req.Start != nil {
		start = *req.Start
	} else {
		start = s.SampleStart()
	}

	cfg := models.SeriesConfig{
		Frequency: profile.Label,
		Start:     start,
		Scale:     scale,
		Offset:    s.SampleOffset(),
		Noise:     s.SampleNoise(req.Options.ScaleNoise),
	}

	series := BuildSeries(cfg, profile.Offset(), req.N, profile.Timescale, req.RandomWalk, rng)
	return cfg, series, nil
}

// Generate draws two independent candidates and blends them. Without a
// transition the first candidate's values are returned verbatim. Dates and
// noise always come from the first candidate.
func (g *Generator) Generate(req Request, rng *rand.Rand) (models.Generation, error) {
	cfg1, series1, err := g.GenerateOne(req, rng)
	if err != nil {
		return models.Generation{}, err
	}
	cfg2, series2, err := g.GenerateOne(req, rng)
	if err != nil {
		return models.Generation{}, err
	}

	provenance := models.BlendProvenance{Transition: req.Transition}
	values := series1.Values
	if req.Transition {
		weights := g.weights(req.N, rng)
		if len(weights) != req.N {
			return models.Generation{}, fmt.Errorf("transition weights: got %d, want %d", len(weights), req.N)
		}
		values = Blend(weights, series1.Values, series2.Values)
		provenance.Secondary = &cfg2
		provenance.Weights = weights
	}

	return models.Generation{
		Config: cfg1,
		Table: models.SeriesTable{
			Dates:        series1.Dates,
			SeriesValues: values,
			Noise:        series1.Noise,
		},
		Provenance: provenance,
	}, nil
}

// Generate runs a default Generator
func Generate(req Request, rng *rand.Rand) (models.Generation, error) {
	return NewGenerator().Generate(req, rng)
}
