package synthetic

import (
	"math"
	"testing"
	"time"

	"github.com/irfndi/synthseries/internal/calendar"
	"github.com/irfndi/synthseries/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

var fixedStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

func testOptions(t *testing.T, trendExp bool) Options {
	t.Helper()
	opts, err := NewOptions(trendExp, 0.1, 0.5)
	require.NoError(t, err)
	return opts
}

func dailyRequest(t *testing.T, transition bool) Request {
	start := fixedStart
	return Request{
		N:          10,
		Freq:       "D",
		Start:      &start,
		Options:    testOptions(t, false),
		Transition: transition,
	}
}

// candidates replays the two inner draws of Generate from the same seed
func candidates(t *testing.T, req Request, seed uint64) (models.RawSeries, models.RawSeries) {
	t.Helper()
	g := NewGenerator()
	rng := NewRand(seed)
	_, s1, err := g.GenerateOne(req, rng)
	require.NoError(t, err)
	_, s2, err := g.GenerateOne(req, rng)
	require.NoError(t, err)
	return s1, s2
}

func TestGenerate_NoTransitionExample(t *testing.T) {
	req := dailyRequest(t, false)

	gen, err := Generate(req, NewRand(42))
	require.NoError(t, err)

	assert.Equal(t, 1.0, gen.Config.Scale.Exp)
	assert.Equal(t, 0.0, gen.Config.Scale.Minute)
	assert.Equal(t, 0.0, gen.Config.Scale.Hourly)
	assert.Equal(t, 10, gen.Table.Len())

	s1, _ := candidates(t, req, 42)
	assert.Equal(t, s1.Values, gen.Table.SeriesValues)
	assert.Equal(t, s1.Noise, gen.Table.Noise)
	assert.Equal(t, s1.Dates, gen.Table.Dates)

	assert.False(t, gen.Provenance.Transition)
	assert.Nil(t, gen.Provenance.Secondary)
	assert.Nil(t, gen.Provenance.Weights)
}

func TestGenerate_AllOnesTransition(t *testing.T) {
	req := dailyRequest(t, true)

	gen, err := NewGenerator(WithWeights(ConstantWeights(1))).Generate(req, NewRand(42))
	require.NoError(t, err)

	s1, s2 := candidates(t, req, 42)
	assert.Equal(t, s1.Values, gen.Table.SeriesValues)
	assert.NotEqual(t, s2.Values, gen.Table.SeriesValues)
	require.NotNil(t, gen.Provenance.Secondary)
	assert.Len(t, gen.Provenance.Weights, req.N)
}

func TestGenerate_TransitionBetweenCandidates(t *testing.T) {
	for _, label := range Labels {
		t.Run(label, func(t *testing.T) {
			start := fixedStart
			req := Request{N: 120, Freq: label, Start: &start, Options: testOptions(t, true), Transition: true}

			gen, err := Generate(req, NewRand(7))
			require.NoError(t, err)

			s1, s2 := candidates(t, req, 7)
			for i, v := range gen.Table.SeriesValues {
				lo := math.Min(s1.Values[i], s2.Values[i])
				hi := math.Max(s1.Values[i], s2.Values[i])
				tol := 1e-12 * math.Max(1, math.Abs(hi))
				assert.True(t, v >= lo-tol && v <= hi+tol, "row %d: %g not in [%g, %g]", i, v, lo, hi)
			}
		})
	}
}

func TestGenerate_Lengths(t *testing.T) {
	opts := testOptions(t, true)
	for _, n := range []int{1, 2, 50, 333} {
		gen, err := Generate(Request{N: n, Options: opts, Transition: true, RandomWalk: n%2 == 0}, NewRand(uint64(n)))
		require.NoError(t, err)
		assert.Len(t, gen.Table.Dates, n)
		assert.Len(t, gen.Table.SeriesValues, n)
		assert.Len(t, gen.Table.Noise, n)
		assert.Len(t, gen.Table.Rows(), n)
	}
}

func TestGenerate_SameSeedReproduces(t *testing.T) {
	req := dailyRequest(t, true)
	a, err := Generate(req, NewRand(99))
	require.NoError(t, err)
	b, err := Generate(req, NewRand(99))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateOne_Independence(t *testing.T) {
	req := dailyRequest(t, false)
	g := NewGenerator()
	rng := NewRand(123)

	cfg1, _, err := g.GenerateOne(req, rng)
	require.NoError(t, err)
	cfg2, _, err := g.GenerateOne(req, rng)
	require.NoError(t, err)

	assert.NotEqual(t, cfg1.Scale, cfg2.Scale)
	assert.Equal(t, cfg1.Start, cfg2.Start)
}

func TestGenerateOne_SampledStartAndFrequency(t *testing.T) {
	g := NewGenerator()
	rng := NewRand(17)
	for i := 0; i < 20; i++ {
		cfg, series, err := g.GenerateOne(Request{N: 5, Options: testOptions(t, false)}, rng)
		require.NoError(t, err)
		assert.Contains(t, Labels, cfg.Frequency)
		assert.False(t, cfg.Start.Before(BaseStart))
		offset := calendar.MustParse(cfg.Frequency)
		assert.Equal(t, offset.RollForward(cfg.Start), series.Dates[0])
	}
}

func TestGenerate_Errors(t *testing.T) {
	opts := testOptions(t, false)

	_, err := Generate(Request{N: 0, Freq: "D", Options: opts}, NewRand(1))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Generate(Request{N: -3, Options: opts}, NewRand(1))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Generate(Request{N: 5, Freq: "fortnightly", Options: opts}, NewRand(1))
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)

	_, err = Generate(Request{N: 5, Freq: "D", Options: Options{ScaleNoise: NoiseRatios{Low: 0.9, Moderate: 0.9}}}, NewRand(1))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestRequest_ValidateHorizon(t *testing.T) {
	opts := testOptions(t, false)
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		req   Request
		valid bool
	}{
		{"yearly up to 9999", Request{N: 7980, Freq: "Y", Start: &start, Options: opts}, true},
		{"yearly past 9999", Request{N: 9000, Freq: "Y", Start: &start, Options: opts}, false},
		{"monthly past 9999", Request{N: 100000, Freq: "MS", Start: &start, Options: opts}, false},
		{"minutely long", Request{N: 100000, Freq: "min", Start: &start, Options: opts}, true},
		{"sampled start assumes latest", Request{N: 7977, Freq: "Y", Options: opts}, true},
		{"sampled start past 9999", Request{N: 7978, Freq: "Y", Options: opts}, false},
		{"any frequency must fit", Request{N: 8000, Start: &start, Options: opts}, false},
		{"any frequency fits", Request{N: 500, Start: &start, Options: opts}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidLength)
		})
	}
}

func TestGenerate_LongYearlyIndexEncodes(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	gen, err := Generate(Request{N: 7980, Freq: "Y", Start: &start, Options: testOptions(t, false)}, NewRand(8))
	require.NoError(t, err)

	last := gen.Table.Dates[gen.Table.Len()-1]
	assert.Equal(t, 9999, last.Year())
	_, err = last.MarshalJSON()
	assert.NoError(t, err)
}

func TestGenerate_BadWeights(t *testing.T) {
	short := func(n int, _ *rand.Rand) []float64 { return make([]float64, n-1) }
	_, err := NewGenerator(WithWeights(short)).Generate(dailyRequest(t, true), NewRand(1))
	assert.Error(t, err)
}

func TestOptionsSpec_Resolve(t *testing.T) {
	yes := true
	ratios := []float64{0.6, 0.3}

	_, err := OptionsSpec{ScaleNoise: &ratios}.Resolve()
	assert.ErrorIs(t, err, ErrMissingOption)
	assert.Contains(t, err.Error(), OptionTrendExp)

	_, err = OptionsSpec{TrendExp: &yes}.Resolve()
	assert.ErrorIs(t, err, ErrMissingOption)
	assert.Contains(t, err.Error(), OptionScaleNoise)

	bad := []float64{0.5}
	_, err = OptionsSpec{TrendExp: &yes, ScaleNoise: &bad}.Resolve()
	assert.ErrorIs(t, err, ErrInvalidOption)

	opts, err := OptionsSpec{TrendExp: &yes, ScaleNoise: &ratios}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, Options{TrendExp: true, ScaleNoise: NoiseRatios{Low: 0.6, Moderate: 0.3}}, opts)

	back, err := opts.Spec().Resolve()
	require.NoError(t, err)
	assert.Equal(t, opts, back)
}

func TestTransitionWeights(t *testing.T) {
	rng := NewRand(4)
	assert.Nil(t, TransitionWeights(0, rng))
	assert.Equal(t, []float64{1}, TransitionWeights(1, rng))

	w := TransitionWeights(200, rng)
	require.Len(t, w, 200)
	for i, v := range w {
		assert.True(t, v >= 0 && v <= 1)
		if i > 0 {
			assert.LessOrEqual(t, v, w[i-1])
		}
	}
	assert.Greater(t, w[0], 0.5)
	assert.Less(t, w[199], 0.5)
}

func TestBlend(t *testing.T) {
	out := Blend([]float64{1, 0, 0.5}, []float64{2, 2, 2}, []float64{4, 4, 4})
	assert.Equal(t, []float64{2, 4, 3}, out)
}

func TestDeriveSeed(t *testing.T) {
	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		s := DeriveSeed(42, i)
		assert.False(t, seen[s])
		seen[s] = true
		assert.Equal(t, s, DeriveSeed(42, i))
	}
	assert.NotEqual(t, RandomSeed(), RandomSeed())
}
