package synthetic

import (
	"math"
	"time"

	"github.com/irfndi/synthseries/internal/calendar"
	"github.com/irfndi/synthseries/internal/models"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	expCap       = 1.01
	linearSigma  = 0.01
	expSigmaBase = 0.005
)

var (
	// BaseStart and BaseEnd bound the sampled start dates
	BaseStart = time.Date(1885, time.January, 1, 0, 0, 0, 0, time.UTC)
	BaseEnd   = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Sampler draws every random parameter of a SeriesConfig from one stream
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler bound to rng
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

func (s *Sampler) uniform(min, max float64) float64 {
	u := distuv.Uniform{Min: min, Max: max, Src: s.rng}
	return u.Rand()
}

func (s *Sampler) normal(mu, sigma float64) float64 {
	n := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.rng}
	return n.Rand()
}

// SampleScale draws the component amplitudes for a frequency offset code.
// Periodic components not listed for the code stay at zero.
func (s *Sampler) SampleScale(offsetCode string, timescale float64, trendExp bool) (models.ComponentScale, error) {
	scale := models.ComponentScale{Role: models.RoleScale, Base: 1.0}

	switch offsetCode {
	case calendar.Minute:
		scale.Minute = s.uniform(0, 1)
		scale.Hourly = s.uniform(0, 0.2)
	case calendar.Hour:
		scale.Minute = s.uniform(0, 0.1)
		scale.Hourly = s.uniform(0, 1)
		scale.Weekly = s.uniform(0, 0.4)
	case calendar.Day:
		scale.Weekly = s.uniform(0, 1)
		scale.Monthly = s.uniform(0, 0.4)
		scale.Annual = s.uniform(0, 0.2)
	case calendar.Week:
		scale.Monthly = s.uniform(0, 0.3)
		scale.Annual = s.uniform(0, 0.8)
	case calendar.MonthStart:
		scale.Weekly = s.uniform(0, 0.1)
		scale.Annual = s.uniform(0, 1)
	case calendar.YearEnd:
		scale.Weekly = s.uniform(0, 0.2)
		scale.Annual = s.uniform(0, 1)
	default:
		return models.ComponentScale{}, unsupportedFrequency(offsetCode)
	}

	scale.Linear = s.normal(0, linearSigma)
	scale.Exp = 1.0
	if trendExp {
		scale.Exp = math.Min(expCap, s.normal(1, expSigmaBase/timescale))
	}
	return scale, nil
}

// SampleOffset draws the phase shifts. Minute and hourly offsets are left at
// zero.
func (s *Sampler) SampleOffset() models.ComponentScale {
	return models.ComponentScale{
		Role:    models.RoleOffset,
		Base:    0,
		Linear:  s.uniform(-0.1, 0.5),
		Exp:     s.uniform(-0.1, 0.5),
		Annual:  s.uniform(0, 1),
		Monthly: s.uniform(0, 1),
		Weekly:  s.uniform(0, 1),
	}
}

// SampleNoise draws the Weibull shape and the tiered noise scale
func (s *Sampler) SampleNoise(ratios NoiseRatios) models.ComponentNoise {
	return models.ComponentNoise{
		K:      s.uniform(1, 5),
		Median: 1,
		Scale:  s.SampleScaleRatio(ratios.Low, ratios.Moderate),
	}
}

// SampleScaleRatio picks a noise scale from the low tier with probability
// low, the moderate tier with probability moderate, and the high tier
// otherwise.
func (s *Sampler) SampleScaleRatio(low, moderate float64) float64 {
	u := s.rng.Float64()
	switch {
	case u <= low:
		return s.uniform(0, 0.1)
	case u <= low+moderate:
		return s.uniform(0.2, 0.5)
	default:
		return s.uniform(0.7, 0.9)
	}
}

// SampleStart draws a start date skewed toward BaseEnd via Beta(5, 1)
func (s *Sampler) SampleStart() time.Time {
	b := distuv.Beta{Alpha: 5, Beta: 1, Src: s.rng}
	t := b.Rand()
	lo, hi := toOrdinal(BaseStart), toOrdinal(BaseEnd)
	ordinal := int64(math.Round(float64(hi-lo)*t + float64(lo)))
	return fromOrdinal(ordinal)
}

// unixEpochOrdinal is the proleptic Gregorian day number of 1970-01-01,
// counting 0001-01-01 as day 1.
const unixEpochOrdinal = 719163

func toOrdinal(t time.Time) int64 {
	return t.Unix()/86400 + unixEpochOrdinal
}

func fromOrdinal(ordinal int64) time.Time {
	return time.Unix((ordinal-unixEpochOrdinal)*86400, 0).UTC()
}
