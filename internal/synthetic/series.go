package synthetic

import (
	"math"
	"time"

	"github.com/irfndi/synthseries/internal/calendar"
	"github.com/irfndi/synthseries/internal/models"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// BuildSeries turns a configuration into values over the calendar index.
// The series is trend * seasonal * noise, where seasonal is the product of
// one sinusoid per active component. With randomWalk the deterministic trend
// is replaced by a Gaussian random walk around Base.
func BuildSeries(cfg models.SeriesConfig, offset calendar.Offset, n int, timescale float64, randomWalk bool, rng *rand.Rand) models.RawSeries {
	dates := offset.Range(cfg.Start, n)
	noise := noiseTrace(cfg.Noise, n, rng)

	var trend []float64
	if randomWalk {
		trend = walkTrend(cfg.Scale, n, rng)
	} else {
		trend = deterministicTrend(cfg.Scale, cfg.Offset, n, timescale)
	}

	values := make([]float64, n)
	for i, d := range dates {
		values[i] = trend[i] * seasonal(cfg.Scale, cfg.Offset, d) * noise[i]
	}

	return models.RawSeries{Dates: dates, Values: values, Noise: noise}
}

func deterministicTrend(scale, offset models.ComponentScale, n int, timescale float64) []float64 {
	trend := make([]float64, n)
	last := float64(n-1) / timescale
	for i := range trend {
		x := float64(i) / timescale
		linear := scale.Base + scale.Linear*(x-offset.Linear*last)
		growth := math.Pow(scale.Exp, float64(i)-offset.Exp*float64(n-1))
		trend[i] = linear * growth
	}
	return trend
}

func walkTrend(scale models.ComponentScale, n int, rng *rand.Rand) []float64 {
	step := distuv.Normal{Mu: 0, Sigma: math.Max(math.Abs(scale.Linear), linearSigma), Src: rng}
	trend := make([]float64, n)
	level := scale.Base
	for i := range trend {
		level += step.Rand()
		trend[i] = level
	}
	return trend
}

// noiseTrace draws 1 + scale*(W - median) with W Weibull distributed and
// rescaled so its median equals the configured median.
func noiseTrace(cfg models.ComponentNoise, n int, rng *rand.Rand) []float64 {
	w := distuv.Weibull{
		K:      cfg.K,
		Lambda: cfg.Median / math.Pow(math.Ln2, 1/cfg.K),
		Src:    rng,
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 + cfg.Scale*(w.Rand()-cfg.Median)
	}
	return out
}

func seasonal(scale, offset models.ComponentScale, d time.Time) float64 {
	v := 1.0
	if scale.Minute != 0 {
		v *= wave(scale.Minute, float64(d.Minute())/60, offset.Minute)
	}
	if scale.Hourly != 0 {
		v *= wave(scale.Hourly, float64(d.Hour())/24, offset.Hourly)
	}
	if scale.Weekly != 0 {
		v *= wave(scale.Weekly, float64(d.Weekday())/7, offset.Weekly)
	}
	if scale.Monthly != 0 {
		v *= wave(scale.Monthly, float64(d.Day()-1)/float64(daysIn(d.Month(), d.Year())), offset.Monthly)
	}
	if scale.Annual != 0 {
		v *= wave(scale.Annual, float64(d.YearDay()-1)/float64(daysInYear(d.Year())), offset.Annual)
	}
	return v
}

func wave(amplitude, phase, shift float64) float64 {
	return 1 + amplitude*math.Sin(2*math.Pi*(phase+shift))
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
