package synthetic

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// WeightsFunc produces n blend weights in [0,1]. Weight i is the share of
// the first candidate at step i.
type WeightsFunc func(n int, rng *rand.Rand) []float64

// TransitionWeights returns a decreasing logistic ramp from the first regime
// to the second. The midpoint is drawn from U(0.2, 0.8) of the series span
// and the steepness from U(5, 20).
func TransitionWeights(n int, rng *rand.Rand) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{1}
	}
	mid := distuv.Uniform{Min: 0.2, Max: 0.8, Src: rng}
	steep := distuv.Uniform{Min: 5, Max: 20, Src: rng}
	x0, k := mid.Rand(), steep.Rand()

	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n-1)
		w[i] = 1 / (1 + math.Exp(k*(x-x0)))
	}
	return w
}

// ConstantWeights returns a WeightsFunc that always yields c
func ConstantWeights(c float64) WeightsFunc {
	return func(n int, _ *rand.Rand) []float64 {
		w := make([]float64, n)
		for i := range w {
			w[i] = c
		}
		return w
	}
}

// Blend convexly combines a and b elementwise: w*a + (1-w)*b
func Blend(w, a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = w[i]*a[i] + (1-w[i])*b[i]
	}
	return out
}
