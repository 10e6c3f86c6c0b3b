package synthetic

import "fmt"

const (
	OptionTrendExp   = "trend_exp"
	OptionScaleNoise = "scale_noise"
)

// NoiseRatios are the probabilities of the low and moderate noise tiers. The
// remainder goes to the high tier.
type NoiseRatios struct {
	Low      float64 `json:"low"`
	Moderate float64 `json:"moderate"`
}

// Validate checks that both ratios are probabilities summing to at most one
func (r NoiseRatios) Validate() error {
	if r.Low < 0 || r.Low > 1 || r.Moderate < 0 || r.Moderate > 1 {
		return fmt.Errorf("%w: %s ratios must be in [0,1], got (%g, %g)", ErrInvalidOption, OptionScaleNoise, r.Low, r.Moderate)
	}
	if r.Low+r.Moderate > 1 {
		return fmt.Errorf("%w: %s ratios sum to %g, must be <= 1", ErrInvalidOption, OptionScaleNoise, r.Low+r.Moderate)
	}
	return nil
}

// Options are the generation toggles passed through to every sampler and to
// the series builder. It is a plain value; each call owns its copy.
type Options struct {
	TrendExp   bool        `json:"trend_exp"`
	ScaleNoise NoiseRatios `json:"scale_noise"`
}

// NewOptions builds validated options
func NewOptions(trendExp bool, low, moderate float64) (Options, error) {
	o := Options{TrendExp: trendExp, ScaleNoise: NoiseRatios{Low: low, Moderate: moderate}}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate checks the option ranges
func (o Options) Validate() error {
	return o.ScaleNoise.Validate()
}

// OptionsSpec is the decoded, possibly incomplete form of Options as it
// arrives from JSON or a map. Every key is required.
type OptionsSpec struct {
	TrendExp   *bool      `json:"trend_exp"`
	ScaleNoise *[]float64 `json:"scale_noise"`
}

// Resolve turns decoded options into Options, failing on the first absent key
func (s OptionsSpec) Resolve() (Options, error) {
	if s.TrendExp == nil {
		return Options{}, missingOption(OptionTrendExp)
	}
	if s.ScaleNoise == nil {
		return Options{}, missingOption(OptionScaleNoise)
	}
	ratios := *s.ScaleNoise
	if len(ratios) != 2 {
		return Options{}, fmt.Errorf("%w: %s needs exactly 2 ratios, got %d", ErrInvalidOption, OptionScaleNoise, len(ratios))
	}
	return NewOptions(*s.TrendExp, ratios[0], ratios[1])
}

// Spec returns o in its fully populated decoded form
func (o Options) Spec() OptionsSpec {
	trendExp := o.TrendExp
	ratios := []float64{o.ScaleNoise.Low, o.ScaleNoise.Moderate}
	return OptionsSpec{TrendExp: &trendExp, ScaleNoise: &ratios}
}
