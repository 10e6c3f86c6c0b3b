// Package synthetic samples the component structure of artificial time series
// and composes two independently sampled candidates into one output series.
//
// A candidate is described by a models.SeriesConfig: component amplitudes
// (trend, annual, monthly, weekly, hourly and minute seasonality), their
// phase offsets and a multiplicative noise distribution. Amplitudes are drawn
// from frequency-specific ranges so only periodicities meaningful for the
// sampling frequency carry energy.
//
// All randomness comes from the *rand.Rand supplied by the caller, so a seed
// reproduces a generation exactly and concurrent callers never share state:
//
//	rng := synthetic.NewRand(42)
//	opts, _ := synthetic.NewOptions(false, 0.6, 0.3)
//	gen, err := synthetic.Generate(synthetic.Request{
//		N:          365,
//		Freq:       "D",
//		Options:    opts,
//		Transition: true,
//	}, rng)
package synthetic
