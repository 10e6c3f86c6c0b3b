package services

import (
	"context"
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/telemetry"
	"github.com/irfndi/synthseries/internal/utils"
)

// IndicatorConfig holds the indicator periods applied to series values
type IndicatorConfig struct {
	SMAPeriod int `json:"sma_period"`
	EMAPeriod int `json:"ema_period"`
	RSIPeriod int `json:"rsi_period"`
}

// DefaultIndicatorConfig returns the periods used when a request sets none
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		SMAPeriod: 20,
		EMAPeriod: 20,
		RSIPeriod: 14,
	}
}

// Validate checks that every period is positive
func (c IndicatorConfig) Validate() error {
	if c.SMAPeriod <= 0 || c.EMAPeriod <= 0 || c.RSIPeriod <= 0 {
		return utils.NewValidationErrorf("indicators: periods must be positive, got sma=%d ema=%d rsi=%d",
			c.SMAPeriod, c.EMAPeriod, c.RSIPeriod)
	}
	return nil
}

// IndicatorResult is one indicator computed over the series values. Values
// is empty when the series is shorter than the indicator needs.
type IndicatorResult struct {
	Name   string                `json:"name"`
	Period int                   `json:"period"`
	Values []decimal.NullDecimal `json:"values"`
	Last   decimal.NullDecimal   `json:"last"`
}

// SeriesStats summarizes one column of a table
type SeriesStats struct {
	Mean   decimal.NullDecimal `json:"mean"`
	StdDev decimal.NullDecimal `json:"std_dev"`
	Min    decimal.NullDecimal `json:"min"`
	Max    decimal.NullDecimal `json:"max"`
}

// SeriesDiagnostics describes a generated table
type SeriesDiagnostics struct {
	Rows       int                `json:"rows"`
	Values     SeriesStats        `json:"values"`
	Noise      SeriesStats        `json:"noise"`
	Indicators []*IndicatorResult `json:"indicators"`
}

// DiagnosticsService computes summary statistics and indicators for tables
type DiagnosticsService struct {
	decimals int32
	tracer   *telemetry.GenerationTracer
	logger   *logrus.Logger
}

// NewDiagnosticsService creates a diagnostics service rounding to decimals places
func NewDiagnosticsService(decimals int32, logger *logrus.Logger) *DiagnosticsService {
	return &DiagnosticsService{
		decimals: decimals,
		tracer:   telemetry.NewGenerationTracer(),
		logger:   logger,
	}
}

// Analyze summarizes table and runs the configured indicators over its values
func (d *DiagnosticsService) Analyze(ctx context.Context, table models.SeriesTable, cfg IndicatorConfig) (*SeriesDiagnostics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, utils.NewValidationError("table: no rows to analyze")
	}

	_, span := d.tracer.TraceDiagnostics(ctx, table.Len(), cfg.SMAPeriod)

	result := &SeriesDiagnostics{
		Rows:   table.Len(),
		Values: d.summarize(table.SeriesValues),
		Noise:  d.summarize(table.Noise),
		Indicators: []*IndicatorResult{
			d.calculateSMA(table.SeriesValues, cfg.SMAPeriod),
			d.calculateEMA(table.SeriesValues, cfg.EMAPeriod),
			d.calculateRSI(table.SeriesValues, cfg.RSIPeriod),
		},
	}
	d.tracer.RecordDiagnosticsResult(span, nil)

	d.logger.WithFields(logrus.Fields{
		"rows":       result.Rows,
		"sma_period": cfg.SMAPeriod,
		"ema_period": cfg.EMAPeriod,
		"rsi_period": cfg.RSIPeriod,
	}).Debug("Diagnostics calculated")

	return result, nil
}

func (d *DiagnosticsService) summarize(values []float64) SeriesStats {
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	return SeriesStats{
		Mean:   utils.RoundFloat(mean, d.decimals),
		StdDev: utils.RoundFloat(std, d.decimals),
		Min:    utils.RoundFloat(floats.Min(values), d.decimals),
		Max:    utils.RoundFloat(floats.Max(values), d.decimals),
	}
}

// calculateSMA calculates Simple Moving Average
func (d *DiagnosticsService) calculateSMA(values []float64, period int) *IndicatorResult {
	result := &IndicatorResult{Name: fmt.Sprintf("SMA_%d", period), Period: period, Values: []decimal.NullDecimal{}}
	if len(values) < period {
		return result
	}

	smaIndicator := trend.NewSmaWithPeriod[float64](period)
	return d.fill(result, helper.ChanToSlice(smaIndicator.Compute(helper.SliceToChan(values))))
}

// calculateEMA calculates Exponential Moving Average
func (d *DiagnosticsService) calculateEMA(values []float64, period int) *IndicatorResult {
	result := &IndicatorResult{Name: fmt.Sprintf("EMA_%d", period), Period: period, Values: []decimal.NullDecimal{}}
	if len(values) < period {
		return result
	}

	emaIndicator := trend.NewEmaWithPeriod[float64](period)
	return d.fill(result, helper.ChanToSlice(emaIndicator.Compute(helper.SliceToChan(values))))
}

// calculateRSI calculates Relative Strength Index
func (d *DiagnosticsService) calculateRSI(values []float64, period int) *IndicatorResult {
	result := &IndicatorResult{Name: fmt.Sprintf("RSI_%d", period), Period: period, Values: []decimal.NullDecimal{}}
	if len(values) < period+1 {
		return result
	}

	rsiIndicator := momentum.NewRsiWithPeriod[float64](period)
	return d.fill(result, helper.ChanToSlice(rsiIndicator.Compute(helper.SliceToChan(values))))
}

func (d *DiagnosticsService) fill(result *IndicatorResult, computed []float64) *IndicatorResult {
	result.Values = utils.RoundFloats(computed, d.decimals)
	if n := len(computed); n > 0 {
		result.Last = utils.RoundFloat(computed[n-1], d.decimals)
	}
	return result
}
