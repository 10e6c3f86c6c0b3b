package models

import "time"

// ComponentRole tags what a ComponentScale is used for
type ComponentRole string

const (
	RoleScale  ComponentRole = "scale"
	RoleOffset ComponentRole = "offset"
)

// ComponentScale holds the amplitude (scale role) or phase shift (offset role)
// of every additive component of a synthetic series.
type ComponentScale struct {
	Role    ComponentRole `json:"role"`
	Base    float64       `json:"base"`
	Linear  float64       `json:"linear"`
	Exp     float64       `json:"exp"`
	Annual  float64       `json:"a"`
	Monthly float64       `json:"m"`
	Weekly  float64       `json:"w"`
	Minute  float64       `json:"minute"`
	Hourly  float64       `json:"h"`
}

// ComponentNoise parameterizes the multiplicative noise, centered at Median
type ComponentNoise struct {
	K      float64 `json:"k"`
	Median float64 `json:"median"`
	Scale  float64 `json:"scale"`
}

// SeriesConfig fully describes one candidate series
type SeriesConfig struct {
	Frequency string         `json:"frequency"`
	Start     time.Time      `json:"start"`
	Scale     ComponentScale `json:"scale"`
	Offset    ComponentScale `json:"offset"`
	Noise     ComponentNoise `json:"noise"`
}

// RawSeries is the output of the series builder for a single configuration
type RawSeries struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
	Noise  []float64   `json:"noise"`
}

// Len returns the number of samples in the series
func (s RawSeries) Len() int {
	return len(s.Values)
}

// SeriesTable is the final blended output, indexed by Dates
type SeriesTable struct {
	Dates        []time.Time `json:"dates"`
	SeriesValues []float64   `json:"series_values"`
	Noise        []float64   `json:"noise"`
}

// SeriesRow is one row of a SeriesTable
type SeriesRow struct {
	Date        time.Time `json:"date"`
	SeriesValue float64   `json:"series_values"`
	Noise       float64   `json:"noise"`
}

// Len returns the number of rows in the table
func (t SeriesTable) Len() int {
	return len(t.Dates)
}

// Rows returns the table as row records
func (t SeriesTable) Rows() []SeriesRow {
	rows := make([]SeriesRow, len(t.Dates))
	for i := range t.Dates {
		rows[i] = SeriesRow{
			Date:        t.Dates[i],
			SeriesValue: t.SeriesValues[i],
			Noise:       t.Noise[i],
		}
	}
	return rows
}

// BlendProvenance records how the output table was produced. Secondary and
// Weights are only set when a transition was applied.
type BlendProvenance struct {
	Transition bool          `json:"transition"`
	Secondary  *SeriesConfig `json:"secondary,omitempty"`
	Weights    []float64     `json:"weights,omitempty"`
}

// Generation is the result of one blended generation call
type Generation struct {
	Config     SeriesConfig    `json:"config"`
	Table      SeriesTable     `json:"table"`
	Provenance BlendProvenance `json:"provenance"`
}
