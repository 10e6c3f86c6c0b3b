package export

import (
	"context"
	"errors"
	"math"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/irfndi/synthseries/internal/config"
	"github.com/irfndi/synthseries/internal/models"
)

// DefaultMeasurement is used when the config names none
const DefaultMeasurement = "synthetic_series"

// PointWriter is satisfied by api.WriteAPIBlocking
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes generated tables as InfluxDB points
type InfluxSink struct {
	writer      PointWriter
	measurement string
}

// InfluxWriteResult reports how many rows were written and skipped
type InfluxWriteResult struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

// NewInfluxSink wraps writer. An empty measurement uses DefaultMeasurement.
func NewInfluxSink(writer PointWriter, measurement string) *InfluxSink {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &InfluxSink{writer: writer, measurement: measurement}
}

// OpenInflux connects a sink from cfg. The returned func closes the client.
func OpenInflux(cfg config.InfluxConfig) (*InfluxSink, func(), error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, nil, errors.New("influx: url, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	sink := NewInfluxSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Measurement)
	return sink, client.Close, nil
}

// Write sends one point per row, tagged with frequency, seed and any extra
// tags. Rows holding NaN or infinite values cannot be encoded and are skipped.
func (s *InfluxSink) Write(ctx context.Context, gen models.Generation, seed uint64, extra map[string]string) (InfluxWriteResult, error) {
	tags := map[string]string{
		"frequency": gen.Config.Frequency,
		"seed":      strconv.FormatUint(seed, 10),
	}
	for k, v := range extra {
		tags[k] = v
	}

	var result InfluxWriteResult
	points := make([]*write.Point, 0, gen.Table.Len())
	for _, r := range gen.Table.Rows() {
		if !finite(r.SeriesValue) || !finite(r.Noise) {
			result.Skipped++
			continue
		}
		points = append(points, influxdb2.NewPoint(
			s.measurement,
			tags,
			map[string]interface{}{
				"series_values": r.SeriesValue,
				"noise":         r.Noise,
			},
			r.Date,
		))
	}
	if len(points) == 0 {
		return result, nil
	}

	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return result, err
	}
	result.Written = len(points)
	return result, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
