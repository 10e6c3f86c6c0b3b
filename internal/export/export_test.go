package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/synthseries/internal/config"
	"github.com/irfndi/synthseries/internal/models"
)

func sampleGeneration() models.Generation {
	start := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	return models.Generation{
		Config: models.SeriesConfig{Frequency: "D", Start: start},
		Table: models.SeriesTable{
			Dates:        []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)},
			SeriesValues: []float64{1.23456, 2.5, math.NaN()},
			Noise:        []float64{1.001, 0.999, 1},
		},
		Provenance: models.BlendProvenance{Transition: false},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleGeneration().Table, 2)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].SeriesValue.Decimal.Equal(decimal.RequireFromString("1.23")))
	assert.True(t, rows[1].Noise.Decimal.Equal(decimal.NewFromInt(1)))
	assert.False(t, rows[2].SeriesValue.Valid)
	assert.True(t, rows[2].Noise.Valid)
}

func TestWriteJSON_Document(t *testing.T) {
	doc := NewDocument(sampleGeneration(), 42, true, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(42), decoded["seed"])
	assert.Equal(t, true, decoded["cached"])

	rows, ok := decoded["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 3)
	last := rows[2].(map[string]any)
	assert.Nil(t, last["series_values"])
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleGeneration().Table, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,series_values,noise", lines[0])
	assert.Equal(t, "2023-03-01T00:00:00Z,1.23,1.00", lines[1])
	assert.Equal(t, "2023-03-02T00:00:00Z,2.50,1.00", lines[2])
	assert.Equal(t, "2023-03-03T00:00:00Z,NaN,1.00", lines[3])
}

func TestWriteBatchCSV(t *testing.T) {
	table := sampleGeneration().Table
	var buf bytes.Buffer
	require.NoError(t, WriteBatchCSV(&buf, []models.SeriesTable{table, table}, 1))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "job,date,series_values,noise", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,"))
	assert.True(t, strings.HasPrefix(lines[6], "1,"))
}

// mockWriteAPI records points the way a blocking write API would receive them
type mockWriteAPI struct {
	points []*write.Point
	err    error
}

func (m *mockWriteAPI) WritePoint(_ context.Context, point ...*write.Point) error {
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, point...)
	return nil
}

func TestInfluxSink_Write(t *testing.T) {
	writer := &mockWriteAPI{}
	sink := NewInfluxSink(writer, "")

	res, err := sink.Write(context.Background(), sampleGeneration(), 7, map[string]string{"job": "0"})
	require.NoError(t, err)
	assert.Equal(t, InfluxWriteResult{Written: 2, Skipped: 1}, res)
	require.Len(t, writer.points, 2)

	p := writer.points[0]
	assert.Equal(t, DefaultMeasurement, p.Name())
	assert.True(t, p.Time().Equal(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)))

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"frequency": "D", "seed": "7", "job": "0"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 1.23456, fields["series_values"])
	assert.Equal(t, 1.001, fields["noise"])
}

func TestInfluxSink_WriteError(t *testing.T) {
	sink := NewInfluxSink(&mockWriteAPI{err: errors.New("unauthorized")}, "series")
	res, err := sink.Write(context.Background(), sampleGeneration(), 1, nil)
	assert.EqualError(t, err, "unauthorized")
	assert.Zero(t, res.Written)
}

func TestInfluxSink_AllSkipped(t *testing.T) {
	writer := &mockWriteAPI{err: errors.New("must not be called")}
	gen := sampleGeneration()
	for i := range gen.Table.SeriesValues {
		gen.Table.SeriesValues[i] = math.Inf(1)
	}

	res, err := NewInfluxSink(writer, "series").Write(context.Background(), gen, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
}

func TestOpenInflux(t *testing.T) {
	_, _, err := OpenInflux(config.InfluxConfig{URL: "http://localhost:8086"})
	assert.Error(t, err)

	sink, closeFn, err := OpenInflux(config.InfluxConfig{
		URL:    "http://localhost:8086",
		Token:  "token",
		Org:    "org",
		Bucket: "bucket",
	})
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, DefaultMeasurement, sink.measurement)
}
