package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/synthseries/internal/export"
	"github.com/irfndi/synthseries/internal/services"
	"github.com/irfndi/synthseries/internal/synthetic"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerateCSV(t *testing.T) {
	out, errOut, err := execute(t, "generate", "-n", "15", "--freq", "D", "--start", "2022-05-01", "--seed", "42", "--decimals", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, "date,series_values,noise", lines[0])
	assert.Contains(t, errOut, "seed: 42")

	again, _, err := execute(t, "generate", "-n", "15", "--freq", "D", "--start", "2022-05-01", "--seed", "42", "--decimals", "3")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestGenerateJSON(t *testing.T) {
	out, _, err := execute(t, "generate", "-n", "6", "--freq", "W", "--seed", "8", "--format", "json", "--transition=false")
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, uint64(8), doc.Seed)
	assert.Len(t, doc.Rows, 6)
	assert.Equal(t, "W", doc.Config.Frequency)
	assert.False(t, doc.Provenance.Transition)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown format", []string{"generate", "--format", "xml"}, "unknown format"},
		{"bad start", []string{"generate", "--start", "tomorrow"}, "invalid --start"},
		{"index past year 9999", []string{"generate", "-n", "9000", "--freq", "Y", "--start", "2020-01-01"}, "9999-12-31"},
		{"bad frequency", []string{"generate", "--freq", "Q"}, "freq"},
		{"bad ratios", []string{"generate", "--noise-low", "0.9", "--noise-moderate", "0.5"}, "scale_noise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestBatchJSON(t *testing.T) {
	out, _, err := execute(t, "batch", "--jobs", "3", "--freqs", "D,W", "--seed", "5", "-n", "10", "--format", "json")
	require.NoError(t, err)

	var doc batchDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, uint64(5), doc.Seed)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "D", doc.Results[0].Config.Frequency)
	assert.Equal(t, "W", doc.Results[1].Config.Frequency)
	assert.Equal(t, "D", doc.Results[2].Config.Frequency)
	for i, r := range doc.Results {
		assert.Equal(t, synthetic.DeriveSeed(5, i), r.Seed)
		assert.Len(t, r.Rows, 10)
	}
}

func TestBatchCSV(t *testing.T) {
	out, errOut, err := execute(t, "batch", "--jobs", "2", "--freq", "H", "-n", "4")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "job,date,series_values,noise", lines[0])
	assert.Contains(t, errOut, "jobs: 2")
}

func TestBatchInvalidJobs(t *testing.T) {
	_, _, err := execute(t, "batch", "--jobs", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--jobs")
}

func TestFrequencies(t *testing.T) {
	out, _, err := execute(t, "frequencies")
	require.NoError(t, err)
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "MS")

	out, _, err = execute(t, "frequencies", "--format", "json")
	require.NoError(t, err)
	var profiles []synthetic.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	assert.Len(t, profiles, len(synthetic.Labels))
}

func TestSeriesFlagsInput(t *testing.T) {
	defaults := services.GenerateInput{
		N:          100,
		Options:    synthetic.Options{TrendExp: true, ScaleNoise: synthetic.NoiseRatios{Low: 0.6, Moderate: 0.3}},
		Transition: true,
	}

	flags := &seriesFlags{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.register(fs)
	require.NoError(t, fs.Parse([]string{"--noise-moderate", "0.1", "--transition=false", "--seed", "0"}))

	in, err := flags.input(fs, defaults)
	require.NoError(t, err)
	assert.Equal(t, 100, in.N)
	assert.True(t, in.Options.TrendExp)
	assert.Equal(t, synthetic.NoiseRatios{Low: 0.6, Moderate: 0.1}, in.Options.ScaleNoise)
	assert.False(t, in.Transition)
	require.NotNil(t, in.Seed)
	assert.Equal(t, uint64(0), *in.Seed)
	assert.Nil(t, in.Start)
}

type recordingWriter struct {
	calls int
}

func (w *recordingWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	w.calls++
	return nil
}

func TestWriteResults(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gen, err := synthetic.Generate(synthetic.Request{
		N:       5,
		Freq:    "D",
		Options: synthetic.Options{ScaleNoise: synthetic.NoiseRatios{Low: 1}},
	}, synthetic.NewRand(3))
	require.NoError(t, err)

	writer := &recordingWriter{}
	sink := export.NewInfluxSink(writer, "test")
	results := []*services.GenerateResult{{Generation: gen, Seed: 3}, {Generation: gen, Seed: 4}}

	require.NoError(t, writeResults(context.Background(), sink, results, logger))
	assert.Equal(t, 2, writer.calls)
}
