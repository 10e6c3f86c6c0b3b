package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/irfndi/synthseries/internal/config"
	"github.com/irfndi/synthseries/internal/export"
	"github.com/irfndi/synthseries/internal/logging"
	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/services"
	"github.com/irfndi/synthseries/internal/synthetic"
	"github.com/irfndi/synthseries/internal/utils"
)

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// cli carries state shared by every subcommand once config is loaded
type cli struct {
	cfg      *config.Config
	logger   *logrus.Logger
	format   string
	decimals int32
	logLevel string
}

// seriesFlags are the per-request flags of generate and batch
type seriesFlags struct {
	n          int
	freq       string
	start      string
	trendExp   bool
	noiseLow   float64
	noiseMod   float64
	transition bool
	randomWalk bool
	seed       uint64
	influx     bool
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:           "synthgen",
		Short:         "Generate synthetic time series",
		Long:          `synthgen samples random trend, seasonality and noise components and writes the resulting series as CSV or JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load(cmd)
	}

	rootCmd.PersistentFlags().StringVarP(&app.format, "format", "f", formatCSV, "Output format: csv or json")
	rootCmd.PersistentFlags().Int32Var(&app.decimals, "decimals", -1, "Decimal places in output (default from config)")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "Log level written to stderr")

	rootCmd.AddCommand(app.generateCmd(), app.batchCmd(), app.frequenciesCmd())
	return rootCmd
}

func (a *cli) load(cmd *cobra.Command) error {
	if a.format != formatCSV && a.format != formatJSON {
		return fmt.Errorf("unknown format %q: expected csv or json", a.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	if a.decimals < 0 {
		a.decimals = cfg.Generation.OutputDecimals
	}

	a.logger = logging.NewLogrusLogger(a.logLevel)
	a.logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

func (a *cli) generator() *services.GeneratorService {
	return services.NewGeneratorService(a.cfg.Generation, nil, a.logger)
}

func (a *cli) generateCmd() *cobra.Command {
	flags := &seriesFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one series",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := a.generator()
			in, err := flags.input(cmd.Flags(), svc.Defaults())
			if err != nil {
				return err
			}

			res, err := svc.Generate(cmd.Context(), in)
			if err != nil {
				return err
			}

			if err := a.writeGeneration(cmd, res); err != nil {
				return err
			}
			if flags.influx {
				return a.exportInflux(cmd, []*services.GenerateResult{res})
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Example = "  synthgen generate -n 365 --freq D --seed 42\n  synthgen generate -n 48 --freq H --transition=false --format json"
	return cmd
}

func (a *cli) batchCmd() *cobra.Command {
	flags := &seriesFlags{}
	var (
		jobs  int
		freqs []string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate several series concurrently from one base seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs <= 0 {
				return fmt.Errorf("--jobs must be positive, got %d", jobs)
			}

			svc := a.generator()
			base, err := flags.input(cmd.Flags(), svc.Defaults())
			if err != nil {
				return err
			}

			in := services.BatchInput{Jobs: make([]services.GenerateInput, jobs)}
			if base.Seed != nil {
				in.Seed = base.Seed
				base.Seed = nil
			}
			for i := range in.Jobs {
				job := base
				if len(freqs) > 0 {
					job.Freq = freqs[i%len(freqs)]
				}
				in.Jobs[i] = job
			}

			res, err := svc.GenerateBatch(cmd.Context(), in)
			if err != nil {
				return err
			}

			if err := a.writeBatch(cmd, res); err != nil {
				return err
			}
			if flags.influx {
				return a.exportInflux(cmd, res.Results)
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().IntVar(&jobs, "jobs", 4, "Number of series to generate")
	cmd.Example = "  synthgen batch --jobs 8 --freqs D,W,MS --seed 7 -n 120"
	cmd.Flags().StringSliceVar(&freqs, "freqs", nil, "Frequencies assigned to jobs in rotation (overrides --freq)")
	return cmd
}

func (a *cli) frequenciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frequencies",
		Short: "List supported frequencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := synthetic.Profiles()
			if a.format == formatJSON {
				return export.WriteJSON(cmd.OutOrStdout(), profiles)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tOFFSET\tTIMESCALE")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Label, p.OffsetCode, strconv.FormatFloat(p.Timescale, 'g', 6, 64))
			}
			return w.Flush()
		},
	}
}

func (a *cli) writeGeneration(cmd *cobra.Command, res *services.GenerateResult) error {
	out := cmd.OutOrStdout()
	if a.format == formatJSON {
		return export.WriteJSON(out, export.NewDocument(res.Generation, res.Seed, res.Cached, a.decimals))
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "seed: %d frequency: %s\n", res.Seed, res.Generation.Config.Frequency)
	return export.WriteCSV(out, res.Generation.Table, a.decimals)
}

// batchDocument mirrors the batch endpoint's response body
type batchDocument struct {
	Seed    uint64            `json:"seed"`
	Results []export.Document `json:"results"`
}

func (a *cli) writeBatch(cmd *cobra.Command, res *services.BatchResult) error {
	out := cmd.OutOrStdout()
	if a.format == formatJSON {
		doc := batchDocument{Seed: res.Seed, Results: make([]export.Document, len(res.Results))}
		for i, r := range res.Results {
			doc.Results[i] = export.NewDocument(r.Generation, r.Seed, r.Cached, a.decimals)
		}
		return export.WriteJSON(out, doc)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "seed: %d jobs: %d\n", res.Seed, len(res.Results))
	tables := make([]models.SeriesTable, len(res.Results))
	for i, r := range res.Results {
		tables[i] = r.Generation.Table
	}
	return export.WriteBatchCSV(out, tables, a.decimals)
}

func (a *cli) exportInflux(cmd *cobra.Command, results []*services.GenerateResult) error {
	sink, closeClient, err := export.OpenInflux(a.cfg.Influx)
	if err != nil {
		return err
	}
	defer closeClient()

	return writeResults(cmd.Context(), sink, results, a.logger)
}

// writeResults sends each result to sink, tagging points with their job index
func writeResults(ctx context.Context, sink *export.InfluxSink, results []*services.GenerateResult, logger *logrus.Logger) error {
	for i, r := range results {
		written, err := sink.Write(ctx, r.Generation, r.Seed, map[string]string{"job": strconv.Itoa(i)})
		if err != nil {
			return fmt.Errorf("influx export of job %d: %w", i, err)
		}
		logger.WithFields(logrus.Fields{
			"job":     i,
			"written": written.Written,
			"skipped": written.Skipped,
		}).Info("Exported series to InfluxDB")
	}
	return nil
}

func (f *seriesFlags) register(fs *pflag.FlagSet) {
	fs.IntVarP(&f.n, "length", "n", 0, "Number of rows (default from config)")
	fs.StringVar(&f.freq, "freq", "", "Frequency label; empty picks one at random")
	fs.StringVar(&f.start, "start", "", "Start date (2006-01-02 or RFC3339); empty samples one")
	fs.BoolVar(&f.trendExp, "trend-exp", true, "Include the exponential trend component")
	fs.Float64Var(&f.noiseLow, "noise-low", 0, "Probability of the low noise tier")
	fs.Float64Var(&f.noiseMod, "noise-moderate", 0, "Probability of the moderate noise tier")
	fs.BoolVar(&f.transition, "transition", true, "Blend two candidate series")
	fs.BoolVar(&f.randomWalk, "random-walk", false, "Replace the deterministic trend with a random walk")
	fs.Uint64Var(&f.seed, "seed", 0, "Seed for reproducible output; unset draws a random one")
	fs.BoolVar(&f.influx, "influx", false, "Also write the series to InfluxDB")
}

// input overrides defaults with every flag the user set explicitly
func (f *seriesFlags) input(fs *pflag.FlagSet, defaults services.GenerateInput) (services.GenerateInput, error) {
	in := defaults
	if fs.Changed("length") {
		in.N = f.n
	}
	in.Freq = f.freq
	if f.start != "" {
		start, err := utils.ParseStart(f.start)
		if err != nil {
			return services.GenerateInput{}, fmt.Errorf("invalid --start %w", err)
		}
		in.Start = &start
	}
	if fs.Changed("trend-exp") {
		in.Options.TrendExp = f.trendExp
	}
	if fs.Changed("noise-low") {
		in.Options.ScaleNoise.Low = f.noiseLow
	}
	if fs.Changed("noise-moderate") {
		in.Options.ScaleNoise.Moderate = f.noiseMod
	}
	if fs.Changed("transition") {
		in.Transition = f.transition
	}
	if fs.Changed("random-walk") {
		in.RandomWalk = f.randomWalk
	}
	if fs.Changed("seed") {
		seed := f.seed
		in.Seed = &seed
	}
	return in, nil
}
