package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/synthseries/internal/export"
	"github.com/irfndi/synthseries/internal/middleware"
	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/services"
	"github.com/irfndi/synthseries/internal/synthetic"
	"github.com/irfndi/synthseries/internal/utils"
)

// SeriesGenerator defines the generation operations used by the handler
type SeriesGenerator interface {
	Defaults() services.GenerateInput
	Generate(ctx context.Context, in services.GenerateInput) (*services.GenerateResult, error)
	GenerateBatch(ctx context.Context, in services.BatchInput) (*services.BatchResult, error)
}

// SeriesAnalyzer defines the diagnostics operation used by the handler
type SeriesAnalyzer interface {
	Analyze(ctx context.Context, table models.SeriesTable, cfg services.IndicatorConfig) (*services.SeriesDiagnostics, error)
}

// GenerateRequest is the JSON body of a generation. Start accepts a date
// (2006-01-02) or an RFC3339 timestamp.
type GenerateRequest struct {
	N          int                   `json:"n"`
	Freq       string                `json:"freq"`
	Start      string                `json:"start"`
	Options    synthetic.OptionsSpec `json:"options"`
	Transition *bool                 `json:"transition"`
	RandomWalk *bool                 `json:"random_walk"`
	Seed       *uint64               `json:"seed"`
}

// BatchRequest is the JSON body of a batch generation. Fields a job leaves
// out are taken from the configured defaults.
type BatchRequest struct {
	Jobs []GenerateRequest `json:"jobs"`
	Seed *uint64           `json:"seed"`
}

// DiagnosticsRequest generates a series and summarizes it
type DiagnosticsRequest struct {
	GenerateRequest
	Indicators *services.IndicatorConfig `json:"indicators"`
}

// BatchResponse keeps documents in job order
type BatchResponse struct {
	Seed    uint64            `json:"seed"`
	Results []export.Document `json:"results"`
}

// DiagnosticsResponse pairs a generation's provenance with its summary
type DiagnosticsResponse struct {
	Seed        uint64                      `json:"seed"`
	Config      models.SeriesConfig         `json:"config"`
	Provenance  models.BlendProvenance      `json:"provenance"`
	Diagnostics *services.SeriesDiagnostics `json:"diagnostics"`
}

// SeriesHandler serves the generation endpoints
type SeriesHandler struct {
	generator SeriesGenerator
	analyzer  SeriesAnalyzer
	decimals  int32
	logger    *logrus.Logger
}

// NewSeriesHandler creates a series handler rounding output to decimals places
func NewSeriesHandler(generator SeriesGenerator, analyzer SeriesAnalyzer, decimals int32, logger *logrus.Logger) *SeriesHandler {
	return &SeriesHandler{
		generator: generator,
		analyzer:  analyzer,
		decimals:  decimals,
		logger:    logger,
	}
}

// GetFrequencies lists the supported frequency profiles
func (h *SeriesHandler) GetFrequencies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    synthetic.Profiles(),
	})
}

// Generate runs a single generation. Both option keys are required.
func (h *SeriesHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	in, err := req.Input(nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "series.frequency", res.Generation.Config.Frequency)
	middleware.AddSpanAttribute(c, "series.length", res.Generation.Table.Len())
	middleware.AddSpanAttribute(c, "series.cached", res.Cached)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    export.NewDocument(res.Generation, res.Seed, res.Cached, h.decimals),
	})
}

// GenerateBatch runs several generations sharing one base seed
func (h *SeriesHandler) GenerateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	defaults := h.generator.Defaults()
	in := services.BatchInput{Jobs: make([]services.GenerateInput, len(req.Jobs)), Seed: req.Seed}
	for i, job := range req.Jobs {
		jobInput, err := job.Input(&defaults)
		if err != nil {
			h.writeError(c, fmt.Errorf("job %d: %w", i, err))
			return
		}
		in.Jobs[i] = jobInput
	}

	res, err := h.generator.GenerateBatch(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := BatchResponse{Seed: res.Seed, Results: make([]export.Document, len(res.Results))}
	for i, r := range res.Results {
		out.Results[i] = export.NewDocument(r.Generation, r.Seed, r.Cached, h.decimals)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
	})
}

// Diagnostics generates a series and returns its summary and indicators
func (h *SeriesHandler) Diagnostics(c *gin.Context) {
	var req DiagnosticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	in, err := req.Input(nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	cfg := services.DefaultIndicatorConfig()
	if req.Indicators != nil {
		cfg = *req.Indicators
	}

	ctx := c.Request.Context()
	res, err := h.generator.Generate(ctx, in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	diag, err := h.analyzer.Analyze(ctx, res.Generation.Table, cfg)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": DiagnosticsResponse{
			Seed:        res.Seed,
			Config:      res.Generation.Config,
			Provenance:  res.Generation.Provenance,
			Diagnostics: diag,
		},
	})
}

// Input converts the request to a service input. With nil defaults every
// option key is required; otherwise missing fields fall back to defaults.
func (r GenerateRequest) Input(defaults *services.GenerateInput) (services.GenerateInput, error) {
	start, err := parseStart(r.Start)
	if err != nil {
		return services.GenerateInput{}, err
	}

	in := services.GenerateInput{
		N:     r.N,
		Freq:  r.Freq,
		Start: start,
		Seed:  r.Seed,
	}

	decoded := r.Options
	if defaults != nil {
		if in.N == 0 {
			in.N = defaults.N
		}
		fallback := defaults.Options.Spec()
		if decoded.TrendExp == nil {
			decoded.TrendExp = fallback.TrendExp
		}
		if decoded.ScaleNoise == nil {
			decoded.ScaleNoise = fallback.ScaleNoise
		}
		in.Transition = defaults.Transition
		in.RandomWalk = defaults.RandomWalk
	}

	opts, err := decoded.Resolve()
	if err != nil {
		return services.GenerateInput{}, utils.NewFieldError("options", err)
	}
	in.Options = opts

	if r.Transition != nil {
		in.Transition = *r.Transition
	}
	if r.RandomWalk != nil {
		in.RandomWalk = *r.RandomWalk
	}
	return in, nil
}

func parseStart(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := utils.ParseStart(raw)
	if err != nil {
		return nil, utils.NewFieldError("start", err)
	}
	return &t, nil
}

func (h *SeriesHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request body: " + err.Error(),
	})
}

func (h *SeriesHandler) writeError(c *gin.Context, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
			"field":   ve.Field,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Request canceled",
		})
	default:
		h.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("Series request failed")
		middleware.RecordError(c, err, "series request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate series",
		})
	}
}
