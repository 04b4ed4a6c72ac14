// Package pipeline runs one document through extraction, per-line analysis
// and aggregation and assembles the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/internal/types"
	"github.com/xhad/docsift/pkg/analysis"
	"github.com/xhad/docsift/pkg/capability"
	"github.com/xhad/docsift/pkg/extractor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxUploadBytes = 50 << 20
	unsupportedFileType   = "File must be a PDF or Excel file (.pdf, .xlsx, .xls)"
)

type Request struct {
	Data     []byte
	Filename string
	Format   models.Format       // detected from Filename when empty
	Mode     models.AnalysisMode // both when empty
	Progress func(done, total int)
}

type Config struct {
	MaxUploadBytes int64
	Workers        int
	Logger         *zap.Logger
	Invoker        capability.Invoker
	Registry       *capability.Registry
	Extractor      types.Extractor
	Lines          *analysis.LineAnalyzer
	Aggregator     *analysis.Aggregator
	Store          types.ReportStore // optional
	Embedder       types.Embedder    // optional, only used with Store
	Now            func() time.Time
}

type Orchestrator struct {
	config Config
	logger *zap.Logger
}

func NewWithConfig(config Config) *Orchestrator {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaultMaxUploadBytes
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Invoker.Logger == nil {
		config.Invoker.Logger = config.Logger
	}
	if config.Invoker.Timeout <= 0 {
		config.Invoker.Timeout = capability.DefaultTimeout
	}
	if config.Extractor == nil {
		config.Extractor = extractor.NewWithConfig(extractor.ExtractorConfig{Logger: config.Logger})
	}
	if config.Lines == nil {
		config.Lines = analysis.NewLineAnalyzer(analysis.LineConfig{Invoker: config.Invoker})
	}
	if config.Aggregator == nil {
		config.Aggregator = analysis.NewAggregator(analysis.AggregatorConfig{Invoker: config.Invoker, Workers: config.Workers})
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Orchestrator{config: config, logger: config.Logger}
}

// MaxUploadBytes is the largest payload Run accepts.
func (o *Orchestrator) MaxUploadBytes() int64 {
	return o.config.MaxUploadBytes
}

// Run analyzes one document. Errors are *ClientInputError for bad input,
// the context error when ctx ends, and *ServerFault for anything else.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.Report, error) {
	mode, format, err := o.validate(req)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With(
		zap.String("filename", req.Filename),
		zap.String("format", string(format)),
		zap.String("analysis_type", string(mode)),
	)

	report, err := o.assemble(ctx, logger, req, format, mode)
	if err != nil {
		var clientErr *ClientInputError
		var fault *ServerFault
		switch {
		case errors.As(err, &clientErr):
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.Info("analysis cancelled", zap.Error(err))
		case errors.As(err, &fault):
			logger.Error("analysis failed", zap.Error(err))
		default:
			err = &ServerFault{Err: err}
			logger.Error("analysis failed", zap.Error(err))
		}
		return nil, err
	}

	logger.Info("analysis completed",
		zap.String("report_id", report.ID),
		zap.Int("lines", report.TotalLines),
		zap.Int("pages", report.TotalPages),
	)
	return report, nil
}

func (o *Orchestrator) validate(req Request) (models.AnalysisMode, models.Format, error) {
	mode, ok := models.ParseAnalysisMode(string(req.Mode))
	if !ok {
		return "", "", badRequest(nil, "Invalid analysis type %q. Use individual, combined or both", req.Mode)
	}

	format := req.Format
	if format == "" {
		detected, err := extractor.Detect(req.Filename)
		if err != nil {
			return "", "", badRequest(err, unsupportedFileType)
		}
		format = detected
	}
	if format != models.FormatPDF && format != models.FormatSpreadsheet {
		return "", "", badRequest(nil, unsupportedFileType)
	}

	if size := int64(len(req.Data)); size > o.config.MaxUploadBytes {
		return "", "", &ClientInputError{
			Status: http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("File size exceeds %s limit (received %s)",
				humanize.IBytes(uint64(o.config.MaxUploadBytes)), humanize.IBytes(uint64(size))),
		}
	}
	if len(req.Data) == 0 {
		return "", "", badRequest(nil, "Uploaded file is empty")
	}

	return mode, format, nil
}

func (o *Orchestrator) assemble(ctx context.Context, logger *zap.Logger, req Request, format models.Format, mode models.AnalysisMode) (report *models.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report, err = nil, &ServerFault{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	units, err := o.config.Extractor.Extract(ctx, req.Data, format)
	if err != nil {
		var extractErr *extractor.ExtractionError
		if errors.As(err, &extractErr) && ctx.Err() == nil {
			return nil, badRequest(err, "%s", extractErr.Error())
		}
		return nil, err
	}

	snap := o.config.Registry.Snapshot()

	report = &models.Report{
		ID:              uuid.NewString(),
		Filename:        req.Filename,
		FileType:        format.Label(),
		TotalLines:      len(units),
		TotalPages:      distinctLocations(units),
		ModelsAvailable: snap.Available(),
		AnalysisType:    mode,
		CreatedAt:       o.config.Now().UTC(),
	}

	if mode.WantsIndividual() {
		results, err := o.analyzeLines(ctx, snap, units, req.Progress)
		if err != nil {
			return nil, err
		}
		report.IndividualAnalysis = results
	}

	if mode.WantsCombined() {
		summary := o.config.Aggregator.Aggregate(ctx, snap, units, report.IndividualAnalysis)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.CombinedAnalysis = &summary
	}

	o.persist(ctx, logger, report, units)
	return report, nil
}

// analyzeLines runs the line analyzer over units on a bounded pool and
// returns the results in sequence order.
func (o *Orchestrator) analyzeLines(ctx context.Context, snap capability.Snapshot, units []models.LineUnit, progress func(done, total int)) ([]models.LineResult, error) {
	results := make([]models.LineResult, len(units))

	var mu sync.Mutex
	done := 0
	report := func() {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		progress(done, len(units))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i, unit := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.config.Lines.Analyze(gctx, unit, snap)
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// persist saves the report when a store is configured. Failures are logged
// and never fail the request.
func (o *Orchestrator) persist(ctx context.Context, logger *zap.Logger, report *models.Report, units []models.LineUnit) {
	if o.config.Store == nil {
		return
	}

	var embeddings [][]float32
	if o.config.Embedder != nil {
		texts := make([]string, len(units))
		for i, u := range units {
			texts[i] = u.Text
		}
		embeddings = capability.BestEffort[[][]float32](ctx, o.config.Invoker, "embedding", nil,
			func(ctx context.Context) ([][]float32, error) {
				return o.config.Embedder.CreateEmbedding(ctx, texts)
			})
	}

	if err := o.config.Store.Save(ctx, report, units, embeddings); err != nil {
		logger.Warn("failed to persist report", zap.String("report_id", report.ID), zap.Error(err))
	}
}

func distinctLocations(units []models.LineUnit) int {
	seen := make(map[int]struct{})
	for _, u := range units {
		seen[u.Location] = struct{}{}
	}
	return len(seen)
}
