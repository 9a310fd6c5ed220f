// Package pipeline runs a job's stage sequence and reports every step to
// the status registry.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
	"github.com/joseph-ayodele/docjobs/internal/extract"
	"github.com/joseph-ayodele/docjobs/internal/llm"
	"github.com/joseph-ayodele/docjobs/internal/workspace"
)

// StatusWriter is the worker's view of the registry.
type StatusWriter interface {
	Progress(ctx context.Context, id, label string) error
	Succeed(ctx context.Context, id string, result any) error
	Fail(ctx context.Context, id string, cause error) error
}

type SimilarityScorer interface {
	Score(ctx context.Context, a, b string) float64
}

// Analyzer is the model-backed half of the pipeline.
type Analyzer interface {
	Summarize(ctx context.Context, text string) (string, error)
	NarrateChanges(ctx context.Context, oldText, newText string) (string, error)
	ScoreAlignment(ctx context.Context, clo, plo string) llm.AlignmentResult
	ExtractStructured(ctx context.Context, text string) llm.Syllabus
	RepairStructured(raw []byte) llm.Syllabus
	CompareStructured(ctx context.Context, a, b []byte) llm.StructuredComparison
}

// MinSummaryChars is the shortest extracted text worth summarizing.
const MinSummaryChars = 50

type Engine struct {
	status    StatusWriter
	arena     *workspace.Arena
	extractor extract.TextExtractor
	scorer    SimilarityScorer
	analyzer  Analyzer
	logger    *slog.Logger
}

func NewEngine(status StatusWriter, arena *workspace.Arena, ex extract.TextExtractor, scorer SimilarityScorer, analyzer Analyzer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		status:    status,
		arena:     arena,
		extractor: ex,
		scorer:    scorer,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// run carries one job through its stages.
type run struct {
	*Engine
	desc  entity.Descriptor
	space *workspace.JobSpace
	log   *slog.Logger
}

// Run executes desc to a terminal state. It never returns an error: every
// outcome, panics included, ends up in the job's status record, and the
// job's workspace files are gone when Run returns.
func (e *Engine) Run(ctx context.Context, desc entity.Descriptor) {
	ctx = common.WithJobID(ctx, desc.ID)
	// status writes must land even when the job's deadline has passed
	statusCtx := context.WithoutCancel(ctx)

	r := &run{
		Engine: e,
		desc:   desc,
		space:  e.arena.ForJob(desc.ID),
		log:    e.logger.With("job_id", desc.ID, "job_type", desc.Type),
	}
	start := time.Now()
	r.log.Info("pipeline.job.start")

	defer func() {
		if err := r.space.Cleanup(); err != nil {
			r.log.Warn("pipeline.cleanup.failed", "error", err)
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("pipeline.job.panic", "panic", p, "stack", string(debug.Stack()))
			r.fail(statusCtx, common.NewJobError(common.KindInternal, fmt.Sprintf("panic: %v", p), nil), start)
		}
	}()

	result, err := r.dispatch(ctx, statusCtx)
	if err != nil {
		r.fail(statusCtx, err, start)
		return
	}
	if err := e.status.Succeed(statusCtx, desc.ID, result); err != nil {
		r.log.Error("pipeline.status.write_failed", "state", constants.JobStateSuccess, "error", err)
		return
	}
	r.log.Info("pipeline.job.ok", "elapsed_ms", time.Since(start).Milliseconds())
}

func (r *run) fail(ctx context.Context, err error, start time.Time) {
	r.log.Warn("pipeline.job.failed",
		"error_kind", common.KindOf(err),
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if werr := r.status.Fail(ctx, r.desc.ID, err); werr != nil {
		r.log.Error("pipeline.status.write_failed", "state", constants.JobStateFailure, "error", werr)
	}
}

func (r *run) dispatch(ctx, statusCtx context.Context) (any, error) {
	s := stager{run: r, statusCtx: statusCtx}
	switch p := r.desc.Payload.(type) {
	case entity.OCRExtractRequest:
		return s.ocrExtract(ctx, p)
	case entity.SummarizeRequest:
		return s.summarize(ctx, p)
	case entity.CompareTextRequest:
		return s.compareText(ctx, p)
	case entity.CheckAlignmentRequest:
		return s.checkAlignment(ctx, p)
	case entity.ExtractStructuredRequest:
		return s.extractStructured(ctx, p)
	case entity.CompareStructuredRequest:
		return s.compareStructured(ctx, p)
	default:
		return nil, common.NewJobError(common.KindInternal, fmt.Sprintf("no pipeline for payload %T", r.desc.Payload), nil)
	}
}

// stager reports each stage before running it.
type stager struct {
	*run
	statusCtx context.Context
}

func (s stager) stage(label string) {
	s.log.Info("pipeline.stage.start", "stage", label)
	if err := s.status.Progress(s.statusCtx, s.desc.ID, label); err != nil {
		s.log.Warn("pipeline.status.write_failed", "state", constants.JobStateProgress, "stage", label, "error", err)
	}
}
