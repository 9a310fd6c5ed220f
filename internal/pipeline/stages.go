package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
	"github.com/joseph-ayodele/docjobs/internal/llm"
	"github.com/joseph-ayodele/docjobs/internal/textdiff"
)

// Stage labels shown to pollers while a job is in PROGRESS.
const (
	StageReading     = "Reading document"
	StageExtracting  = "Extracting text"
	StageSummarizing = "Summarizing"
	StageSimilarity  = "Scoring similarity"
	StageDiff        = "Locating changes"
	StageNarrating   = "Writing change analysis"
	StageAlignment   = "Scoring alignment"
	StageStructuring = "Extracting structured record"
	StageRepairing   = "Repairing structured record"
	StageComparing   = "Comparing structured records"
	StageNormalizing = "Normalizing result"
)

type OCRResult struct {
	ExtractedText string `json:"extracted_text"`
	Filename      string `json:"filename"`
}

type SummaryResult struct {
	Summary string `json:"summary"`
}

type CompareTextResult struct {
	SimilarityScore   float64         `json:"similarity_score"`
	SimilarityPercent float64         `json:"similarity_percent"`
	Diff              []textdiff.Line `json:"diff"`
	AIAnalysis        string          `json:"ai_analysis"`
}

func (s stager) ocrExtract(ctx context.Context, req entity.OCRExtractRequest) (any, error) {
	s.stage(StageReading)
	path, err := s.space.Materialize(req.Document.Filename, req.Document.Data)
	if err != nil {
		return nil, err
	}
	s.stage(StageExtracting)
	text, err := s.extractFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if common.IsBlank(text) {
		return nil, common.EmptyContentf("no text could be extracted from %s", req.Document.Filename)
	}
	return OCRResult{ExtractedText: text, Filename: req.Document.Filename}, nil
}

func (s stager) summarize(ctx context.Context, req entity.SummarizeRequest) (any, error) {
	texts, err := s.resolve(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	text := texts[0]
	if common.CharCount(text) < MinSummaryChars {
		return nil, common.EmptyContentf("document is too short to summarize (%d characters, need %d)", common.CharCount(text), MinSummaryChars)
	}
	s.stage(StageSummarizing)
	summary, err := s.analyzer.Summarize(ctx, text)
	if err != nil {
		return nil, err
	}
	return SummaryResult{Summary: summary}, nil
}

func (s stager) compareText(ctx context.Context, req entity.CompareTextRequest) (any, error) {
	texts, err := s.resolve(ctx, req.Old, req.New)
	if err != nil {
		return nil, err
	}
	oldText, newText := texts[0], texts[1]
	if common.IsBlank(oldText) || common.IsBlank(newText) {
		return nil, common.EmptyContentf("could not read text from %s", blankSide(oldText, newText))
	}

	s.stage(StageSimilarity)
	score := s.scorer.Score(ctx, oldText, newText)

	s.stage(StageDiff)
	diff := textdiff.Diff(oldText, newText)

	s.stage(StageNarrating)
	analysis, err := s.analyzer.NarrateChanges(ctx, oldText, newText)
	if err != nil {
		return nil, err
	}
	return CompareTextResult{
		SimilarityScore:   score,
		SimilarityPercent: math.Round(score*10000) / 100,
		Diff:              diff,
		AIAnalysis:        analysis,
	}, nil
}

func (s stager) checkAlignment(ctx context.Context, req entity.CheckAlignmentRequest) (any, error) {
	texts, err := s.resolve(ctx, req.CLO, req.PLO)
	if err != nil {
		return nil, err
	}
	clo, plo := texts[0], texts[1]
	if common.IsBlank(clo) || common.IsBlank(plo) {
		side := "PLO"
		if common.IsBlank(clo) {
			side = "CLO"
		}
		return nil, common.EmptyContentf("could not read text from the %s input", side)
	}
	s.stage(StageAlignment)
	return s.analyzer.ScoreAlignment(ctx, clo, plo), nil
}

func (s stager) extractStructured(ctx context.Context, req entity.ExtractStructuredRequest) (any, error) {
	var rec llm.Syllabus
	if req.Document != nil {
		texts, err := s.resolve(ctx, entity.Source{Document: req.Document})
		if err != nil {
			return nil, err
		}
		if common.IsBlank(texts[0]) {
			return nil, common.EmptyContentf("no text could be extracted from %s", req.Document.Filename)
		}
		s.stage(StageStructuring)
		rec = s.analyzer.ExtractStructured(ctx, texts[0])
	} else {
		s.stage(StageRepairing)
		rec = s.analyzer.RepairStructured(req.Record)
	}
	s.stage(StageNormalizing)
	return llm.NormalizeSyllabus(rec), nil
}

func (s stager) compareStructured(ctx context.Context, req entity.CompareStructuredRequest) (any, error) {
	s.stage(StageComparing)
	cmp := s.analyzer.CompareStructured(ctx, req.Old, req.New)
	s.stage(StageNormalizing)
	return llm.NormalizeComparison(cmp), nil
}

// resolve turns sources into text, materializing and extracting documents.
// Inline text is used as given.
func (s stager) resolve(ctx context.Context, sources ...entity.Source) ([]string, error) {
	texts := make([]string, len(sources))
	paths := make([]string, len(sources))
	anyDoc := false
	for _, src := range sources {
		anyDoc = anyDoc || src.IsDocument()
	}
	if anyDoc {
		s.stage(StageReading)
		for i, src := range sources {
			if !src.IsDocument() {
				continue
			}
			p, err := s.space.Materialize(src.Document.Filename, src.Document.Data)
			if err != nil {
				return nil, err
			}
			paths[i] = p
		}
		s.stage(StageExtracting)
	}
	for i, src := range sources {
		if !src.IsDocument() {
			texts[i] = src.Text
			continue
		}
		t, err := s.extractFile(ctx, paths[i])
		if err != nil {
			return nil, err
		}
		texts[i] = t
	}
	return texts, nil
}

func (s stager) extractFile(ctx context.Context, path string) (string, error) {
	res, err := s.extractor.Extract(ctx, path)
	if err != nil {
		var je *common.JobError
		if errors.As(err, &je) {
			return "", err
		}
		return "", common.NewJobError(common.KindInternal, "text extraction failed", err)
	}
	s.log.Info("pipeline.extract.ok",
		"method", res.Method,
		"pages", res.Pages,
		"chars", common.CharCount(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return strings.TrimSpace(res.Text), nil
}

func blankSide(oldText, newText string) string {
	switch {
	case common.IsBlank(oldText) && common.IsBlank(newText):
		return "either document"
	case common.IsBlank(oldText):
		return "the old document"
	default:
		return "the new document"
	}
}
