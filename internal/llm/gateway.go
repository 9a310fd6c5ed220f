package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

// GatewayConfig bounds what is sent to the model and fixes the answer language.
type GatewayConfig struct {
	MaxInputChars    int
	ResponseLanguage string
}

// Gateway renders stage prompts, calls the Generator and interprets the
// answers. Summarize and NarrateChanges report backend failures; the
// structured operations degrade to fallback values instead.
type Gateway struct {
	gen    Generator
	cfg    GatewayConfig
	logger *slog.Logger
}

func NewGateway(gen Generator, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 15000
	}
	if strings.TrimSpace(cfg.ResponseLanguage) == "" {
		cfg.ResponseLanguage = "Vietnamese"
	}
	return &Gateway{gen: gen, cfg: cfg, logger: logger}
}

// Backend names the generator in use.
func (g *Gateway) Backend() string { return g.gen.Name() }

func (g *Gateway) clip(s string) string {
	return common.TruncateRunes(s, g.cfg.MaxInputChars)
}

// call renders one prompt and runs it, logging start/ok/failed around it.
func (g *Gateway) call(ctx context.Context, t *template.Template, data any, jsonOut bool) (string, error) {
	user, err := render(t, data)
	if err != nil {
		return "", err
	}
	op := t.Name()
	start := time.Now()
	g.logger.Info("llm.call.start",
		"op", op,
		"backend", g.gen.Name(),
		"prompt_chars", len(user),
		"job_id", common.JobIDFromContext(ctx),
	)
	out, err := g.gen.Generate(ctx, Prompt{System: systemAcademic, User: user, JSON: jsonOut})
	if err != nil {
		g.logger.Error("llm.call.failed",
			"op", op,
			"backend", g.gen.Name(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	g.logger.Info("llm.call.ok",
		"op", op,
		"backend", g.gen.Name(),
		"response_chars", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// prose runs a free-text prompt. Failures and empty answers are BackendErrors.
func (g *Gateway) prose(ctx context.Context, t *template.Template, data any) (string, error) {
	out, err := g.call(ctx, t, data, false)
	if err != nil {
		return "", common.BackendError(fmt.Sprintf("%s: %s backend call failed", t.Name(), g.gen.Name()), err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", common.BackendError(fmt.Sprintf("%s: %s returned an empty answer", t.Name(), g.gen.Name()), nil)
	}
	return out, nil
}

// Summarize returns a short summary of text in the response language.
func (g *Gateway) Summarize(ctx context.Context, text string) (string, error) {
	return g.prose(ctx, summarizeTmpl, map[string]string{
		"Language": g.cfg.ResponseLanguage,
		"Text":     g.clip(text),
	})
}

// NarrateChanges describes the differences between two versions in prose.
func (g *Gateway) NarrateChanges(ctx context.Context, oldText, newText string) (string, error) {
	return g.prose(ctx, narrateTmpl, map[string]string{
		"Language": g.cfg.ResponseLanguage,
		"Old":      g.clip(oldText),
		"New":      g.clip(newText),
	})
}

// ScoreAlignment never fails: any backend or parse problem becomes a zero,
// not-aligned verdict whose reasoning carries the error.
func (g *Gateway) ScoreAlignment(ctx context.Context, clo, plo string) AlignmentResult {
	out, err := g.call(ctx, alignmentTmpl, map[string]string{
		"Language": g.cfg.ResponseLanguage,
		"CLO":      g.clip(clo),
		"PLO":      g.clip(plo),
	}, true)
	if err != nil {
		return alignmentFallback(err)
	}
	res, err := parseAlignment(out)
	if err != nil {
		g.logger.Warn("llm.alignment.parse_failed", "error", err, "response_chars", len(out))
		return alignmentFallback(err)
	}
	return res
}

func alignmentFallback(err error) AlignmentResult {
	return AlignmentResult{Score: 0, IsAligned: false, Reasoning: "Error: " + err.Error()}
}

var errNoObject = errors.New("no JSON object in model output")

// parseAlignment validates strictly first and retries once after coercing
// the usual type slips.
func parseAlignment(out string) (AlignmentResult, error) {
	span, ok := FirstObject(out)
	if !ok {
		return AlignmentResult{}, errNoObject
	}
	raw := []byte(span)
	v, err := AlignmentValidator()
	if err != nil {
		return AlignmentResult{}, err
	}
	if err := v.Validate(raw); err != nil {
		cleaned, sErr := sanitizeAlignment(raw)
		if sErr != nil {
			return AlignmentResult{}, fmt.Errorf("decode alignment: %w", sErr)
		}
		if vErr := v.Validate(cleaned); vErr != nil {
			return AlignmentResult{}, vErr
		}
		raw = cleaned
	}
	var res AlignmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return AlignmentResult{}, fmt.Errorf("decode alignment: %w", err)
	}
	return res, nil
}

// ExtractStructured asks the model for a syllabus record and normalizes the
// answer. Any failure yields the normalized empty record.
func (g *Gateway) ExtractStructured(ctx context.Context, text string) Syllabus {
	out, err := g.call(ctx, extractTmpl, map[string]string{
		"Shape": syllabusShape,
		"Text":  g.clip(text),
	}, true)
	if err != nil {
		return NormalizeSyllabus(Syllabus{})
	}
	span, ok := FirstObject(out)
	if !ok {
		g.logger.Warn("llm.extract.no_object", "response_chars", len(out))
		return NormalizeSyllabus(Syllabus{})
	}
	s, err := ParseSyllabus([]byte(span))
	if err != nil {
		g.logger.Warn("llm.extract.parse_failed", "error", err)
		return s
	}
	return g.conformSyllabus("llm.extract.schema_invalid", s)
}

// RepairStructured normalizes a record that is already JSON.
func (g *Gateway) RepairStructured(raw []byte) Syllabus {
	s, err := ParseSyllabus(raw)
	if err != nil {
		g.logger.Warn("llm.repair.parse_failed", "error", err)
		return s
	}
	return g.conformSyllabus("llm.repair.schema_invalid", s)
}

// conformSyllabus returns s when its encoding satisfies the syllabus schema
// and the normalized empty record otherwise.
func (g *Gateway) conformSyllabus(event string, s Syllabus) Syllabus {
	v, err := SyllabusValidator()
	if err == nil {
		err = v.ValidateValue(s)
	}
	if err != nil {
		g.logger.Warn(event, "error", err)
		return NormalizeSyllabus(Syllabus{})
	}
	return s
}

// CompareStructured asks the model for a field-level comparison of two
// records. Any failure yields an empty comparison.
func (g *Gateway) CompareStructured(ctx context.Context, a, b []byte) StructuredComparison {
	out, err := g.call(ctx, compareTmpl, map[string]string{
		"Language": g.cfg.ResponseLanguage,
		"Shape":    comparisonShape,
		"Old":      g.clip(string(a)),
		"New":      g.clip(string(b)),
	}, true)
	if err != nil {
		return NormalizeComparison(StructuredComparison{})
	}
	span, ok := FirstObject(out)
	if !ok {
		g.logger.Warn("llm.compare.no_object", "response_chars", len(out))
		return NormalizeComparison(StructuredComparison{})
	}
	c, err := ParseComparison([]byte(span))
	if err != nil {
		g.logger.Warn("llm.compare.parse_failed", "error", err)
	}
	return c
}
