// Package similarity scores how semantically close two texts are.
package similarity

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

// Embedder maps text to a dense vector. Implementations are created once per
// process and must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// Scorer returns cosine similarity clipped to [0,1]. A nil embedder means the
// capability failed to initialize; every score is then 0.
type Scorer struct {
	embedder Embedder
	logger   *slog.Logger
}

func NewScorer(e Embedder, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if e == nil {
		logger.Warn("similarity.unavailable", "reason", "no embedder")
	}
	return &Scorer{embedder: e, logger: logger}
}

func (s *Scorer) Available() bool { return s != nil && s.embedder != nil }

func (s *Scorer) Score(ctx context.Context, a, b string) float64 {
	if !s.Available() || common.IsBlank(a) || common.IsBlank(b) {
		return 0
	}
	start := time.Now()
	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		s.logger.Warn("similarity.embed.failed", "embedder", s.embedder.Name(), "error", err)
		return 0
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		s.logger.Warn("similarity.embed.failed", "embedder", s.embedder.Name(), "error", err)
		return 0
	}
	score := clip(Cosine(va, vb))
	s.logger.Debug("similarity.score.ok",
		"embedder", s.embedder.Name(),
		"score", score,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return score
}

// Cosine is 0 for mismatched lengths or a zero vector.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clip(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
