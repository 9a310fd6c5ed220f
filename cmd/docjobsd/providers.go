package main

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/similarity"
)

// newScorer never fails: a missing embedding backend leaves the scorer
// unavailable and every score 0.
func newScorer(ctx context.Context, cfg common.EmbeddingConfig, logger *slog.Logger) *similarity.Scorer {
	if cfg.Provider == "gemini" {
		e, err := similarity.NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions, logger)
		if err != nil {
			logger.Error("similarity.init.failed", "provider", cfg.Provider, "error", err)
			return similarity.NewScorer(nil, logger)
		}
		return similarity.NewScorer(e, logger)
	}
	return similarity.NewScorer(similarity.NewHashingEmbedder(int(cfg.Dimensions)), logger)
}
