// Package providers builds the configured analysis backend.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/llm"
	"github.com/joseph-ayodele/docjobs/internal/llm/claude"
	"github.com/joseph-ayodele/docjobs/internal/llm/gemini"
	"github.com/joseph-ayodele/docjobs/internal/llm/ollama"
	"github.com/joseph-ayodele/docjobs/internal/llm/openai"
)

// NewGenerator returns the client named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "claude":
		c, err := claude.NewClient(claude.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// NewGateway wraps the configured generator in the analysis gateway.
func NewGateway(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (*llm.Gateway, error) {
	gen, err := NewGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewGateway(gen, llm.GatewayConfig{
		MaxInputChars:    cfg.MaxInputChars,
		ResponseLanguage: cfg.ResponseLanguage,
	}, logger), nil
}
