package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/llm"
)

type Config struct {
	BaseURL     string // default http://localhost:11434
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client talks to a local Ollama server through /api/generate.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (c *Client) Name() string { return "ollama:" + c.cfg.Model }

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate implements llm.Generator with a single non-streaming call.
func (c *Client) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	body := map[string]any{
		"model":   c.cfg.Model,
		"prompt":  p.User,
		"stream":  false,
		"options": map[string]any{"temperature": c.cfg.Temperature},
	}
	if p.System != "" {
		body["system"] = p.System
	}
	if p.JSON {
		body["format"] = "json"
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	raw, err := llm.PostJSON(ctx, c.httpClient, endpoint, body, nil, c.log)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			return "", fmt.Errorf("ollama status %d: %w", se.Status, err)
		}
		return "", fmt.Errorf("ollama http error: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}
