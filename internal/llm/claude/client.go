package claude

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joseph-ayodele/docjobs/internal/llm"
)

type Config struct {
	APIKey      string
	Model       string // default claude-3-5-haiku-latest
	Temperature float32
	MaxTokens   int64
}

// Client generates text with the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	cfg    Config
	log    *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{client: client, cfg: cfg, log: logger}, nil
}

func (c *Client) Name() string { return "claude:" + c.cfg.Model }

// Generate implements llm.Generator. Claude has no JSON response mode, so
// JSON prompts rely on the instructions in the prompt itself.
func (c *Client) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.cfg.Temperature))
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no response generated from claude")
	}
	return strings.TrimSpace(b.String()), nil
}
