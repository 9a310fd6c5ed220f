package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	gen, err := NewGenerator(ctx, common.LLMConfig{Provider: "ollama"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama:llama3", gen.Name())

	gen, err = NewGenerator(ctx, common.LLMConfig{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", gen.Name())

	gen, err = NewGenerator(ctx, common.LLMConfig{Provider: "claude"}, nil)
	assert.Error(t, err)
	assert.Nil(t, gen)

	_, err = NewGenerator(ctx, common.LLMConfig{Provider: "mystery"}, nil)
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestNewGateway(t *testing.T) {
	gw, err := NewGateway(context.Background(), common.LLMConfig{Provider: "ollama", Model: "qwen2.5", MaxInputChars: 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama:qwen2.5", gw.Backend())
}
