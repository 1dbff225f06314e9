package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClientFromConfig(t *testing.T) {
	t.Run("gemini defaults endpoint", func(t *testing.T) {
		client, err := NewClientFromConfig(&Config{Provider: "gemini", Model: "gemini-1.5-flash", APIKey: "k"}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &Client{}, client)
		assert.Equal(t, DefaultGeminiEndpoint, client.GetEndpoint())
		assert.Equal(t, "gemini-1.5-flash", client.GetModel())
	})

	t.Run("empty provider is gemini", func(t *testing.T) {
		client, err := NewClientFromConfig(&Config{Model: "gemini-1.5-flash"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, DefaultGeminiEndpoint, client.GetEndpoint())
	})

	t.Run("openai requires endpoint", func(t *testing.T) {
		_, err := NewClientFromConfig(&Config{Provider: "openai", Model: "gpt-4o"}, zap.NewNop())
		assert.Error(t, err)

		client, err := NewClientFromConfig(&Config{Provider: "OpenAI", Endpoint: "https://api.openai.com/v1", Model: "gpt-4o"}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &Client{}, client)
	})

	t.Run("anthropic", func(t *testing.T) {
		client, err := NewClientFromConfig(&Config{Provider: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "k"}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &AnthropicClient{}, client)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClientFromConfig(&Config{Provider: "bard", Model: "x"}, zap.NewNop())
		assert.Error(t, err)
	})
}
