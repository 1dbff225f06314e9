package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider names accepted by NewClientFromConfig.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// DefaultGeminiEndpoint is Google's OpenAI-compatible endpoint.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider  string // openai, gemini or anthropic
	Endpoint  string // Base URL, e.g., "https://api.openai.com/v1"
	Model     string // Model name, e.g., "gemini-1.5-flash"
	APIKey    string // Optional for local endpoints
	MaxTokens int    // Anthropic only
}

// NewClientFromConfig creates the client for the configured provider.
// Gemini is served through its OpenAI-compatible endpoint.
func NewClientFromConfig(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case ProviderGemini, "":
		c := *cfg
		if c.Endpoint == "" {
			c.Endpoint = DefaultGeminiEndpoint
		}
		return NewClient(&c, logger)
	case ProviderOpenAI:
		return NewClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
