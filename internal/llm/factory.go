package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a new generative provider based on configuration.
// An empty provider name disables generative analysis and returns nil, nil.
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	switch provider {
	case "gemini", "google":
		return NewGeminiProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown generative provider: %s (supported: gemini, openai, anthropic, ollama)", config.Provider)
	}
}

// APIKeyEnv returns the environment variable conventionally holding the
// API key for a provider, or "" when the provider needs none.
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini", "google":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}
