package llm

import (
	"context"
	"time"

	"github.com/ppiankov/commentpulse/internal/model"
)

// Provider defines the interface for generative backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends one prompt and returns the raw completion text.
	// Non-2xx answers are reported as *StatusError; a 2xx answer without
	// usable content is reported as ErrEmptyCompletion.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for a single completion
type GenerateRequest struct {
	// Prompt is the full analysis prompt (see BuildPrompt)
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens overrides the configured output limit when set
	MaxTokens int
}

// GenerateResponse contains the raw completion
type GenerateResponse struct {
	// Text is the unparsed model output
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption when the backend reports it
	TokensUsed int
}

// Config holds generative provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for Gemini/OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout bounds a single request
	Timeout time.Duration

	// Sampling parameters
	Temperature float64
	TopK        int
	TopP        float64

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "gemini",
		Model:       "gemini-2.0-flash-exp",
		Timeout:     45 * time.Second,
		Temperature: 0.3,
		TopK:        20,
		TopP:        0.8,
		MaxTokens:   4096,
	}
}

// ConfigFromModel converts model.GenerativeConfig to llm.Config
func ConfigFromModel(cfg model.GenerativeConfig) Config {
	return Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
		TopK:        cfg.TopK,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxOutputTokens,
		HTTPProxy:   cfg.HTTPProxy,
		HTTPSProxy:  cfg.HTTPSProxy,
		NoProxy:     cfg.NoProxy,
	}
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c Config) maxTokens(req GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 4096
}

func (c Config) model(req GenerateRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}
