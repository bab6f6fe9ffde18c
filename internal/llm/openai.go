package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const analysisSystemPrompt = "You are a content moderation assistant that scores YouTube comments for sentiment and toxicity and answers with JSON only."

// OpenAIProvider implements the Provider interface for OpenAI and OpenAI-compatible models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config, 45*time.Second)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Listing models is the cheapest authenticated call
	if _, err := p.client.ListModels(ctx); err != nil {
		slog.Warn("[OpenAI] Availability check failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// Generate sends the prompt through the Chat Completions API
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := p.config.model(req, openai.GPT4oMini)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout(45*time.Second))
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   p.config.maxTokens(req),
		Temperature: float32(p.config.Temperature),
		TopP:        float32(p.config.TopP),
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, p.translateError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	if resp.Model != "" {
		model = resp.Model
	}

	return &GenerateResponse{
		Text:       resp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// translateError maps go-openai errors onto StatusError so that retry
// classification does not depend on the SDK.
func (p *OpenAIProvider) translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: p.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: p.Name(), StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}

	return fmt.Errorf("OpenAI API error: %w", err)
}
