package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiKeyHeader      = "x-goog-api-key"
)

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Gemini API structures
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &GeminiProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config, 45*time.Second),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that the configured model can be described with this key
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	endpoint := fmt.Sprintf("%s/models/%s", p.baseURL, p.config.model(GenerateRequest{}, "gemini-2.0-flash-exp"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set(geminiKeyHeader, p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Warn("[Gemini] Availability check failed", slog.String("error", err.Error()))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("[Gemini] Availability check failed", slog.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// Generate sends the prompt to the generateContent endpoint
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := p.config.model(req, "gemini-2.0-flash-exp")

	apiReq := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     p.config.Temperature,
			TopK:            p.config.TopK,
			TopP:            p.config.TopP,
			MaxOutputTokens: p.config.maxTokens(req),
		},
	}

	resp, err := p.makeRequest(ctx, model, apiReq)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyCompletion
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyCompletion
	}

	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}

	return &GenerateResponse{
		Text:       text,
		Model:      model,
		TokensUsed: resp.UsageMetadata.TotalTokenCount,
	}, nil
}

// makeRequest makes an HTTP request to the Gemini API
func (p *GeminiProvider) makeRequest(ctx context.Context, model string, apiReq geminiRequest) (*geminiResponse, error) {
	// Serialize request
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Create HTTP request
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	// The key stays out of the URL, which transport errors echo.
	httpReq.Header.Set(geminiKeyHeader, p.apiKey)

	// Make request
	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Read response body
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Check for errors
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := string(respBody)
		var apiErr geminiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Status + " - " + apiErr.Error.Message
		}
		return nil, &StatusError{Provider: p.Name(), StatusCode: httpResp.StatusCode, Message: msg}
	}

	// Parse response
	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &resp, nil
}
