package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ppiankov/commentpulse/internal/jsonx"
	"github.com/ppiankov/commentpulse/internal/llm"
	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/sanitize"
	"github.com/ppiankov/commentpulse/internal/telemetry"
	"github.com/ppiankov/commentpulse/internal/worker"
)

const (
	// DefaultMaxRetries is the total number of generative attempts.
	DefaultMaxRetries = 3
	// DefaultAttemptTimeout bounds one backend call.
	DefaultAttemptTimeout = 45 * time.Second
)

type retryState int

const (
	stateAttempting retryState = iota
	stateBackoff
	stateSucceeded
	stateFallenBack
)

// Outcome is the result of a generative analysis together with how it was
// obtained.
type Outcome struct {
	Result *model.AnalysisResult
	Path   model.AnalyzerPath
	// Analyzer is the backend name, or the fallback scorer name after
	// fallback.
	Analyzer string
	Model    string
	Attempts int
	// LastError is the final attempt error when the fallback ran.
	LastError error
}

// GenerativeClient asks a generative backend to score a batch of comments.
// Failed attempts are retried with backoff; when retries run out the
// fallback scorer answers instead, so Analyze only fails on empty input.
type GenerativeClient struct {
	provider       llm.Provider
	fallback       Scorer
	maxRetries     int
	policy         BackoffPolicy
	attemptTimeout time.Duration
	limiter        *worker.Limiter
	metrics        *telemetry.Metrics
	logger         *slog.Logger
	sleep          func(ctx context.Context, d time.Duration) error
	jitter         func() float64
}

// GenerativeOption configures a GenerativeClient.
type GenerativeOption func(*GenerativeClient)

// WithMaxRetries sets the total number of attempts. Values below 1 mean 1.
func WithMaxRetries(n int) GenerativeOption {
	return func(c *GenerativeClient) {
		if n < 1 {
			n = 1
		}
		c.maxRetries = n
	}
}

// WithBackoffPolicy replaces DefaultBackoffPolicy.
func WithBackoffPolicy(p BackoffPolicy) GenerativeOption {
	return func(c *GenerativeClient) { c.policy = p }
}

// WithAttemptTimeout bounds each backend call.
func WithAttemptTimeout(d time.Duration) GenerativeOption {
	return func(c *GenerativeClient) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithLimiter rate-limits backend calls, keyed by provider name.
func WithLimiter(l *worker.Limiter) GenerativeOption {
	return func(c *GenerativeClient) { c.limiter = l }
}

// WithMetrics records attempts and fallbacks.
func WithMetrics(m *telemetry.Metrics) GenerativeOption {
	return func(c *GenerativeClient) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GenerativeOption {
	return func(c *GenerativeClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSleep replaces the backoff sleep. Tests use it to avoid real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) GenerativeOption {
	return func(c *GenerativeClient) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithJitter replaces the jitter source, which must return values in [0, 1).
func WithJitter(fn func() float64) GenerativeOption {
	return func(c *GenerativeClient) {
		if fn != nil {
			c.jitter = fn
		}
	}
}

// NewGenerativeClient creates a client for provider. A nil fallback means
// the keyword analyzer.
func NewGenerativeClient(provider llm.Provider, fallback Scorer, opts ...GenerativeOption) *GenerativeClient {
	if fallback == nil {
		fallback = NewKeywordAnalyzer()
	}

	c := &GenerativeClient{
		provider:       provider,
		fallback:       fallback,
		maxRetries:     DefaultMaxRetries,
		policy:         DefaultBackoffPolicy(),
		attemptTimeout: DefaultAttemptTimeout,
		logger:         slog.Default(),
		sleep:          sleepContext,
		jitter:         rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend name
func (c *GenerativeClient) Name() string {
	return c.provider.Name()
}

// Available reports whether the backend answers with the configured credentials.
func (c *GenerativeClient) Available(ctx context.Context) bool {
	return c.provider.IsAvailable(ctx)
}

// Analyze scores texts, which must already be sanitized. analysisPrompt adds
// free-form instructions to the prompt and may be empty.
func (c *GenerativeClient) Analyze(ctx context.Context, texts []string, analysisPrompt string) (*Outcome, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	name := c.provider.Name()
	prompt := llm.BuildPrompt(texts, analysisPrompt)

	var (
		state    = stateAttempting
		attempt  int
		delay    time.Duration
		lastErr  error
		result   *model.AnalysisResult
		modelRef string
	)

	for {
		switch state {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				lastErr = err
				state = stateFallenBack
				continue
			}

			attempt++
			res, m, err := c.attempt(ctx, texts, prompt)
			if err == nil {
				result, modelRef = res, m
				c.metrics.RecordAttempt(name, "success")
				state = stateSucceeded
				continue
			}

			lastErr = err
			class := Classify(err)
			c.metrics.RecordAttempt(name, class.String())

			if attempt >= c.maxRetries || ctx.Err() != nil {
				c.logger.Warn("[GenerativeClient] Attempt failed, no retries left",
					slog.String("provider", name),
					slog.Int("attempt", attempt),
					slog.String("class", class.String()),
					slog.Any("error", err))
				state = stateFallenBack
				continue
			}

			delay = c.policy.Next(attempt, class, c.jitter())
			c.logger.Warn("[GenerativeClient] Attempt failed, retrying",
				slog.String("provider", name),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", c.maxRetries),
				slog.String("class", class.String()),
				slog.Duration("backoff", delay),
				slog.Any("error", err))
			state = stateBackoff

		case stateBackoff:
			if err := c.sleep(ctx, delay); err != nil {
				lastErr = err
				state = stateFallenBack
				continue
			}
			state = stateAttempting

		case stateSucceeded:
			c.logger.Debug("[GenerativeClient] Analysis succeeded",
				slog.String("provider", name),
				slog.Int("attempts", attempt),
				slog.Int("comments", len(texts)))
			return &Outcome{
				Result:   result,
				Path:     model.PathGenerative,
				Analyzer: name,
				Model:    modelRef,
				Attempts: attempt,
			}, nil

		case stateFallenBack:
			c.metrics.RecordFallback(name)
			c.logger.Warn("[GenerativeClient] Falling back to local analyzer",
				slog.String("provider", name),
				slog.String("fallback", c.fallback.Name()),
				slog.Int("attempts", attempt),
				slog.Any("last_error", lastErr))
			return &Outcome{
				Result:    Analyze(context.WithoutCancel(ctx), c.fallback, texts),
				Path:      model.PathLocalFallback,
				Analyzer:  c.fallback.Name(),
				Attempts:  attempt,
				LastError: lastErr,
			}, nil
		}
	}
}

// attempt makes one backend call and decodes its answer.
func (c *GenerativeClient) attempt(ctx context.Context, texts []string, prompt string) (*model.AnalysisResult, string, error) {
	if err := c.limiter.Wait(ctx, c.provider.Name()); err != nil {
		return nil, "", fmt.Errorf("rate limit: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	resp, err := c.provider.Generate(attemptCtx, llm.GenerateRequest{Prompt: prompt})
	if err != nil {
		return nil, "", err
	}

	result, err := c.decode(texts, resp.Text)
	if err != nil {
		return nil, "", err
	}
	return result, resp.Model, nil
}

// decode turns raw model output into a normalized result.
func (c *GenerativeClient) decode(texts []string, raw string) (*model.AnalysisResult, error) {
	object, ok := jsonx.ExtractObject(sanitize.ModelOutput(jsonx.StripComments(raw)))
	if !ok {
		return nil, errNoJSONObject
	}

	var parsed generativeResponse
	if err := jsonx.ParseSafe(object, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Comments) == 0 {
		return nil, errMissingComments
	}

	if len(parsed.Comments) != len(texts) {
		c.logger.Warn("[GenerativeClient] Comment count mismatch",
			slog.Int("expected", len(texts)),
			slog.Int("got", len(parsed.Comments)))
	}

	// Results carry the sanitized input text, not the text the model echoed.
	scores := make([]model.CommentScore, 0, len(texts))
	for i, text := range texts {
		if i >= len(parsed.Comments) {
			break
		}
		scores = append(scores, parsed.Comments[i].score(text))
	}

	result := Normalize(texts, scores)
	if topics := cleanTopics(parsed.Topics); len(topics) > 0 {
		result.Topics = topics
	}
	if keywords := cleanKeywords(parsed.Keywords); len(keywords) > 0 {
		result.Keywords = keywords
	}
	return result, nil
}

type generativeResponse struct {
	Comments []generativeComment `json:"comments"`
	Topics   []model.TopicEntry   `json:"topics"`
	Keywords []model.KeywordEntry `json:"keywords"`
}

type generativeComment struct {
	Text       string              `json:"text"`
	Sentiment  *float64            `json:"sentiment"`
	Toxicity   *generativeToxicity `json:"toxicity"`
	Categories []string            `json:"categories"`
}

// generativeToxicity accepts either a bare number or the full object.
type generativeToxicity struct {
	Overall    *float64           `json:"overall"`
	Categories map[string]float64 `json:"categories"`
	Confidence *float64           `json:"confidence"`
}

func (t *generativeToxicity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var overall float64
	if err := json.Unmarshal(data, &overall); err == nil {
		t.Overall = &overall
		return nil
	}

	type plain generativeToxicity
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = generativeToxicity(obj)
	return nil
}

func (c generativeComment) score(text string) model.CommentScore {
	score := model.CommentScore{
		Text:     text,
		Toxicity: model.ToxicityScore{
			Categories: model.DefaultCategories(),
			Confidence: defaultConfidence,
		},
	}
	if c.Sentiment != nil {
		score.Sentiment = *c.Sentiment
	}
	if c.Toxicity != nil {
		if c.Toxicity.Overall != nil {
			score.Toxicity.Overall = *c.Toxicity.Overall
		}
		if c.Toxicity.Confidence != nil {
			score.Toxicity.Confidence = *c.Toxicity.Confidence
		}
		for key, v := range c.Toxicity.Categories {
			if _, known := score.Toxicity.Categories[key]; known {
				score.Toxicity.Categories[key] = v
			}
		}
	}
	for _, tag := range c.Categories {
		if tag = strings.TrimSpace(tag); tag != "" {
			score.Categories = append(score.Categories, tag)
		}
	}
	return score
}

func cleanTopics(in []model.TopicEntry) []model.TopicEntry {
	out := make([]model.TopicEntry, 0, len(in))
	for _, t := range in {
		name := sanitize.CommentText(t.Name)
		if name == "" {
			continue
		}
		out = append(out, model.TopicEntry{
			Name:      name,
			Count:     max(t.Count, 0),
			Sentiment: clamp(finiteOr(t.Sentiment, 0), -1, 1),
		})
	}
	return out
}

func cleanKeywords(in []model.KeywordEntry) []model.KeywordEntry {
	out := make([]model.KeywordEntry, 0, len(in))
	for _, k := range in {
		word := sanitize.CommentText(k.Word)
		if word == "" {
			continue
		}
		out = append(out, model.KeywordEntry{
			Word:      word,
			Count:     max(k.Count, 0),
			Sentiment: clamp(finiteOr(k.Sentiment, 0), -1, 1),
		})
	}
	return out
}
