package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/commentpulse/internal/llm"
	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/telemetry"
)

// scriptedProvider replays a fixed list of answers; the last one repeats.
type scriptedProvider struct {
	mu      sync.Mutex
	answers []scriptedAnswer
	calls   int
	prompts []string
}

type scriptedAnswer struct {
	text string
	err  error
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := min(p.calls, len(p.answers)-1)
	p.calls++
	p.prompts = append(p.prompts, req.Prompt)

	a := p.answers[idx]
	if a.err != nil {
		return nil, a.err
	}
	return &llm.GenerateResponse{Text: a.text, Model: "scripted-1"}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestClient(p llm.Provider, opts ...GenerativeOption) (*GenerativeClient, *recordingSleep) {
	rec := &recordingSleep{}
	base := []GenerativeOption{
		WithSleep(rec.sleep),
		WithJitter(func() float64 { return 0 }),
	}
	return NewGenerativeClient(p, nil, append(base, opts...)...), rec
}

const fencedAnswer = "Sure! Here is the analysis:\n```json\n" + `{
  "comments": [
    {"text": "great video", "sentiment": 0.8,
     "toxicity": {"overall": 0.05, "categories": {"insult": 0.02}, "confidence": 0.9},
     "categories": ["praise"]},
    {"text": "you are dumb", "sentiment": -0.7, "toxicity": 0.6,},
  ],
  "topics": [{"name": "feedback", "count": 2, "sentiment": 0.05}],
}` + "\n```\nLet me know if you need more."

var testTexts = []string{"great video", "you are dumb"}

func TestGenerativeClient_Success(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{{text: fencedAnswer}}}
	client, rec := newTestClient(provider)

	out, err := client.Analyze(context.Background(), testTexts, "focus on toxicity")
	require.NoError(t, err)

	assert.Equal(t, model.PathGenerative, out.Path)
	assert.Equal(t, "scripted", out.Analyzer)
	assert.Equal(t, "scripted-1", out.Model)
	assert.Equal(t, 1, out.Attempts)
	assert.Nil(t, out.LastError)
	assert.Empty(t, rec.delays)

	require.Len(t, out.Result.Comments, 2)
	first := out.Result.Comments[0]
	assert.Equal(t, "great video", first.Text)
	assert.InDelta(t, 0.8, first.Sentiment, 1e-9)
	assert.InDelta(t, 0.02, first.Toxicity.Categories[model.CategoryInsult], 1e-9)
	assert.InDelta(t, model.DefaultCategoryScore, first.Toxicity.Categories[model.CategoryThreat], 1e-9)
	assert.InDelta(t, 0.9, first.Toxicity.Confidence, 1e-9)
	assert.Equal(t, []string{"praise"}, first.Categories)

	second := out.Result.Comments[1]
	assert.InDelta(t, 0.6, second.Toxicity.Overall, 1e-9)
	assert.Equal(t, []string{model.TagPotentiallyToxic}, second.Categories)
	assert.Len(t, second.Toxicity.Categories, len(model.CategoryKeys))

	require.Len(t, out.Result.Topics, 1)
	assert.Equal(t, "feedback", out.Result.Topics[0].Name)
	assert.NotEmpty(t, out.Result.Keywords)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "great video"+llm.CommentSeparator+"you are dumb")
	assert.Contains(t, provider.prompts[0], "Additional context: focus on toxicity")
}

func TestGenerativeClient_ParseFailureThenSuccess(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{text: "I'm sorry, I can't produce JSON right now."},
		{text: `{"comments": [{"sentiment": 0.5}, {"sentiment": -0.5}]}`},
	}}
	client, rec := newTestClient(provider)

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	assert.Equal(t, model.PathGenerative, out.Path)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.delays)
	assert.InDelta(t, -0.5, out.Result.Comments[1].Sentiment, 1e-9)
}

func TestGenerativeClient_LenientJSON(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{text: `{comments: [{text: 'great video', sentiment: 0.4}, {sentiment: 0.1}]}`},
	}}
	client, _ := newTestClient(provider)

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)
	assert.Equal(t, model.PathGenerative, out.Path)
	assert.InDelta(t, 0.4, out.Result.Comments[0].Sentiment, 1e-9)
}

func TestGenerativeClient_TolerantAnswers(t *testing.T) {
	for name, answer := range map[string]string{
		"single quotes": `{comments:[{text:'great video',sentiment:0.4},{text:'you are dumb',sentiment:-0.2}]}`,
		"line comment":  "```json\n{\n  // scores follow\n  \"comments\": [\n    {\"sentiment\": 0.4},\n    {\"sentiment\": -0.2}\n  ]\n}\n```",
		"block comment": `{"comments": [{"sentiment": 0.4} /* first */, {"sentiment": -0.2}]}`,
		"url in text":   `{"comments": [{"text": "see https://x.com", "sentiment": 0.4}, {"text": "http://y.io/a", "sentiment": -0.2}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			provider := &scriptedProvider{answers: []scriptedAnswer{{text: answer}}}
			client, _ := newTestClient(provider)

			out, err := client.Analyze(context.Background(), testTexts, "")
			require.NoError(t, err)
			assert.Equal(t, model.PathGenerative, out.Path)
			assert.Equal(t, 1, out.Attempts)
			require.Len(t, out.Result.Comments, 2)
			assert.InDelta(t, 0.4, out.Result.Comments[0].Sentiment, 1e-9)
			assert.InDelta(t, -0.2, out.Result.Comments[1].Sentiment, 1e-9)
			assert.Equal(t, "great video", out.Result.Comments[0].Text)
		})
	}
}

func TestGenerativeClient_ShortAnswerPadsDefaults(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{text: `{"comments": [{"sentiment": 0.9}]}`},
	}}
	client, _ := newTestClient(provider)

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	require.Len(t, out.Result.Comments, 2)
	assert.Zero(t, out.Result.Comments[1].Sentiment)
	assert.Equal(t, []string{model.TagGeneral}, out.Result.Comments[1].Categories)
}

func TestGenerativeClient_MissingCommentsFallsBack(t *testing.T) {
	for name, answer := range map[string]string{
		"no comments key": `{"result": "ok"}`,
		"empty comments":  `{"comments": []}`,
		"no json":         "nothing to see",
		"broken json":     `{"comments": [{"sentiment": }`,
	} {
		t.Run(name, func(t *testing.T) {
			provider := &scriptedProvider{answers: []scriptedAnswer{{text: answer}}}
			client, rec := newTestClient(provider)

			out, err := client.Analyze(context.Background(), testTexts, "")
			require.NoError(t, err)

			assert.Equal(t, model.PathLocalFallback, out.Path)
			assert.Equal(t, "keyword", out.Analyzer)
			assert.Equal(t, DefaultMaxRetries, out.Attempts)
			assert.Equal(t, DefaultMaxRetries, provider.callCount())
			assert.Len(t, rec.delays, DefaultMaxRetries-1)
			assert.Equal(t, ClassParse, Classify(out.LastError))
		})
	}
}

func TestGenerativeClient_OverloadedBackoff(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{err: &llm.StatusError{Provider: "scripted", StatusCode: http.StatusTooManyRequests}},
	}}
	client, rec := newTestClient(provider)

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	assert.Equal(t, model.PathLocalFallback, out.Path)
	assert.Equal(t, []time.Duration{6 * time.Second, 12 * time.Second}, rec.delays)
	assert.True(t, llm.IsOverloaded(out.LastError))
}

func TestGenerativeClient_MaxRetries(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{err: &llm.StatusError{StatusCode: http.StatusInternalServerError}},
	}}
	client, rec := newTestClient(provider, WithMaxRetries(5))

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	assert.Equal(t, 5, out.Attempts)
	assert.Equal(t, 5, provider.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second}, rec.delays)
}

func TestGenerativeClient_EmptyBatch(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{{text: fencedAnswer}}}
	client, _ := newTestClient(provider)

	out, err := client.Analyze(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Nil(t, out)
	assert.Zero(t, provider.callCount())
}

func TestGenerativeClient_CancelledContext(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{{text: fencedAnswer}}}
	client, _ := newTestClient(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := client.Analyze(ctx, testTexts, "")
	require.NoError(t, err)

	assert.Equal(t, model.PathLocalFallback, out.Path)
	assert.Zero(t, out.Attempts)
	assert.Zero(t, provider.callCount())
	assert.ErrorIs(t, out.LastError, context.Canceled)
	assert.Equal(t, Analyze(context.Background(), NewKeywordAnalyzer(), testTexts), out.Result)
}

func TestGenerativeClient_CancelledDuringBackoff(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{err: &llm.StatusError{StatusCode: http.StatusServiceUnavailable}},
	}}
	client := NewGenerativeClient(provider, nil,
		WithSleep(func(ctx context.Context, d time.Duration) error { return context.Canceled }))

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	assert.Equal(t, model.PathLocalFallback, out.Path)
	assert.Equal(t, 1, out.Attempts)
	assert.ErrorIs(t, out.LastError, context.Canceled)
}

func TestGenerativeClient_AttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client, _ := newTestClient(newGemini(t, server.URL), WithAttemptTimeout(50*time.Millisecond), WithMaxRetries(2))

	out, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	assert.Equal(t, model.PathLocalFallback, out.Path)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, ClassTransient, Classify(out.LastError))
}

func TestGenerativeClient_Metrics(t *testing.T) {
	provider := &scriptedProvider{answers: []scriptedAnswer{
		{err: &llm.StatusError{StatusCode: http.StatusServiceUnavailable}},
		{text: "no json here"},
		{err: &llm.StatusError{StatusCode: http.StatusBadGateway}},
	}}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	client, _ := newTestClient(provider, WithMetrics(metrics))

	_, err := client.Analyze(context.Background(), testTexts, "")
	require.NoError(t, err)

	attempts := metrics.GenerativeAttempts
	assert.InDelta(t, 1, testutil.ToFloat64(attempts.WithLabelValues("scripted", "overloaded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(attempts.WithLabelValues("scripted", "parse")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(attempts.WithLabelValues("scripted", "transient")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Fallbacks.WithLabelValues("scripted")), 0)
}

func newGemini(t *testing.T, baseURL string) llm.Provider {
	t.Helper()
	cfg := llm.DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	provider, err := llm.NewGeminiProvider(cfg)
	require.NoError(t, err)
	return provider
}

// An always-overloaded backend costs exactly maxRetries calls and yields the
// keyword analyzer's result.
func TestGenerativeClient_AlwaysUnavailableFallsBack(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 503, "message": "The model is overloaded.", "status": "UNAVAILABLE"},
		})
	}))
	defer server.Close()

	client, _ := newTestClient(newGemini(t, server.URL))
	texts := []string{"Video ini bagus sekali!", "Kamu bodoh banget anjing", "Biasa aja sih"}

	out, err := client.Analyze(context.Background(), texts, "")
	require.NoError(t, err)

	assert.Equal(t, int32(DefaultMaxRetries), calls.Load())
	assert.Equal(t, DefaultMaxRetries, out.Attempts)
	assert.Equal(t, model.PathLocalFallback, out.Path)
	assert.True(t, llm.IsOverloaded(out.LastError))
	assert.Equal(t, Analyze(context.Background(), NewKeywordAnalyzer(), texts), out.Result)
}

func TestGenerativeToxicity_Unmarshal(t *testing.T) {
	var number generativeComment
	require.NoError(t, json.Unmarshal([]byte(`{"toxicity": 0.7}`), &number))
	require.NotNil(t, number.Toxicity)
	assert.InDelta(t, 0.7, *number.Toxicity.Overall, 1e-9)

	var object generativeComment
	require.NoError(t, json.Unmarshal([]byte(`{"toxicity": {"overall": 0.2, "categories": {"threat": 0.4}}}`), &object))
	assert.InDelta(t, 0.2, *object.Toxicity.Overall, 1e-9)
	assert.InDelta(t, 0.4, object.Toxicity.Categories["threat"], 1e-9)
	assert.Nil(t, object.Toxicity.Confidence)

	var null generativeComment
	require.NoError(t, json.Unmarshal([]byte(`{"toxicity": null}`), &null))
	assert.Nil(t, null.Toxicity)

	var bad generativeComment
	assert.Error(t, json.Unmarshal([]byte(`{"toxicity": "high"}`), &bad))
}
