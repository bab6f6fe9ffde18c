package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/sentiment"
	"github.com/ppiankov/commentpulse/internal/worker"
)

// Toxicity proxy used when no toxicity classifier is available.
const (
	negativeToxicityFactor = 0.4
	baselineToxicity       = 0.1
)

// neutralPrediction replaces a failed per-text classification.
var neutralPrediction = sentiment.Prediction{Label: sentiment.LabelNeutral, Score: 0.5}

// ModelAnalyzer scores texts with a local sentiment classifier and an
// optional toxicity classifier. Classifiers are loaded on first use, once
// per analyzer; a failed load is remembered and the keyword fallback scores
// every later batch.
type ModelAnalyzer struct {
	loadSentiment sentiment.Loader
	loadToxicity  sentiment.Loader
	fallback      Scorer
	workers       int
	logger        *slog.Logger

	once       sync.Once
	classifier sentiment.Classifier
	toxicity   sentiment.Classifier
	loadErr    error
}

// ModelOption configures a ModelAnalyzer.
type ModelOption func(*ModelAnalyzer)

// WithToxicityLoader adds a dedicated toxicity classifier.
func WithToxicityLoader(l sentiment.Loader) ModelOption {
	return func(a *ModelAnalyzer) { a.loadToxicity = l }
}

// WithWorkers sets how many texts are classified concurrently.
func WithWorkers(n int) ModelOption {
	return func(a *ModelAnalyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithModelLogger sets the logger.
func WithModelLogger(l *slog.Logger) ModelOption {
	return func(a *ModelAnalyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithFallback replaces the keyword analyzer used when loading fails.
func WithFallback(s Scorer) ModelOption {
	return func(a *ModelAnalyzer) {
		if s != nil {
			a.fallback = s
		}
	}
}

// NewModelAnalyzer creates an analyzer that loads its classifier with load.
func NewModelAnalyzer(load sentiment.Loader, opts ...ModelOption) *ModelAnalyzer {
	a := &ModelAnalyzer{
		loadSentiment: load,
		fallback:      NewKeywordAnalyzer(),
		workers:       4,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the analyzer name
func (a *ModelAnalyzer) Name() string {
	return "local-model"
}

// Ready loads the classifiers if needed and reports the load error, if any.
func (a *ModelAnalyzer) Ready(ctx context.Context) error {
	a.load(ctx)
	return a.loadErr
}

func (a *ModelAnalyzer) load(ctx context.Context) {
	a.once.Do(func() {
		// The load outlives the first caller's deadline.
		ctx := context.WithoutCancel(ctx)

		if a.loadSentiment == nil {
			a.loadErr = errors.New("no sentiment model configured")
		} else {
			a.classifier, a.loadErr = a.loadSentiment(ctx)
		}
		if a.loadErr != nil {
			a.logger.Warn("[ModelAnalyzer] Sentiment model unavailable, using keyword analyzer",
				slog.Any("error", a.loadErr))
			return
		}

		if a.loadToxicity == nil {
			return
		}
		tox, err := a.loadToxicity(ctx)
		if err != nil {
			a.logger.Warn("[ModelAnalyzer] Toxicity model unavailable, using sentiment proxy",
				slog.Any("error", err))
			return
		}
		a.toxicity = tox
		a.logger.Info("[ModelAnalyzer] Toxicity model loaded")
	})
}

// Score implements Scorer.
func (a *ModelAnalyzer) Score(ctx context.Context, texts []string) []model.CommentScore {
	a.load(ctx)
	if a.loadErr != nil {
		return a.fallback.Score(ctx, texts)
	}

	scores := make([]model.CommentScore, len(texts))
	if len(texts) == 0 {
		return scores
	}

	pool := worker.NewPool(a.workers)
	pool.Start()
	for i, text := range texts {
		pool.Submit(&classifyJob{index: i, text: text, analyzer: a, parent: ctx})
	}
	for _, r := range pool.Wait() {
		res := r.(*classifyResult)
		scores[res.index] = res.score
	}
	return scores
}

// ScoreText classifies one text. It never fails.
func (a *ModelAnalyzer) ScoreText(ctx context.Context, text string) model.CommentScore {
	pred, err := a.classifier.Classify(ctx, text)
	if err != nil {
		a.logger.Debug("[ModelAnalyzer] Classification failed, using neutral", slog.Any("error", err))
		pred = neutralPrediction
	}

	var s float64
	switch sentiment.NormalizeLabel(pred.Label) {
	case sentiment.LabelPositive:
		s = pred.Score
	case sentiment.LabelNegative:
		s = -pred.Score
	}

	toxicity := a.toxicityFor(ctx, text, pred)

	return model.CommentScore{
		Text:       text,
		Sentiment:  clamp(finiteOr(s, 0), -1, 1),
		Toxicity:   buildToxicity(toxicity, finiteOr(pred.Score, defaultConfidence), nil),
		Categories: tagsFor(toxicity),
	}
}

func (a *ModelAnalyzer) toxicityFor(ctx context.Context, text string, pred sentiment.Prediction) float64 {
	if a.toxicity != nil {
		tox, err := a.toxicity.Classify(ctx, text)
		if err == nil {
			if isToxicLabel(tox.Label) {
				return clamp(finiteOr(tox.Score, 0), 0, 1)
			}
			return clamp(1-finiteOr(tox.Score, 1), 0, 1)
		}
		a.logger.Debug("[ModelAnalyzer] Toxicity classification failed, using sentiment proxy", slog.Any("error", err))
	}

	if sentiment.NormalizeLabel(pred.Label) == sentiment.LabelNegative {
		return clamp(negativeToxicityFactor*finiteOr(pred.Score, 0), 0, 1)
	}
	return baselineToxicity
}

// isToxicLabel recognizes the positive class of common toxicity models
// (toxic, LABEL_1, offensive, hate).
func isToxicLabel(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(l, "non") || strings.HasPrefix(l, "not") {
		return false
	}
	return l == "label_1" || strings.Contains(l, "toxic") ||
		strings.Contains(l, "offensive") || strings.Contains(l, "hate")
}

// Close releases classifiers that hold native resources.
func (a *ModelAnalyzer) Close() error {
	var errs []error
	for _, c := range []sentiment.Classifier{a.classifier, a.toxicity} {
		if closer, ok := c.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

type classifyJob struct {
	index    int
	text     string
	analyzer *ModelAnalyzer
	parent   context.Context
}

// Execute ignores the pool context; the caller's context governs inference.
func (j *classifyJob) Execute(context.Context) worker.Result {
	return &classifyResult{index: j.index, score: j.analyzer.ScoreText(j.parent, j.text)}
}

type classifyResult struct {
	index int
	score model.CommentScore
}

func (r *classifyResult) GetError() error { return nil }
