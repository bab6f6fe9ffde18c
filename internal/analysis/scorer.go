// Package analysis scores comment batches for sentiment and toxicity.
//
// Two families of analyzers exist: the generative client, which asks a
// remote model and retries with backoff, and local scorers, which never
// fail. Every path ends in Normalize so callers always see the same shape.
package analysis

import (
	"context"
	"errors"

	"github.com/ppiankov/commentpulse/internal/model"
)

// ErrEmptyBatch is returned when an analysis is requested for zero texts.
var ErrEmptyBatch = errors.New("analysis: texts must be a non-empty list")

// Scorer produces exactly one CommentScore per input text, in input order.
// Implementations must not fail; per-text problems become neutral defaults.
type Scorer interface {
	Name() string
	Score(ctx context.Context, texts []string) []model.CommentScore
}

// Analyze runs a scorer and normalizes its output.
func Analyze(ctx context.Context, s Scorer, texts []string) *model.AnalysisResult {
	return Normalize(texts, s.Score(ctx, texts))
}
