// Package sentiment wraps local text classifiers used when generative
// analysis is not selected or not available.
package sentiment

import (
	"context"
	"strings"
)

// Normalized labels.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

// Prediction is the top label of a classifier and its score in [0, 1].
type Prediction struct {
	Label string
	Score float64
}

// Classifier labels a single text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// Loader constructs a Classifier. Loading may be slow (model download,
// ONNX session start) so callers are expected to invoke it once.
type Loader func(ctx context.Context) (Classifier, error)

// NormalizeLabel maps model-specific labels onto the three normalized ones.
// Unknown labels are returned upper-cased and unchanged.
func NormalizeLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "positive" || l == "pos" || l == "label_2" || strings.Contains(l, "positive"):
		return LabelPositive
	case l == "negative" || l == "neg" || l == "label_0" || strings.Contains(l, "negative"):
		return LabelNegative
	case l == "neutral" || l == "neu" || l == "label_1":
		return LabelNeutral
	default:
		return strings.ToUpper(l)
	}
}
