package sentiment

import (
	"context"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

// Compound scores at or beyond these bounds are polar.
const (
	vaderPositiveThreshold = 0.20
	vaderNegativeThreshold = -0.20
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	bareURLPattern      = regexp.MustCompile(`https?://\S+|www\.\S+|\[URL\]`)
	htmlTagPattern      = regexp.MustCompile(`<[^>]*>`)
)

// VaderClassifier scores text with the VADER lexicon. It needs no model
// files and is safe for concurrent use.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderClassifier creates a VADER classifier.
func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// VaderLoader returns a Loader for the VADER classifier.
func VaderLoader() Loader {
	return func(context.Context) (Classifier, error) {
		return NewVaderClassifier(), nil
	}
}

// Classify implements Classifier.
func (v *VaderClassifier) Classify(_ context.Context, text string) (Prediction, error) {
	compound := v.analyzer.PolarityScores(PlainText(text)).Compound

	switch {
	case compound >= vaderPositiveThreshold:
		return Prediction{Label: LabelPositive, Score: compound}, nil
	case compound <= vaderNegativeThreshold:
		return Prediction{Label: LabelNegative, Score: math.Abs(compound)}, nil
	default:
		return Prediction{Label: LabelNeutral, Score: 1 - math.Abs(compound)}, nil
	}
}

// PlainText flattens markdown and drops links so only prose is scored.
func PlainText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := htmlTagPattern.ReplaceAllString(string(output), " ")
	plain = html.UnescapeString(plain)
	plain = markdownLinkPattern.ReplaceAllString(plain, "$1")
	plain = bareURLPattern.ReplaceAllString(plain, "")
	return strings.Join(strings.Fields(plain), " ")
}
