package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"positive":      LabelPositive,
		"POS":           LabelPositive,
		"LABEL_2":       LabelPositive,
		"very positive": LabelPositive,
		"Negative":      LabelNegative,
		"label_0":       LabelNegative,
		"neutral":       LabelNeutral,
		"LABEL_1":       LabelNeutral,
		" toxic ":       "TOXIC",
		"":              "",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeLabel(in), "label %q", in)
	}
}

func TestVaderClassifier(t *testing.T) {
	loader := VaderLoader()
	clf, err := loader(context.Background())
	require.NoError(t, err)

	pos, err := clf.Classify(context.Background(), "This video is great, I love it!")
	require.NoError(t, err)
	assert.Equal(t, LabelPositive, pos.Label)
	assert.Greater(t, pos.Score, 0.2)

	neg, err := clf.Classify(context.Background(), "This is terrible and awful, I hate it.")
	require.NoError(t, err)
	assert.Equal(t, LabelNegative, neg.Label)
	assert.Greater(t, neg.Score, 0.2)

	neu, err := clf.Classify(context.Background(), "The video was uploaded on Tuesday.")
	require.NoError(t, err)
	assert.Equal(t, LabelNeutral, neu.Label)
	assert.InDelta(t, 1.0, neu.Score, 0.3)
}

func TestPlainText(t *testing.T) {
	in := "**Great** video, see [the channel](https://youtube.com/c/x) and https://example.com &amp; more"
	out := PlainText(in)

	assert.Equal(t, "Great video, see the channel and & more", out)
}
