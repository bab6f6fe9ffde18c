package model

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisResult is the canonical output shape, independent of which
// analyzer produced the raw scores.
type AnalysisResult struct {
	Comments         []AnalyzedComment `json:"comments"`
	OverallSentiment OverallSentiment  `json:"overall_sentiment"`
	ToxicitySummary  ToxicitySummary   `json:"toxicity_summary"`
	Topics           []TopicEntry      `json:"topics"`
	Keywords         []KeywordEntry    `json:"keywords"`
}

// OverallSentiment aggregates sentiment across all comments.
type OverallSentiment struct {
	Score        float64               `json:"score"`
	Distribution SentimentDistribution `json:"distribution"`
}

// SentimentDistribution counts comments per sentiment bucket.
type SentimentDistribution struct {
	VeryNegative int `json:"very_negative"`
	Negative     int `json:"negative"`
	Neutral      int `json:"neutral"`
	Positive     int `json:"positive"`
	VeryPositive int `json:"very_positive"`
}

// Total returns the number of comments counted.
func (d SentimentDistribution) Total() int {
	return d.VeryNegative + d.Negative + d.Neutral + d.Positive + d.VeryPositive
}

// ToxicitySummary aggregates toxicity across all comments.
type ToxicitySummary struct {
	AverageScore   float64              `json:"average_score"`
	Distribution   ToxicityDistribution `json:"distribution"`
	CategoryCounts map[string]int       `json:"category_counts"`
}

// ToxicityDistribution counts comments per toxicity bucket.
type ToxicityDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Severe int `json:"severe"`
}

// Total returns the number of comments counted.
func (d ToxicityDistribution) Total() int {
	return d.Low + d.Medium + d.High + d.Severe
}

// TopicEntry is a detected discussion topic.
type TopicEntry struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	Sentiment float64 `json:"sentiment"`
}

// KeywordEntry is a frequent word across the batch.
type KeywordEntry struct {
	Word      string  `json:"word"`
	Count     int     `json:"count"`
	Sentiment float64 `json:"sentiment"`
}

// AttachComments copies the caller's comment metadata onto the analyzed
// comments. The analyzed text and scores are kept. The slices must be the
// same length.
func (r *AnalysisResult) AttachComments(raw []RawComment) {
	if len(raw) != len(r.Comments) {
		return
	}
	for i := range r.Comments {
		text := r.Comments[i].Text
		r.Comments[i].RawComment = raw[i]
		r.Comments[i].Text = text
	}
}

// Method selects the analysis path requested by the caller.
type Method string

const (
	MethodGenerative Method = "generative"
	MethodLocal      Method = "local"
)

// ParseMethod accepts the method names used on the CLI and HTTP API.
// An empty string yields the empty Method so callers can apply a default.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "generative", "gemini", "llm":
		return MethodGenerative, nil
	case "local", "indobert", "keyword":
		return MethodLocal, nil
	default:
		return "", fmt.Errorf("unknown analysis method %q (supported: generative, local)", s)
	}
}

// AnalyzerPath records which path actually produced a result.
type AnalyzerPath string

const (
	PathGenerative    AnalyzerPath = "generative"
	PathLocalFallback AnalyzerPath = "local-fallback"
	PathLocalSelected AnalyzerPath = "local-selected"
)

// Analysis is the envelope returned to callers and stored in the result cache.
type Analysis struct {
	VideoID  string         `json:"video_id,omitempty"`
	Result   AnalysisResult `json:"result"`
	Metadata Metadata       `json:"metadata"`
}

// Metadata describes how an Analysis was produced.
type Metadata struct {
	AnalyzerPath     AnalyzerPath `json:"analyzer_path"`
	Analyzer         string       `json:"analyzer"`        // backend or local analyzer name
	Model            string       `json:"model,omitempty"` // generative model, if any
	Attempts         int          `json:"attempts"`        // generative attempts made
	CommentCount     int          `json:"comment_count"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	AnalyzedAt       time.Time    `json:"analyzed_at"`
	Cached           bool         `json:"cached"`
}
