package analysis

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/commentpulse/internal/model"
)

// Bucket lower bounds. Each bound belongs to the bucket above it.
const (
	negativeFloor     = -0.6
	neutralFloor      = -0.2
	positiveFloor     = 0.2
	veryPositiveFloor = 0.6

	mediumToxicityFloor = 0.2
	highToxicityFloor   = 0.5
	severeToxicityFloor = 0.8
)

// Category count thresholds. A comment counts when its sub-score is strictly
// above the threshold.
const defaultCategoryThreshold = 0.3

var categoryThresholds = map[string]float64{
	model.CategoryThreat:         0.5,
	model.CategorySevereToxicity: 0.7,
}

// countedCategories excludes toxicity, which is the overall score itself.
var countedCategories = []string{
	model.CategoryIdentityAttack,
	model.CategoryInsult,
	model.CategoryObscene,
	model.CategorySevereToxicity,
	model.CategorySexualExplicit,
	model.CategoryThreat,
}

const (
	generalTopic     = "general discussion"
	maxKeywords      = 5
	minKeywordLength = 4
)

type topicRule struct {
	name  string
	terms []string
}

var topicLexicon = []topicRule{
	{"music", []string{"musik", "lagu", "song", "music", "beat"}},
	{"gaming", []string{"game", "gaming", "gamer", "mabar"}},
	{"humor", []string{"lucu", "ngakak", "funny", "lol", "wkwk", "haha"}},
	{"request", []string{"please", "tolong", "request", "next video", "bikin", "part 2"}},
	{"appreciation", []string{"thank", "makasih", "terima kasih"}},
}

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"just": true, "what": true, "when": true, "your": true, "they": true,
	"them": true, "were": true, "been": true, "will": true, "would": true,
	"there": true, "their": true, "about": true, "really": true, "very": true,
	"yang": true, "untuk": true, "dengan": true, "tidak": true, "sudah": true,
	"juga": true, "bisa": true, "saja": true, "kalau": true, "karena": true,
	"banget": true, "sama": true, "lagi": true, "udah": true,
}

// Normalize folds per-text scores into the canonical result. scores is
// aligned to texts by index: missing entries get neutral defaults and extra
// entries are dropped. Every distribution sums to len(texts).
func Normalize(texts []string, scores []model.CommentScore) *model.AnalysisResult {
	result := &model.AnalysisResult{
		Comments: make([]model.AnalyzedComment, len(texts)),
		ToxicitySummary: model.ToxicitySummary{
			CategoryCounts: make(map[string]int, len(countedCategories)),
		},
		Topics:   []model.TopicEntry{},
		Keywords: []model.KeywordEntry{},
	}
	for _, key := range countedCategories {
		result.ToxicitySummary.CategoryCounts[key] = 0
	}

	if len(texts) == 0 {
		return result
	}

	var sentimentSum, toxicitySum float64
	for i, text := range texts {
		score := neutralScore(text)
		if i < len(scores) {
			score = sanitizeScore(text, scores[i])
		}

		result.Comments[i] = model.AnalyzedComment{
			RawComment: model.RawComment{Text: text},
			Sentiment:  score.Sentiment,
			Toxicity:   score.Toxicity,
			Categories: score.Categories,
		}

		sentimentSum += score.Sentiment
		toxicitySum += score.Toxicity.Overall
		bucketSentiment(&result.OverallSentiment.Distribution, score.Sentiment)
		bucketToxicity(&result.ToxicitySummary.Distribution, score.Toxicity.Overall)

		for _, key := range countedCategories {
			if score.Toxicity.Categories[key] > thresholdFor(key) {
				result.ToxicitySummary.CategoryCounts[key]++
			}
		}
	}

	n := float64(len(texts))
	result.OverallSentiment.Score = sentimentSum / n
	result.ToxicitySummary.AverageScore = toxicitySum / n
	result.Topics = extractTopics(result.Comments)
	result.Keywords = extractKeywords(result.Comments)

	return result
}

func thresholdFor(category string) float64 {
	if t, ok := categoryThresholds[category]; ok {
		return t
	}
	return defaultCategoryThreshold
}

func bucketSentiment(d *model.SentimentDistribution, s float64) {
	switch {
	case s < negativeFloor:
		d.VeryNegative++
	case s < neutralFloor:
		d.Negative++
	case s < positiveFloor:
		d.Neutral++
	case s < veryPositiveFloor:
		d.Positive++
	default:
		d.VeryPositive++
	}
}

func bucketToxicity(d *model.ToxicityDistribution, t float64) {
	switch {
	case t < mediumToxicityFloor:
		d.Low++
	case t < highToxicityFloor:
		d.Medium++
	case t < severeToxicityFloor:
		d.High++
	default:
		d.Severe++
	}
}

// neutralScore is used for texts an analyzer returned nothing for.
func neutralScore(text string) model.CommentScore {
	return model.CommentScore{
		Text: text,
		Toxicity: model.ToxicityScore{
			Overall:    0,
			Categories: model.DefaultCategories(),
			Confidence: defaultConfidence,
		},
		Categories: []string{model.TagGeneral},
	}
}

// sanitizeScore clamps every value into range and fills missing categories.
func sanitizeScore(text string, s model.CommentScore) model.CommentScore {
	out := model.CommentScore{
		Text:      text,
		Sentiment: clamp(finiteOr(s.Sentiment, 0), -1, 1),
		Toxicity: model.ToxicityScore{
			Overall:    clamp(finiteOr(s.Toxicity.Overall, 0), 0, 1),
			Categories: make(model.ToxicityCategories, len(model.CategoryKeys)),
			Confidence: clamp(finiteOr(s.Toxicity.Confidence, defaultConfidence), 0, 1),
		},
		Categories: s.Categories,
	}
	for _, key := range model.CategoryKeys {
		v, ok := s.Toxicity.Categories[key]
		if !ok {
			v = model.DefaultCategoryScore
		}
		out.Toxicity.Categories[key] = clamp(finiteOr(v, model.DefaultCategoryScore), 0, 1)
	}
	if len(out.Categories) == 0 {
		out.Categories = tagsFor(out.Toxicity.Overall)
	}
	return out
}

func extractTopics(comments []model.AnalyzedComment) []model.TopicEntry {
	topics := []model.TopicEntry{{
		Name:      generalTopic,
		Count:     len(comments),
		Sentiment: meanSentiment(comments, func(string) bool { return true }),
	}}

	for _, rule := range topicLexicon {
		match := func(lower string) bool {
			for _, term := range rule.terms {
				if strings.Contains(lower, term) {
					return true
				}
			}
			return false
		}

		count := 0
		for _, c := range comments {
			if match(strings.ToLower(c.Text)) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		topics = append(topics, model.TopicEntry{
			Name:      rule.name,
			Count:     count,
			Sentiment: meanSentiment(comments, match),
		})
	}
	return topics
}

func extractKeywords(comments []model.AnalyzedComment) []model.KeywordEntry {
	counts := make(map[string]int)
	for _, c := range comments {
		for _, w := range tokenize(c.Text) {
			if utf8.RuneCountInString(w) < minKeywordLength || stopWords[w] {
				continue
			}
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}

	keywords := make([]model.KeywordEntry, 0, len(words))
	for _, w := range words {
		word := w
		keywords = append(keywords, model.KeywordEntry{
			Word:  word,
			Count: counts[word],
			Sentiment: meanSentiment(comments, func(lower string) bool {
				for _, t := range tokenize(lower) {
					if t == word {
						return true
					}
				}
				return false
			}),
		})
	}
	return keywords
}

// meanSentiment averages the sentiment of comments whose lower-cased text
// satisfies match. It is 0 when nothing matches.
func meanSentiment(comments []model.AnalyzedComment, match func(lower string) bool) float64 {
	var sum float64
	var n int
	for _, c := range comments {
		if match(strings.ToLower(c.Text)) {
			sum += c.Sentiment
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
