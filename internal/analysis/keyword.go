package analysis

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/ppiankov/commentpulse/internal/model"
)

// Keyword scoring weights.
const (
	sentimentPerKeyword = 0.3
	maxKeywordSentiment = 0.8
	toxicityPerKeyword  = 0.4
	maxKeywordToxicity  = 0.9
	defaultConfidence   = 0.5
)

// KeywordClass says how a lexicon hit moves the score.
type KeywordClass int

const (
	KeywordPositive KeywordClass = iota
	KeywordNegative
	KeywordToxic
)

// Keyword is one lexicon entry. Category is only meaningful for toxic entries
// and names the toxicity category the word raises.
type Keyword struct {
	Word     string
	Class    KeywordClass
	Category string
}

func positive(words ...string) []Keyword { return entries(KeywordPositive, "", words) }
func negative(words ...string) []Keyword { return entries(KeywordNegative, "", words) }
func toxic(category string, words ...string) []Keyword {
	return entries(KeywordToxic, category, words)
}

func entries(class KeywordClass, category string, words []string) []Keyword {
	out := make([]Keyword, len(words))
	for i, w := range words {
		out[i] = Keyword{Word: w, Class: class, Category: category}
	}
	return out
}

// DefaultLexicon covers English and Indonesian comment vocabulary.
func DefaultLexicon() []Keyword {
	var lex []Keyword
	lex = append(lex, positive(
		"good", "great", "awesome", "amazing", "love", "best", "fantastic",
		"excellent", "wonderful", "perfect", "bagus", "keren", "mantap",
		"hebat", "luar biasa", "terbaik", "makasih", "terima kasih",
	)...)
	lex = append(lex, negative(
		"bad", "hate", "terrible", "awful", "worst", "horrible", "disgusting",
		"annoying", "boring", "jelek", "buruk", "gak suka", "kecewa", "payah",
		"membosankan",
	)...)
	lex = append(lex, toxic(model.CategoryInsult,
		"bodoh", "goblok", "tolol", "idiot", "stupid", "anjing", "bangsat",
		"kampret", "trash", "sampah",
	)...)
	lex = append(lex, toxic(model.CategoryThreat, "kill", "bunuh")...)
	lex = append(lex, toxic(model.CategoryObscene, "shit", "fuck", "damn")...)
	lex = append(lex, toxic("", "hate")...)
	return lex
}

// KeywordAnalyzer scores texts by counting distinct lexicon hits.
// Matching is substring-based on lower-cased text, so "hate" also matches
// inside "whatever". It is deterministic and safe for concurrent use.
type KeywordAnalyzer struct {
	mu      sync.Mutex // ahocorasick.Matcher.Match mutates internal state
	matcher *ahocorasick.Matcher
	words   []string
	byWord  map[string][]Keyword
}

// NewKeywordAnalyzer builds an analyzer over DefaultLexicon.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return NewKeywordAnalyzerWithLexicon(DefaultLexicon())
}

// NewKeywordAnalyzerWithLexicon builds an analyzer over a custom lexicon.
func NewKeywordAnalyzerWithLexicon(lexicon []Keyword) *KeywordAnalyzer {
	k := &KeywordAnalyzer{byWord: make(map[string][]Keyword)}
	for _, kw := range lexicon {
		word := strings.ToLower(strings.TrimSpace(kw.Word))
		if word == "" {
			continue
		}
		if _, seen := k.byWord[word]; !seen {
			k.words = append(k.words, word)
		}
		kw.Word = word
		k.byWord[word] = append(k.byWord[word], kw)
	}
	if len(k.words) > 0 {
		k.matcher = ahocorasick.NewStringMatcher(k.words)
	}
	return k
}

// Name returns the analyzer name
func (k *KeywordAnalyzer) Name() string {
	return "keyword"
}

// Score implements Scorer.
func (k *KeywordAnalyzer) Score(_ context.Context, texts []string) []model.CommentScore {
	scores := make([]model.CommentScore, len(texts))
	for i, text := range texts {
		scores[i] = k.ScoreText(text)
	}
	return scores
}

// ScoreText scores a single text.
func (k *KeywordAnalyzer) ScoreText(text string) model.CommentScore {
	var pos, neg, tox int
	boosted := make(map[string]bool)

	for _, word := range k.match(strings.ToLower(text)) {
		for _, kw := range k.byWord[word] {
			switch kw.Class {
			case KeywordPositive:
				pos++
			case KeywordNegative:
				neg++
			case KeywordToxic:
				tox++
				if kw.Category != "" {
					boosted[kw.Category] = true
				}
			}
		}
	}

	sentiment := 0.0
	if pos != neg {
		sentiment = clamp(sentimentPerKeyword*float64(pos-neg), -maxKeywordSentiment, maxKeywordSentiment)
	}
	toxicity := math.Min(toxicityPerKeyword*float64(tox), maxKeywordToxicity)

	confidence := math.Abs(sentiment)
	if confidence == 0 {
		confidence = defaultConfidence
	}

	return model.CommentScore{
		Text:       text,
		Sentiment:  sentiment,
		Toxicity:   buildToxicity(toxicity, confidence, boosted),
		Categories: tagsFor(toxicity),
	}
}

// match returns the distinct lexicon words found in text.
func (k *KeywordAnalyzer) match(text string) []string {
	if k.matcher == nil || text == "" {
		return nil
	}

	k.mu.Lock()
	hits := k.matcher.Match([]byte(text))
	k.mu.Unlock()

	words := make([]string, 0, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(k.words) {
			words = append(words, k.words[idx])
		}
	}
	return words
}
