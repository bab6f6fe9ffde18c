package model

import "time"

// RawComment is a single YouTube comment as received from the caller.
type RawComment struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	LikeCount   int       `json:"likeCount"`
	ReplyCount  int       `json:"replyCount"`
}

// CommentsFromTexts wraps bare strings for callers that only have text.
func CommentsFromTexts(texts []string) []RawComment {
	comments := make([]RawComment, len(texts))
	for i, t := range texts {
		comments[i] = RawComment{Text: t}
	}
	return comments
}

// Texts returns the text of every comment, in order.
func Texts(comments []RawComment) []string {
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	return texts
}

// Toxicity category keys. Every ToxicityScore carries all of them.
const (
	CategoryIdentityAttack = "identity_attack"
	CategoryInsult         = "insult"
	CategoryObscene        = "obscene"
	CategorySevereToxicity = "severe_toxicity"
	CategorySexualExplicit = "sexual_explicit"
	CategoryThreat         = "threat"
	CategoryToxicity       = "toxicity"
)

// DefaultCategoryScore is used for any category an analyzer did not report.
const DefaultCategoryScore = 0.1

// CategoryKeys lists the seven toxicity categories in a stable order.
var CategoryKeys = []string{
	CategoryIdentityAttack,
	CategoryInsult,
	CategoryObscene,
	CategorySevereToxicity,
	CategorySexualExplicit,
	CategoryThreat,
	CategoryToxicity,
}

// ToxicityCategories maps each category key to a score in [0, 1].
type ToxicityCategories map[string]float64

// DefaultCategories returns a map with every key set to DefaultCategoryScore.
func DefaultCategories() ToxicityCategories {
	c := make(ToxicityCategories, len(CategoryKeys))
	for _, k := range CategoryKeys {
		c[k] = DefaultCategoryScore
	}
	return c
}

// ToxicityScore is the per-comment toxicity breakdown.
type ToxicityScore struct {
	Overall    float64            `json:"overall"`
	Categories ToxicityCategories `json:"categories"`
	Confidence float64            `json:"confidence"`
}

// Comment tags.
const (
	TagGeneral          = "general"
	TagPotentiallyToxic = "potentially_toxic"
)

// CommentScore is what an analyzer produces for one text.
type CommentScore struct {
	Text       string        `json:"text"`
	Sentiment  float64       `json:"sentiment"`
	Toxicity   ToxicityScore `json:"toxicity"`
	Categories []string      `json:"categories"`
}

// AnalyzedComment is a RawComment annotated with its scores.
type AnalyzedComment struct {
	RawComment
	Sentiment  float64       `json:"sentiment"`
	Toxicity   ToxicityScore `json:"toxicity"`
	Categories []string      `json:"categories"`
}
