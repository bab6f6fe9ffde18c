package llm

import "strings"

// CommentSeparator is placed between comments in the prompt.
const CommentSeparator = "\n---COMMENT_SEPARATOR---\n"

const responseSchema = `{
  "comments": [
    {
      "text": "exact comment text",
      "sentiment": number between -1 and 1,
      "toxicity": {
        "overall": number between 0 and 1,
        "categories": {
          "identity_attack": 0.1,
          "insult": 0.1,
          "obscene": 0.1,
          "severe_toxicity": 0.1,
          "sexual_explicit": 0.1,
          "threat": 0.1,
          "toxicity": 0.1
        },
        "confidence": 0.8
      },
      "categories": ["general"]
    }
  ],
  "topics": [{ "name": "general discussion", "count": 1, "sentiment": 0 }],
  "keywords": [{ "word": "comment", "count": 1, "sentiment": 0 }]
}`

// BuildPrompt constructs the analysis prompt for a batch of sanitized comments.
// Comments must be answered in input order, one entry per comment.
func BuildPrompt(texts []string, analysisPrompt string) string {
	var b strings.Builder

	b.WriteString("Analyze these YouTube comments for sentiment and toxicity. Return valid JSON only.\n")
	b.WriteString("Return exactly one entry in \"comments\" per input comment, in the same order.\n\n")
	b.WriteString(responseSchema)
	b.WriteString("\n\n")

	if analysisPrompt = strings.TrimSpace(analysisPrompt); analysisPrompt != "" {
		b.WriteString("Additional context: ")
		b.WriteString(analysisPrompt)
		b.WriteString("\n\n")
	}

	b.WriteString("Comments:\n")
	b.WriteString(strings.Join(texts, CommentSeparator))
	b.WriteString("\n")

	return b.String()
}
