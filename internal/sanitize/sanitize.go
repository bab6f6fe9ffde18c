// Package sanitize normalizes comment text before it is sent to an analyzer
// and cleans generative model output before it is parsed.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// URLPlaceholder replaces every http(s) link in sanitized text.
const URLPlaceholder = "[URL]"

var (
	breakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	urlPattern   = regexp.MustCompile(`https?://\S*`)

	// Links inside model output must not run past the end of a string literal.
	outputURLPattern = regexp.MustCompile(`https?://[^\s"'\\<>]*`)
	whitespace       = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")
)

// Text strips control characters, HTML and links from a comment.
// It never fails and Text(Text(s)) == Text(s).
func Text(s string) string {
	s = stripControl(s)
	s = unescapeAmp(s)
	s = breakPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = urlPattern.ReplaceAllString(s, URLPlaceholder)
	return strings.TrimSpace(s)
}

// Texts applies Text to every element and returns a new slice.
func Texts(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Text(t)
	}
	return out
}

// ModelOutput cleans a raw generative response before JSON extraction.
// Line breaks, real or escaped, become spaces so that multi-line answers
// collapse onto one line. Comments must already be stripped.
func ModelOutput(s string) string {
	s = strings.ReplaceAll(s, `\n`, " ")
	s = whitespace.Replace(s)
	s = stripControl(s)
	s = unescapeAmp(s)
	s = breakPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	return outputURLPattern.ReplaceAllString(s, URLPlaceholder)
}

// CommentText is the light cleanup applied to free text inside a parsed
// model response, such as topic names and keywords.
func CommentText(s string) string {
	s = unescapeAmp(s)
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripControl drops C0 and C1 control characters, including tabs and newlines.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// unescapeAmp resolves nested "&amp;amp;" chains down to a single "&".
func unescapeAmp(s string) string {
	for strings.Contains(s, "&amp;") {
		s = strings.ReplaceAll(s, "&amp;", "&")
	}
	return s
}
