// Package jsonx pulls JSON objects out of free-form model output and
// decodes them with progressively more lenient strategies.
package jsonx

import "strings"

// ExtractObject returns the first balanced top-level {...} span in s.
// Braces inside JSON string literals are ignored. It reports false when s
// contains no '{' or when the depth never returns to zero.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
