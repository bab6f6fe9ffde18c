package jsonx

import (
	"strings"
	"unicode"
)

// StripComments removes // and /* */ comments that sit outside string
// literals. Line breaks survive, so a line comment never swallows the text
// after it. A // directly after ':' is left alone to keep bare URLs intact.
func StripComments(s string) string {
	return scan(s, false)
}

// relax strips comments and rewrites single-quoted strings as
// double-quoted JSON strings.
func relax(s string) string {
	return scan(s, true)
}

// opensString reports whether a quote following prev starts a string
// literal. Apostrophes inside prose never follow a JSON delimiter.
func opensString(prev rune) bool {
	return prev == 0 || strings.ContainsRune("{[,:", prev)
}

func scan(s string, requote bool) string {
	runes := []rune(s)

	var (
		b     strings.Builder
		quote rune // 0 outside a string
		prev  rune // last non-space rune outside strings
	)
	b.Grow(len(s))

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			switch {
			case r == '\\' && i+1 < len(runes):
				next := runes[i+1]
				i++
				if quote == '\'' && requote && next == '\'' {
					b.WriteRune('\'')
					continue
				}
				b.WriteRune(r)
				b.WriteRune(next)
			case r == quote:
				if quote == '\'' && requote {
					r = '"'
				}
				b.WriteRune(r)
				quote, prev = 0, '"'
			case r == '"' && quote == '\'' && requote:
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
			continue
		}

		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case r == '"':
			quote = r
			b.WriteRune(r)
		case r == '\'' && opensString(prev):
			quote = r
			if requote {
				r = '"'
			}
			b.WriteRune(r)
		case r == '/' && next == '/' && (i == 0 || runes[i-1] != ':'):
			for i+1 < len(runes) && runes[i+1] != '\n' {
				i++
			}
		case r == '/' && next == '*':
			j := i + 2
			for j+1 < len(runes) && (runes[j] != '*' || runes[j+1] != '/') {
				j++
			}
			// An unterminated block comment runs to the end of the input.
			i = j + 1
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
			if !unicode.IsSpace(r) {
				prev = r
			}
		}
	}
	return b.String()
}
