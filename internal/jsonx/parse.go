package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// maxErrorInput bounds how much of the offending text a ParseError keeps.
const maxErrorInput = 200

var (
	fencePattern         = regexp.MustCompile("(?i)```(?:json)?")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseError is returned when no parse strategy accepted the input.
type ParseError struct {
	// Input is the original text, truncated for logging.
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse json: %v (input: %q)", e.Err, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseSafe decodes s into v. Strategies, in order:
//  1. strict JSON
//  2. strict JSON after cleanup (code fences, trailing commas, control characters)
//  3. the cleaned text with comments removed and single quotes rewritten,
//     strict if possible and JSON5 otherwise (unquoted keys)
//
// v is written at most once, by the strategy that succeeded.
func ParseSafe(s string, v any) error {
	raw, err := Normalize(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ParseError{Input: truncate(s), Err: err}
	}
	return nil
}

// Normalize returns s as strict JSON bytes using the same strategies as ParseSafe.
func Normalize(s string) ([]byte, error) {
	if b := []byte(s); json.Valid(b) {
		return b, nil
	}

	cleaned := []byte(Cleanup(s))
	if json.Valid(cleaned) {
		return cleaned, nil
	}

	relaxed := []byte(trailingCommaPattern.ReplaceAllString(relax(string(cleaned)), "$1"))
	if json.Valid(relaxed) {
		return relaxed, nil
	}

	var generic any
	err := json5.Unmarshal(relaxed, &generic)
	if err == nil {
		var out []byte
		if out, err = json.Marshal(generic); err == nil {
			return out, nil
		}
	}

	return nil, &ParseError{Input: truncate(s), Err: err}
}

// Cleanup removes the usual decorations models wrap around JSON.
func Cleanup(s string) string {
	s = fencePattern.ReplaceAllString(s, "")
	// JSON whitespace survives so that line comments stay terminated.
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

func truncate(s string) string {
	if len(s) <= maxErrorInput {
		return s
	}
	return s[:maxErrorInput]
}
