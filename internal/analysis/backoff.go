package analysis

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ppiankov/commentpulse/internal/jsonx"
	"github.com/ppiankov/commentpulse/internal/llm"
)

// ErrorClass groups attempt failures by how the retry loop treats them.
type ErrorClass int

const (
	// ClassTransient covers transport errors, timeouts and non-2xx answers
	// other than 503/429.
	ClassTransient ErrorClass = iota
	// ClassOverloaded is a 503 or 429 from the backend.
	ClassOverloaded
	// ClassParse means the backend answered but no usable analysis could be
	// read from it.
	ClassParse
)

func (c ErrorClass) String() string {
	switch c {
	case ClassOverloaded:
		return "overloaded"
	case ClassParse:
		return "parse"
	default:
		return "transient"
	}
}

var (
	errNoJSONObject    = errors.New("no JSON object in model output")
	errMissingComments = errors.New("model output has no comments array")
)

// Classify maps an attempt error onto an ErrorClass.
func Classify(err error) ErrorClass {
	var parseErr *jsonx.ParseError
	switch {
	case llm.IsOverloaded(err):
		return ClassOverloaded
	case errors.Is(err, llm.ErrEmptyCompletion),
		errors.Is(err, llm.ErrMalformedResponse),
		errors.Is(err, errNoJSONObject),
		errors.Is(err, errMissingComments),
		errors.As(err, &parseErr):
		return ClassParse
	default:
		return ClassTransient
	}
}

// BackoffPolicy computes the delay before the next attempt.
type BackoffPolicy struct {
	// Overloaded backends wait Base^attempt * OverloadUnit plus up to
	// OverloadJitter.
	Base           float64
	OverloadUnit   time.Duration
	OverloadJitter time.Duration

	// Everything else waits attempt * StandardUnit plus up to StandardJitter.
	StandardUnit   time.Duration
	StandardJitter time.Duration

	// MaxDelay caps any single wait. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultBackoffPolicy waits roughly 6s, 12s, 24s when overloaded and 2s, 4s,
// 6s otherwise.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:           2,
		OverloadUnit:   3 * time.Second,
		OverloadJitter: 2 * time.Second,
		StandardUnit:   2 * time.Second,
		StandardJitter: 1 * time.Second,
		MaxDelay:       60 * time.Second,
	}
}

// Next returns the delay after the given 1-based attempt failed with class.
// jitter is a value in [0, 1). Next has no side effects.
func (p BackoffPolicy) Next(attempt int, class ErrorClass, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	jitter = clamp(finiteOr(jitter, 0), 0, 1)

	var d float64
	if class == ClassOverloaded {
		d = math.Pow(p.Base, float64(attempt))*float64(p.OverloadUnit) + jitter*float64(p.OverloadJitter)
	} else {
		d = float64(attempt)*float64(p.StandardUnit) + jitter*float64(p.StandardJitter)
	}

	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
