// Package pipeline wires sanitizing, analysis, caching and metrics into a
// single entry point shared by the CLI and the HTTP server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/commentpulse/internal/analysis"
	"github.com/ppiankov/commentpulse/internal/cache"
	"github.com/ppiankov/commentpulse/internal/comments"
	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/sanitize"
	"github.com/ppiankov/commentpulse/internal/telemetry"
	"github.com/ppiankov/commentpulse/internal/worker"
)

// ErrUnknownMethod is returned for an analysis method other than
// generative or local.
var ErrUnknownMethod = errors.New("unknown analysis method")

// Request describes one analysis.
type Request struct {
	// VideoID keys the result cache. Empty disables caching.
	VideoID  string
	Comments []model.RawComment
	// Prompt adds free-form instructions for the generative backend.
	Prompt string
	// Method is generative or local; empty means the pipeline default.
	Method model.Method
	// Refresh skips the cache lookup. The fresh result is still stored.
	Refresh bool
}

// Options configures a Pipeline. Only Local is required.
type Options struct {
	// Generative is nil when no backend is configured; generative requests
	// are then answered by Local and reported as a fallback.
	Generative    *analysis.GenerativeClient
	Local         analysis.Scorer
	Store         *cache.ResultStore
	Metrics       *telemetry.Metrics
	Logger        *slog.Logger
	DefaultMethod model.Method
}

// Pipeline orchestrates a complete comment analysis
type Pipeline struct {
	generative    *analysis.GenerativeClient
	local         analysis.Scorer
	store         *cache.ResultStore
	metrics       *telemetry.Metrics
	logger        *slog.Logger
	defaultMethod model.Method
	now           func() time.Time
}

// New creates a pipeline. A nil Local scorer means the keyword analyzer.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		generative:    opts.Generative,
		local:         opts.Local,
		store:         opts.Store,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		defaultMethod: opts.DefaultMethod,
		now:           time.Now,
	}
	if p.local == nil {
		p.local = analysis.NewKeywordAnalyzer()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.defaultMethod == "" {
		p.defaultMethod = model.MethodGenerative
	}
	return p
}

// AnalyzeComments sanitizes the comments, scores them on the requested path
// and stores the result. Only an empty batch or an unknown method fail;
// backend trouble ends in a local fallback result.
func (p *Pipeline) AnalyzeComments(ctx context.Context, req Request) (*model.Analysis, error) {
	if len(req.Comments) == 0 {
		return nil, analysis.ErrEmptyBatch
	}

	method := req.Method
	if method == "" {
		method = p.defaultMethod
	}
	if method != model.MethodGenerative && method != model.MethodLocal {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	if !req.Refresh {
		if cached, ok := p.lookup(req.VideoID); ok {
			p.logger.Debug("[Pipeline] Cache hit", slog.String("video_id", req.VideoID))
			return cached, nil
		}
	}

	start := p.now()
	texts := sanitize.Texts(model.Texts(req.Comments))

	outcome, err := p.run(ctx, method, texts, req.Prompt)
	if err != nil {
		return nil, err
	}

	result := outcome.Result
	result.AttachComments(req.Comments)

	elapsed := p.now().Sub(start)
	a := &model.Analysis{
		VideoID: req.VideoID,
		Result:  *result,
		Metadata: model.Metadata{
			AnalyzerPath:     outcome.Path,
			Analyzer:         outcome.Analyzer,
			Model:            outcome.Model,
			Attempts:         outcome.Attempts,
			CommentCount:     len(req.Comments),
			ProcessingTimeMs: elapsed.Milliseconds(),
			AnalyzedAt:       start.UTC(),
		},
	}

	p.metrics.RecordAnalysis(string(outcome.Path), len(req.Comments), elapsed)
	if err := p.store.Save(a); err != nil {
		p.logger.Warn("[Pipeline] Failed to cache result",
			slog.String("video_id", req.VideoID),
			slog.Any("error", err))
	}

	p.logger.Info("[Pipeline] Analysis complete",
		slog.String("video_id", req.VideoID),
		slog.String("path", string(outcome.Path)),
		slog.String("analyzer", outcome.Analyzer),
		slog.Int("comments", len(req.Comments)),
		slog.Duration("elapsed", elapsed))

	return a, nil
}

func (p *Pipeline) run(ctx context.Context, method model.Method, texts []string, prompt string) (*analysis.Outcome, error) {
	if method == model.MethodLocal {
		return &analysis.Outcome{
			Result:   analysis.Analyze(ctx, p.local, texts),
			Path:     model.PathLocalSelected,
			Analyzer: p.local.Name(),
		}, nil
	}

	if p.generative == nil {
		p.logger.Warn("[Pipeline] No generative backend configured, using local analyzer",
			slog.String("analyzer", p.local.Name()))
		return &analysis.Outcome{
			Result:   analysis.Analyze(ctx, p.local, texts),
			Path:     model.PathLocalFallback,
			Analyzer: p.local.Name(),
		}, nil
	}

	return p.generative.Analyze(ctx, texts, prompt)
}

// Lookup returns the cached analysis for a video.
func (p *Pipeline) Lookup(videoID string) (*model.Analysis, bool) {
	return p.lookup(videoID)
}

func (p *Pipeline) lookup(videoID string) (*model.Analysis, bool) {
	if p.store == nil || videoID == "" {
		return nil, false
	}

	a, ok := p.store.Load(videoID)
	p.metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	a.Metadata.Cached = true
	return a, true
}

// Forget drops the cached analysis for a video.
func (p *Pipeline) Forget(videoID string) error {
	return p.store.Forget(videoID)
}

// Backend states reported by BackendStatus.
const (
	BackendDisabled    = "disabled"
	BackendAvailable   = "available"
	BackendUnavailable = "unavailable"
)

// BackendStatus describes the generative backend.
type BackendStatus struct {
	Provider string `json:"provider,omitempty"`
	Status   string `json:"status"`
	Fallback string `json:"fallback"`
}

// BackendStatus checks whether the generative backend is reachable.
func (p *Pipeline) BackendStatus(ctx context.Context) BackendStatus {
	status := BackendStatus{Status: BackendDisabled, Fallback: p.local.Name()}
	if p.generative == nil {
		return status
	}

	status.Provider = p.generative.Name()
	status.Status = BackendUnavailable
	if p.generative.Available(ctx) {
		status.Status = BackendAvailable
	}
	return status
}

// AnalyzeFile reads a comment file and analyzes it with the default method.
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*model.Analysis, error) {
	return p.Files(Request{}).AnalyzeFile(ctx, path)
}

// Files returns a worker.FileAnalyzer that applies tmpl's method, prompt and
// refresh flag to every file it reads.
func (p *Pipeline) Files(tmpl Request) worker.FileAnalyzer {
	return &fileAnalyzer{pipeline: p, tmpl: tmpl}
}

type fileAnalyzer struct {
	pipeline *Pipeline
	tmpl     Request
}

func (f *fileAnalyzer) AnalyzeFile(ctx context.Context, path string) (*model.Analysis, error) {
	batch, err := comments.ReadFile(path)
	if err != nil {
		return nil, err
	}

	req := f.tmpl
	req.VideoID = batch.VideoID
	req.Comments = batch.Comments
	return f.pipeline.AnalyzeComments(ctx, req)
}

// Close releases the local model and the cache connection.
func (p *Pipeline) Close() error {
	var errs []error
	if c, ok := p.local.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, p.store.Close())
	return errors.Join(errs...)
}
