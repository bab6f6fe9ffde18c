package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/commentpulse/internal/analysis"
	"github.com/ppiankov/commentpulse/internal/cache"
	"github.com/ppiankov/commentpulse/internal/llm"
	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/sentiment"
	"github.com/ppiankov/commentpulse/internal/telemetry"
	"github.com/ppiankov/commentpulse/internal/worker"
)

// FromConfig builds a pipeline from configuration. A generative backend
// that cannot be created is logged and skipped; a bad local analyzer name or
// an unreachable cache backend is an error.
func FromConfig(ctx context.Context, cfg *model.Config, metrics *telemetry.Metrics, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	local, err := NewLocalScorer(cfg.Local, cfg.Concurrency.Workers, logger)
	if err != nil {
		return nil, err
	}

	var generative *analysis.GenerativeClient
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.Generative))
	switch {
	case err != nil:
		logger.Warn("[Pipeline] Failed to initialize generative backend",
			slog.String("provider", cfg.Generative.Provider),
			slog.Any("error", err))
	case provider != nil:
		retries := cfg.Analysis.MaxRetries
		if retries <= 0 {
			retries = analysis.DefaultMaxRetries
		}
		generative = analysis.NewGenerativeClient(provider, local,
			analysis.WithMaxRetries(retries),
			analysis.WithBackoffPolicy(BackoffPolicy(cfg.Analysis)),
			analysis.WithAttemptTimeout(cfg.Generative.Timeout),
			analysis.WithLimiter(NewLimiter(cfg.RateLimiting)),
			analysis.WithMetrics(metrics),
			analysis.WithLogger(logger),
		)
	}

	store, err := cache.FromConfig(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	return New(Options{
		Generative:    generative,
		Local:         local,
		Store:         store,
		Metrics:       metrics,
		Logger:        logger,
		DefaultMethod: cfg.Analysis.DefaultMethod,
	}), nil
}

// NewLocalScorer returns the local analyzer named by cfg.Analyzer:
// keyword, vader or hugot.
func NewLocalScorer(cfg model.LocalConfig, workers int, logger *slog.Logger) (analysis.Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Analyzer)) {
	case "", "keyword":
		return analysis.NewKeywordAnalyzer(), nil

	case "vader":
		return analysis.NewModelAnalyzer(sentiment.VaderLoader(),
			analysis.WithWorkers(workers),
			analysis.WithModelLogger(logger),
		), nil

	case "hugot", "model":
		opts := []analysis.ModelOption{
			analysis.WithWorkers(workers),
			analysis.WithModelLogger(logger),
		}
		if cfg.ToxicityModelPath != "" {
			opts = append(opts, analysis.WithToxicityLoader(sentiment.HugotLoader(sentiment.HugotConfig{
				ModelPath:    cfg.ToxicityModelPath,
				ModelDir:     cfg.ModelDir,
				PipelineName: "commentToxicityPipeline",
			})))
		}
		return analysis.NewModelAnalyzer(sentiment.HugotLoader(sentiment.HugotConfig{
			ModelPath: cfg.ModelPath,
			ModelName: cfg.ModelName,
			ModelDir:  cfg.ModelDir,
		}), opts...), nil

	default:
		return nil, fmt.Errorf("unknown local analyzer %q (supported: keyword, vader, hugot)", cfg.Analyzer)
	}
}

// BackoffPolicy converts the analysis config into a retry policy. Zero
// fields keep their defaults.
func BackoffPolicy(cfg model.AnalysisConfig) analysis.BackoffPolicy {
	p := analysis.DefaultBackoffPolicy()
	if cfg.OverloadUnit > 0 {
		p.OverloadUnit = cfg.OverloadUnit
	}
	if cfg.OverloadJitter > 0 {
		p.OverloadJitter = cfg.OverloadJitter
	}
	if cfg.StandardUnit > 0 {
		p.StandardUnit = cfg.StandardUnit
	}
	if cfg.StandardJitter > 0 {
		p.StandardJitter = cfg.StandardJitter
	}
	if cfg.MaxBackoff > 0 {
		p.MaxDelay = cfg.MaxBackoff
	}
	return p
}

// NewLimiter builds the outbound limiter with per-provider overrides applied.
func NewLimiter(cfg model.RateLimitingConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for name, override := range cfg.Providers {
		limiter.SetRate(name, override.RequestsPerSecond, override.BurstSize)
	}
	return limiter
}
