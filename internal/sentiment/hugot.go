package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotConfig locates an ONNX text-classification model.
type HugotConfig struct {
	// ModelPath is a local model directory. When it does not exist and
	// ModelName is set, the model is downloaded into ModelDir.
	ModelPath string
	ModelName string
	ModelDir  string

	// PipelineName identifies the pipeline inside the session.
	PipelineName string
}

// HugotClassifier runs a Hugging Face text-classification model through
// the ONNX runtime.
type HugotClassifier struct {
	mu       sync.Mutex // serializes RunPipeline calls
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

// HugotLoader returns a Loader that prepares the model on first use.
func HugotLoader(cfg HugotConfig) Loader {
	return func(ctx context.Context) (Classifier, error) {
		return NewHugotClassifier(ctx, cfg)
	}
}

// NewHugotClassifier resolves the model, starts an ORT session and builds
// the pipeline. The returned classifier must be closed.
func NewHugotClassifier(ctx context.Context, cfg HugotConfig) (*HugotClassifier, error) {
	modelPath, err := resolveModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("init hugot session: %w", err)
	}

	name := cfg.PipelineName
	if name == "" {
		name = "commentSentimentPipeline"
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      name,
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("init pipeline %s: %w", name, err)
	}

	slog.Info("[HugotClassifier] Model loaded", slog.String("path", modelPath), slog.String("pipeline", name))

	return &HugotClassifier{session: session, pipeline: pipeline}, nil
}

func resolveModel(ctx context.Context, cfg HugotConfig) (string, error) {
	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err == nil {
			return cfg.ModelPath, nil
		}
	}

	if cfg.ModelName == "" {
		return "", fmt.Errorf("model not found at %q and no model name to download", cfg.ModelPath)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := cfg.ModelDir
	if dir == "" {
		dir = "./models"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	slog.Info("[HugotClassifier] Model not found, downloading...", slog.String("model", cfg.ModelName))
	path, err := hugot.DownloadModel(cfg.ModelName, dir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("download model %s: %w", cfg.ModelName, err)
	}
	slog.Info("[HugotClassifier] Model downloaded successfully", slog.String("path", path))

	return path, nil
}

// Classify implements Classifier.
func (h *HugotClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	h.mu.Lock()
	output, err := h.pipeline.RunPipeline([]string{text})
	h.mu.Unlock()
	if err != nil {
		return Prediction{}, fmt.Errorf("run pipeline: %w", err)
	}

	if len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return Prediction{}, errors.New("pipeline returned no classification")
	}

	best := output.ClassificationOutputs[0][0]
	for _, candidate := range output.ClassificationOutputs[0][1:] {
		if candidate.Score > best.Score {
			best = candidate
		}
	}

	return Prediction{Label: NormalizeLabel(best.Label), Score: float64(best.Score)}, nil
}

// Close releases the ONNX session.
func (h *HugotClassifier) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	err := h.session.Destroy()
	h.session = nil
	return err
}
