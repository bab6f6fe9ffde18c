package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentpulse/internal/comments"
	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/pipeline"
)

// analysisFlags are the overrides shared by analyze, batch and serve.
type analysisFlags struct {
	provider string
	model    string
	method   string
	analyzer string
	noCache  bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "generative backend (gemini, openai, anthropic, ollama, none)")
	cmd.Flags().StringVar(&f.model, "model", "", "generative model name")
	cmd.Flags().StringVar(&f.method, "method", "", "analysis method (generative, local)")
	cmd.Flags().StringVar(&f.analyzer, "analyzer", "", "local analyzer (keyword, vader, hugot)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
}

// apply copies explicitly set flags onto cfg.
func (f *analysisFlags) apply(cmd *cobra.Command, cfg *model.Config) error {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Generative.Provider = f.provider
		cfg.Generative.APIKey = ""
		applyProviderEnv(cfg)
	}
	if flags.Changed("model") {
		cfg.Generative.Model = f.model
	}
	if flags.Changed("method") {
		m, err := model.ParseMethod(f.method)
		if err != nil {
			return err
		}
		cfg.Analysis.DefaultMethod = m
	}
	if flags.Changed("analyzer") {
		cfg.Local.Analyzer = f.analyzer
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	return nil
}

var (
	analyzeFlags   analysisFlags
	outJSON        string
	analysisPrompt string
	videoID        string
	refresh        bool
	timeout        time.Duration
	quiet          bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyze one batch of comments",
	Long: `Analyze scores every comment in a file for sentiment and toxicity.

The input may be:
- a JSON object {"videoId": "...", "comments": [...]}
- a JSON array of comment objects or plain strings
- plain text with one comment per line ('#' lines and blank lines skipped)

Use '-' to read from standard input. The video id defaults to the file name
without its extension and keys the result cache.

Example:
  commentpulse analyze comments.json
  commentpulse analyze dQw4w9WgXcQ.txt --json report.json
  cat comments.txt | commentpulse analyze - --method local --json -
  commentpulse analyze comments.json --provider openai --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeFlags.register(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write the full analysis as JSON to this path ('-' for stdout)")
	analyzeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the summary")

	// Request flags
	analyzeCmd.Flags().StringVar(&analysisPrompt, "prompt", "", "extra instructions for the generative backend")
	analyzeCmd.Flags().StringVar(&videoID, "video-id", "", "video id for caching (default: file name)")
	analyzeCmd.Flags().BoolVar(&refresh, "refresh", false, "ignore a cached result and analyze again")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := analyzeFlags.apply(cmd, cfg); err != nil {
		return err
	}

	batch, err := comments.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read comments: %w", err)
	}
	if videoID != "" {
		batch.VideoID = videoID
	}

	logger := slog.Default()
	logger.Debug("[CLI] Analyzing",
		slog.String("input", args[0]),
		slog.String("video_id", batch.VideoID),
		slog.Int("comments", len(batch.Comments)),
		slog.String("provider", cfg.Generative.Provider),
		slog.String("method", string(cfg.Analysis.DefaultMethod)))

	p, err := pipeline.FromConfig(ctx, cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("[CLI] Close failed", slog.Any("error", cerr))
		}
	}()

	a, err := p.AnalyzeComments(ctx, pipeline.Request{
		VideoID:  batch.VideoID,
		Comments: batch.Comments,
		Prompt:   analysisPrompt,
		Refresh:  refresh,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	if outJSON != "" {
		if err := renderer.RenderJSON(a, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if outJSON != "-" && verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}

	if !quiet && outJSON != "-" {
		renderer.RenderSummary(a)
	}
	return nil
}
