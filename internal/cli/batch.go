package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentpulse/internal/pipeline"
	"github.com/ppiankov/commentpulse/internal/worker"
)

var (
	batchFlags   analysisFlags
	concurrency  int
	outputDir    string
	fromList     string
	batchPrompt  string
	batchRefresh bool
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file...]",
	Short: "Analyze several comment files in parallel",
	Long: `Batch analyzes many comment files concurrently:
- Read file paths from arguments and/or a list file (one per line)
- Analyze files in parallel with a configurable worker count
- Generative calls share one rate limiter across workers
- Write one JSON report per file into the output directory

Example:
  commentpulse batch exports/*.json
  commentpulse batch --from files.txt --concurrency 4 --output-dir ./reports
  commentpulse batch a.json b.txt --method local`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFlags.register(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of files analyzed at once (default: concurrency.batch_workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./commentpulse-reports", "output directory for reports")
	batchCmd.Flags().StringVar(&fromList, "from", "", "file listing comment files, one per line")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Request flags
	batchCmd.Flags().StringVar(&batchPrompt, "prompt", "", "extra instructions for the generative backend")
	batchCmd.Flags().BoolVar(&batchRefresh, "refresh", false, "ignore cached results and analyze again")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && fromList == "" {
		return fmt.Errorf("no input files: pass file paths or --from <list>")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := batchFlags.apply(cmd, cfg); err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.BatchWorkers
	}

	paths := append([]string(nil), args...)
	if fromList != "" {
		listed, err := worker.ReadPathsFromFile(fromList)
		if err != nil {
			return err
		}
		paths = append(paths, listed...)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  CommentPulse Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:        %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Method:       %s\n", cfg.Analysis.DefaultMethod)
	fmt.Fprintf(os.Stderr, "  Backend:      %s/%s\n", cfg.Generative.Provider, cfg.Generative.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger := slog.Default()
	p, err := pipeline.FromConfig(ctx, cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("[CLI] Close failed", slog.Any("error", cerr))
		}
	}()

	processor := worker.NewBatchProcessor(p.Files(pipeline.Request{
		Prompt:  batchPrompt,
		Refresh: batchRefresh,
	}), workers)
	results := processor.ProcessFiles(ctx, paths)

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		jsonPath := filepath.Join(outputDir, reportName(result.Analysis.VideoID, result.Path)+".json")
		if err := renderer.RenderJSON(result.Analysis, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}

		successCount++
		meta := result.Analysis.Metadata
		fmt.Fprintf(os.Stderr, "✓ %s (%d comments, %s, sentiment %+.2f, toxicity %.2f)\n",
			result.Path, meta.CommentCount, meta.AnalyzerPath,
			result.Analysis.Result.OverallSentiment.Score,
			result.Analysis.Result.ToxicitySummary.AverageScore)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d files failed", failureCount)
	}
	return nil
}

// reportName picks a file-system safe report name from the video id, or
// from the input file name when the batch had none.
func reportName(videoID, path string) string {
	name := videoID
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" || name == "." || name == ".." {
		name = "comments"
	}
	return name
}
