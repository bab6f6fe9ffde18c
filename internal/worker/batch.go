package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/commentpulse/internal/model"
)

// FileAnalyzer analyzes the comments stored in one file
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*model.Analysis, error)
}

// FileJob represents one comment file to analyze
type FileJob struct {
	Index    int
	Path     string
	Analyzer FileAnalyzer
}

// Execute executes the file job
func (j *FileJob) Execute(ctx context.Context) Result {
	analysis, err := j.Analyzer.AnalyzeFile(ctx, j.Path)
	if err != nil {
		return &FileResult{Index: j.Index, Path: j.Path, Error: err}
	}
	return &FileResult{Index: j.Index, Path: j.Path, Analysis: analysis}
}

// FileResult represents the result of a file job
type FileResult struct {
	Index    int
	Path     string
	Analysis *model.Analysis
	Error    error
}

// GetError returns the error from the file result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple comment files concurrently
type BatchProcessor struct {
	analyzer    FileAnalyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer FileAnalyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessFiles analyzes every file and returns results in input order.
// Duplicate paths are analyzed once.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*FileResult {
	paths = dedupe(paths)
	if len(paths) == 0 {
		return []*FileResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		pool.Submit(&FileJob{
			Index:    i,
			Path:     path,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	ordered := make([]*FileResult, len(paths))
	for _, result := range results {
		fr := result.(*FileResult)
		ordered[fr.Index] = fr
	}

	// Jobs dropped by a cancelled context never ran.
	for i, fr := range ordered {
		if fr == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &FileResult{Index: i, Path: paths[i], Error: err}
		}
	}

	return ordered
}

// ProcessList reads file paths from a list file and analyzes them concurrently
func (b *BatchProcessor) ProcessList(ctx context.Context, listPath string) ([]*FileResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ProcessFiles(ctx, paths), nil
}

// ReadPathsFromFile reads file paths from a file (one per line)
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		paths = append(paths, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return dedupe(paths), nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
