package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/commentpulse/internal/model"
)

// Renderer writes analyses as JSON files and human-readable summaries.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer whose summaries and "-" JSON go to out.
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

// RenderJSON writes the analysis as indented JSON to path, or to the
// renderer's output when path is "-".
func (r *Renderer) RenderJSON(a *model.Analysis, path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err := r.out.Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints the headline numbers of an analysis.
func (r *Renderer) RenderSummary(a *model.Analysis) {
	res := a.Result
	meta := a.Metadata
	sd := res.OverallSentiment.Distribution
	td := res.ToxicitySummary.Distribution

	title := a.VideoID
	if title == "" {
		title = "comments"
	}

	fmt.Fprintf(r.out, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))

	analyzer := meta.Analyzer
	if meta.Model != "" {
		analyzer += "/" + meta.Model
	}
	fmt.Fprintf(r.out, "  Path:       %s (%s)\n", meta.AnalyzerPath, analyzer)
	if meta.Attempts > 0 {
		fmt.Fprintf(r.out, "  Attempts:   %d\n", meta.Attempts)
	}
	if meta.Cached {
		fmt.Fprintf(r.out, "  Cached:     yes\n")
	}
	fmt.Fprintf(r.out, "  Comments:   %d (%d ms)\n", meta.CommentCount, meta.ProcessingTimeMs)

	fmt.Fprintf(r.out, "\n  Sentiment:  %+.2f\n", res.OverallSentiment.Score)
	fmt.Fprintf(r.out, "    very negative %d | negative %d | neutral %d | positive %d | very positive %d\n",
		sd.VeryNegative, sd.Negative, sd.Neutral, sd.Positive, sd.VeryPositive)

	fmt.Fprintf(r.out, "\n  Toxicity:   %.2f\n", res.ToxicitySummary.AverageScore)
	fmt.Fprintf(r.out, "    low %d | medium %d | high %d | severe %d\n", td.Low, td.Medium, td.High, td.Severe)

	var flagged []string
	for _, key := range model.CategoryKeys {
		if n := res.ToxicitySummary.CategoryCounts[key]; n > 0 {
			flagged = append(flagged, fmt.Sprintf("%s %d", key, n))
		}
	}
	if len(flagged) > 0 {
		fmt.Fprintf(r.out, "    flagged: %s\n", strings.Join(flagged, ", "))
	}

	if len(res.Topics) > 0 {
		fmt.Fprintf(r.out, "\n  Topics:\n")
		for _, t := range res.Topics {
			fmt.Fprintf(r.out, "    %-20s %4d  %+.2f\n", t.Name, t.Count, t.Sentiment)
		}
	}
	if len(res.Keywords) > 0 {
		fmt.Fprintf(r.out, "\n  Keywords:\n")
		for _, k := range res.Keywords {
			fmt.Fprintf(r.out, "    %-20s %4d  %+.2f\n", k.Word, k.Count, k.Sentiment)
		}
	}
	fmt.Fprintln(r.out)
}
