// Package comments reads comment batches from files and streams.
package comments

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/commentpulse/internal/model"
)

// ErrNoComments is returned when the input holds no comments.
var ErrNoComments = errors.New("no comments in input")

// Batch is a set of comments, optionally tied to a video.
type Batch struct {
	VideoID  string             `json:"videoId"`
	Comments []model.RawComment `json:"comments"`
}

// Read accepts three layouts:
//   - a JSON object {"videoId": "...", "comments": [...]}
//   - a JSON array of comment objects or of plain strings
//   - plain text, one comment per line; blank lines and lines starting
//     with '#' are skipped
func Read(r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	var batch *Batch
	switch {
	case len(trimmed) == 0:
		return nil, ErrNoComments
	case trimmed[0] == '{':
		batch, err = readObject(trimmed)
	case trimmed[0] == '[':
		batch, err = readArray(trimmed)
	default:
		batch, err = readLines(data)
	}
	if err != nil {
		return nil, err
	}

	if len(batch.Comments) == 0 {
		return nil, ErrNoComments
	}
	return batch, nil
}

// ReadFile reads path with Read. "-" means standard input. When the file
// does not name a video, the file name without extension is used.
func ReadFile(path string) (*Batch, error) {
	if path == "-" {
		return Read(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	batch, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if batch.VideoID == "" {
		base := filepath.Base(path)
		batch.VideoID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return batch, nil
}

func readObject(data []byte) (*Batch, error) {
	var raw struct {
		VideoID  string          `json:"videoId"`
		Comments json.RawMessage `json:"comments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode comment object: %w", err)
	}
	if len(raw.Comments) == 0 {
		return &Batch{VideoID: raw.VideoID}, nil
	}

	batch, err := readArray(raw.Comments)
	if err != nil {
		return nil, err
	}
	batch.VideoID = raw.VideoID
	return batch, nil
}

func readArray(data []byte) (*Batch, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode comment array: %w", err)
	}

	batch := &Batch{Comments: make([]model.RawComment, 0, len(items))}
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var text string
			if err := json.Unmarshal(item, &text); err != nil {
				return nil, fmt.Errorf("decode comment %d: %w", i, err)
			}
			batch.Comments = append(batch.Comments, model.RawComment{Text: text})
			continue
		}

		var c model.RawComment
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("decode comment %d: %w", i, err)
		}
		batch.Comments = append(batch.Comments, c)
	}
	return batch, nil
}

func readLines(data []byte) (*Batch, error) {
	batch := &Batch{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		batch.Comments = append(batch.Comments, model.RawComment{Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return batch, nil
}
