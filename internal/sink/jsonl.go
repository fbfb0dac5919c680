package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// JSONLines writes one JSON object per record. Records are appended in the
// order files are written; a rewritten file is appended again.
type JSONLines struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLines writes to w. Close does not close w.
func NewJSONLines(w io.Writer) *JSONLines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLines{enc: enc}
}

// OpenJSONLines creates or truncates path and writes to it. An empty path or
// "-" writes to stdout.
func OpenJSONLines(path string) (*JSONLines, error) {
	if path == "" || path == "-" {
		return NewJSONLines(os.Stdout), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	s := NewJSONLines(f)
	s.closer = f
	return s, nil
}

func (s *JSONLines) Write(ctx context.Context, file string, records []doctree.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(r); err != nil {
			return fmt.Errorf("encode record for %s: %w", file, err)
		}
	}
	return nil
}

func (s *JSONLines) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
