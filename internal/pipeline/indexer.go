// Package pipeline walks a document tree and delivers each file's records to
// a sink.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docsplit/internal/sink"
	"github.com/dgallion1/docsplit/internal/walker"
)

// ErrBusy is returned by Run while another run holds the indexer.
var ErrBusy = errors.New("index already running")

// FileError is a file that was skipped, with the reason.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary describes one indexing run.
type Summary struct {
	Files         int         `json:"files"`
	FilesWritten  int         `json:"files_written"`
	Records       int         `json:"records"`
	ParseFailures []FileError `json:"parse_failures,omitempty"`
	WriteFailures []FileError `json:"write_failures,omitempty"`
	DurationMs    int64       `json:"duration_ms"`
}

// Indexer runs one walk at a time, synchronously. A second Run started while
// one is in progress fails with ErrBusy instead of interleaving its writes.
type Indexer struct {
	mu      sync.Mutex
	walker  *walker.Walker
	sink    sink.Sink
	stats   *ParseStats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewIndexer(w *walker.Walker, s sink.Sink, stats *ParseStats, log *slog.Logger) *Indexer {
	return &Indexer{
		walker:  w,
		sink:    s,
		stats:   stats,
		log:     log,
		backoff: Backoff,
	}
}

// Sink returns the sink records are written to.
func (ix *Indexer) Sink() sink.Sink {
	return ix.sink
}

// Run walks root and writes each parsed file's records to the sink as soon
// as the file is done. A file that fails to parse or write is reported in the
// summary and the run continues. The returned error is set only when the
// walk itself cannot proceed: an unreadable root or a canceled context.
func (ix *Indexer) Run(ctx context.Context, root string) (Summary, error) {
	if !ix.mu.TryLock() {
		return Summary{}, ErrBusy
	}
	defer ix.mu.Unlock()

	start := time.Now()
	var sum Summary
	log := ix.log.With("root", root)

	err := ix.walker.Visit(ctx, root, func(fr walker.FileResult) error {
		sum.Files++
		if ix.stats != nil {
			ix.stats.Record(fr.Duration, fr.Err != nil)
		}
		if fr.Err != nil {
			sum.ParseFailures = append(sum.ParseFailures, FileError{File: fr.File, Error: fr.Err.Error()})
			return nil
		}

		err := retry(ctx, ix.backoff, func(attempt int, err error) {
			log.Warn("retryable sink error", "file", fr.File, "attempt", attempt, "error", err)
		}, func() error {
			return ix.sink.Write(ctx, fr.File, fr.Records)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error("sink write failed", "file", fr.File, "error", err)
			sum.WriteFailures = append(sum.WriteFailures, FileError{File: fr.File, Error: err.Error()})
			return nil
		}
		sum.FilesWritten++
		sum.Records += len(fr.Records)
		return nil
	})

	sum.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		return sum, err
	}
	log.Info("index complete",
		"files", sum.Files,
		"records", sum.Records,
		"parse_failures", len(sum.ParseFailures),
		"write_failures", len(sum.WriteFailures),
		"duration_ms", sum.DurationMs,
	)
	return sum, nil
}
