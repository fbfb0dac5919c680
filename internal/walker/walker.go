// Package walker turns a directory of documents into flat records.
//
// Traversal follows the order in which the filesystem lists directory
// entries: the matching files of a directory first, then each subdirectory in
// turn. That order is filesystem dependent and is never sorted here.
package walker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/spf13/afero"
)

// Options configures a Walker.
type Options struct {
	Parser     parser.Options
	Extensions []string // File name suffixes to visit; defaults to ".md"
	Nested     bool     // Emit a record for every block, not only top-level ones
}

// FileResult is the outcome of one visited file.
type FileResult struct {
	File     string // Relative to the walk root, slash separated
	Records  []doctree.Record
	Duration time.Duration
	Err      error
}

// Failure is a file that could not be read or parsed.
type Failure struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result collects a whole walk.
type Result struct {
	Files    int
	Records  []doctree.Record
	Failures []Failure
}

// Walker visits a directory tree on an afero filesystem.
type Walker struct {
	fs   afero.Fs
	opts Options
	log  *slog.Logger
}

func New(fs afero.Fs, opts Options, log *slog.Logger) *Walker {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".md"}
	}
	return &Walker{fs: fs, opts: opts, log: log}
}

// Walk parses every matching file under root. Files that fail are recorded in
// Result.Failures and skipped; only an unreadable root is an error.
func (w *Walker) Walk(ctx context.Context, root string) (*Result, error) {
	res := &Result{}
	err := w.Visit(ctx, root, func(fr FileResult) error {
		res.Files++
		if fr.Err != nil {
			res.Failures = append(res.Failures, Failure{File: fr.File, Err: fr.Err})
			return nil
		}
		res.Records = append(res.Records, fr.Records...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Visit walks root and calls fn once per matching file, in traversal order.
// A non-nil error from fn stops the walk and is returned. Cancellation is
// checked between files, never in the middle of one.
func (w *Walker) Visit(ctx context.Context, root string, fn func(FileResult) error) error {
	info, err := w.fs.Stat(root)
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("walk %s: not a directory", root)
	}
	return w.visitDir(ctx, root, root, fn)
}

func (w *Walker) visitDir(ctx context.Context, root, dir string, fn func(FileResult) error) error {
	entries, err := w.readDir(dir)
	if err != nil {
		if dir == root {
			return fmt.Errorf("walk %s: %w", root, err)
		}
		w.log.Warn("skipping unreadable directory", "dir", dir, "error", err)
		return nil
	}

	var subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if !w.matches(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(w.visitFile(root, path)); err != nil {
			return err
		}
	}

	for _, sub := range subdirs {
		if err := w.visitDir(ctx, root, sub, fn); err != nil {
			return err
		}
	}
	return nil
}

// readDir lists dir without sorting.
func (w *Walker) readDir(dir string) ([]os.FileInfo, error) {
	f, err := w.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdir(-1)
}

func (w *Walker) matches(name string) bool {
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (w *Walker) visitFile(root, path string) FileResult {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	fr := FileResult{File: filepath.ToSlash(rel)}
	log := w.log.With("file", fr.File)

	start := time.Now()
	tree, err := w.parseFile(path)
	fr.Duration = time.Since(start)
	if err != nil {
		log.Warn("skipping file", "error", err)
		fr.Err = err
		return fr
	}

	if w.opts.Nested {
		fr.Records = FlattenNested(fr.File, tree)
	} else {
		fr.Records = Flatten(fr.File, tree)
	}
	log.Debug("parsed file", "records", len(fr.Records), "duration_ms", fr.Duration.Milliseconds())
	return fr
}

func (w *Walker) parseFile(path string) (*doctree.Tree, error) {
	p, err := parser.ForFile(path, w.opts.Parser)
	if err != nil {
		return nil, err
	}
	f, err := w.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	return p.Parse(f, filepath.Base(path))
}
