package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
)

var (
	// ErrUnsupportedExtension is returned by ForFile for unknown file types.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrInvalidEncoding is returned when text input is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid utf-8 encoding")
)

// Parser converts raw document bytes into a heading tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Tree, error)
}

// Markdown heading detection modes.
const (
	ModeLine     = "line"
	ModeGoldmark = "goldmark"
)

// Options carries the settings shared by all parsers.
type Options struct {
	Chunk             chunker.Config
	MarkdownMode      string // ModeLine (default) or ModeGoldmark
	FallbackPdftotext bool
}

// DefaultOptions uses the default chunk thresholds and line-mode Markdown.
func DefaultOptions() Options {
	return Options{
		Chunk:        chunker.DefaultConfig(),
		MarkdownMode: ModeLine,
	}
}

// SupportedExtensions lists file extensions ForFile can handle.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		if opts.MarkdownMode == ModeGoldmark {
			return &GoldmarkParser{Chunk: opts.Chunk}, nil
		}
		return &MarkdownParser{Chunk: opts.Chunk}, nil
	case ".txt":
		return &TextParser{Chunk: opts.Chunk}, nil
	case ".csv":
		return &CSVParser{Chunk: opts.Chunk}, nil
	case ".html", ".htm":
		return &HTMLParser{Chunk: opts.Chunk}, nil
	case ".pdf":
		return &PDFParser{Chunk: opts.Chunk, FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{Chunk: opts.Chunk}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips the directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
