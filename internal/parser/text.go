package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs, the
// paragraphs go through chunker.Adjust, and each resulting chunk becomes one
// untitled top-level block.
type TextParser struct {
	Chunk chunker.Config
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := readUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("text %s: %w", filename, err)
	}

	tree := &doctree.Tree{
		Title: titleFromFilename(filename),
	}
	for _, chunk := range chunker.Adjust(Paragraphs(src), p.Chunk) {
		tree.Blocks = append(tree.Blocks, &doctree.Block{Content: chunk})
	}
	return tree, nil
}

// Paragraphs splits text on blank lines. Each paragraph keeps its lines
// newline-terminated; whitespace-only lines count as blank.
func Paragraphs(text string) []string {
	var paragraphs []string
	var current strings.Builder

	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
