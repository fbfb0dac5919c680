package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
)

// headingPattern matches an ATX heading line: 1-6 '#', whitespace, text.
// Unicode space separators such as the ideographic space U+3000 count as
// whitespace.
var headingPattern = regexp.MustCompile(`^(#{1,6})[\s\p{Zs}]+(.+)`)

// MarkdownParser builds a heading tree from Markdown source line by line.
// Any line matching headingPattern is a heading, including lines inside
// fenced code blocks; use GoldmarkParser when that matters.
type MarkdownParser struct {
	Chunk chunker.Config
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := readUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("markdown %s: %w", filename, err)
	}

	b := newTreeBuilder(p.Chunk)
	for _, line := range splitLines(src) {
		if level, title, ok := parseHeading(line); ok {
			b.Heading(level, title)
			continue
		}
		b.Line(line)
	}

	return &doctree.Tree{
		Title:  titleFromFilename(filename),
		Blocks: b.Blocks(),
	}, nil
}

// parseHeading reports the level and trimmed title of a heading line.
func parseHeading(line string) (int, string, bool) {
	m := headingPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}
