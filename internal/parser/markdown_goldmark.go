package parser

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var atxOpening = regexp.MustCompile(`^ {0,3}#{1,6}(\s|$)`)

// GoldmarkParser lets goldmark's CommonMark parser decide which lines are
// headings, so '#' lines in code blocks stay content and setext headings are
// recognized. Content between headings is handled exactly as in
// MarkdownParser: raw source lines, blank lines skipped, chunk-normalized.
type GoldmarkParser struct {
	Chunk chunker.Config
}

// headingSpan is a heading and the source lines it occupies.
type headingSpan struct {
	level     int
	title     string
	startLine int
	endLine   int // inclusive; the underline for setext headings
}

func (p *GoldmarkParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := readUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("markdown %s: %w", filename, err)
	}

	lines := splitLines(src)
	spans := findHeadings([]byte(src), lines)

	b := newTreeBuilder(p.Chunk)
	for i := 0; i < len(lines); i++ {
		if h, ok := spans[i]; ok {
			b.Heading(h.level, h.title)
			i = h.endLine
			continue
		}
		b.Line(lines[i])
	}

	return &doctree.Tree{
		Title:  titleFromFilename(filename),
		Blocks: b.Blocks(),
	}, nil
}

// findHeadings returns the document-level headings keyed by first line.
// Headings nested in block quotes or lists are left as content, as are empty
// ATX headings, which carry no source segment to locate them by.
func findHeadings(src []byte, lines []string) map[int]headingSpan {
	lineStarts := []int{0}
	for i, c := range src {
		if c == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(offset int) int {
		return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset }) - 1
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	spans := make(map[int]headingSpan)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		segs := h.Lines()
		start := lineOf(segs.At(0).Start)
		end := start
		if start < len(lines) && !atxOpening.MatchString(lines[start]) {
			end = lineOf(segs.At(segs.Len()-1).Start) + 1
		}
		if end >= len(lines) {
			end = len(lines) - 1
		}
		spans[start] = headingSpan{
			level:     h.Level,
			title:     inlineText(h, src),
			startLine: start,
			endLine:   end,
		}
	}
	return spans
}

// inlineText joins the text segments under an inline container such as a
// heading, descending into emphasis, links and code spans. Soft line breaks
// inside a multi-line setext heading become a single space.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(src))
				if c.SoftLineBreak() || c.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(c.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
