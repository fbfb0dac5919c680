package parser

import (
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
)

// treeBuilder assembles a heading tree in one pass. Every format parser feeds
// it headings and content lines in document order.
//
// Nesting is driven by an explicit stack seeded with a level-0 root: a new
// heading pops every open block whose level is >= its own and becomes a child
// of whatever is left on top. Skipped levels do not create filler blocks.
type treeBuilder struct {
	chunkCfg chunker.Config
	root     *doctree.Block
	stack    []*doctree.Block
	current  *doctree.Block
	pending  []string
	headings int
}

func newTreeBuilder(cfg chunker.Config) *treeBuilder {
	root := &doctree.Block{Level: 0}
	return &treeBuilder{
		chunkCfg: cfg,
		root:     root,
		stack:    []*doctree.Block{root},
		current:  root,
	}
}

// Line queues one content line. Blank lines contribute nothing.
func (b *treeBuilder) Line(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	b.pending = append(b.pending, line+"\n")
}

// Heading closes the current block's content and opens a new block.
func (b *treeBuilder) Heading(level int, title string) {
	b.flush()

	for len(b.stack) > 1 && b.stack[len(b.stack)-1].Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}

	block := &doctree.Block{Title: title, Level: level}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, block)
	b.stack = append(b.stack, block)
	b.current = block
	b.headings++
}

// flush normalizes the pending lines and appends them to the current block.
func (b *treeBuilder) flush() {
	if len(b.pending) == 0 {
		return
	}
	b.current.Content += strings.Join(chunker.Adjust(b.pending, b.chunkCfg), "")
	b.pending = b.pending[:0]
}

// Blocks finishes the pass and returns the root's children.
func (b *treeBuilder) Blocks() []*doctree.Block {
	b.flush()
	return b.root.Children
}

// BlocksOrPreamble is Blocks for formats without reliable heading markup:
// when no heading was seen, the text collected on the root is returned as a
// single untitled block instead of being dropped.
func (b *treeBuilder) BlocksOrPreamble() []*doctree.Block {
	blocks := b.Blocks()
	if b.headings == 0 && b.root.Content != "" {
		return []*doctree.Block{{Content: b.root.Content}}
	}
	return blocks
}
