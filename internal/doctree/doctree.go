package doctree

// Tree is the parsed form of one document.
type Tree struct {
	Title  string   `json:"title"`  // File name without extension
	Blocks []*Block `json:"blocks"` // Top-level headings; the synthetic root is not kept
}

// Block is a heading node. Each block is owned by its parent's Children slice.
type Block struct {
	Title    string   `json:"title,omitempty"` // Heading text (empty for untitled leaf text)
	Level    int      `json:"level"`           // Heading level 1-6 (0 for untitled blocks)
	Content  string   `json:"content"`         // Chunk-normalized direct content, descendants excluded
	Children []*Block `json:"children,omitempty"`
}

// Record is the flat form of a block handed to the embedding layer.
type Record struct {
	File       string   `json:"file"` // Path relative to the walk root, slash separated
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content"`
	Breadcrumb []string `json:"breadcrumb,omitempty"` // Ancestor titles, set only by nested flattening
}

// Walk visits b and its descendants depth-first in document order.
// path holds the titles from the top-level block down to b.
func (b *Block) Walk(fn func(b *Block, path []string)) {
	b.walk(nil, fn)
}

func (b *Block) walk(parent []string, fn func(*Block, []string)) {
	path := make([]string, len(parent), len(parent)+1)
	copy(path, parent)
	path = append(path, b.Title)
	fn(b, path)
	for _, c := range b.Children {
		c.walk(path, fn)
	}
}
