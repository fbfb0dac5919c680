package walker

import "github.com/dgallion1/docsplit/internal/doctree"

// Flatten emits one record per top-level block. Nested blocks are not
// emitted; their text only lives in the tree.
func Flatten(file string, tree *doctree.Tree) []doctree.Record {
	records := make([]doctree.Record, 0, len(tree.Blocks))
	for _, b := range tree.Blocks {
		records = append(records, doctree.Record{
			File:    file,
			Title:   b.Title,
			Content: b.Content,
		})
	}
	return records
}

// FlattenNested emits one record per block at every depth, in document
// order. Breadcrumb holds the titles of the block's ancestors.
func FlattenNested(file string, tree *doctree.Tree) []doctree.Record {
	var records []doctree.Record
	for _, top := range tree.Blocks {
		top.Walk(func(b *doctree.Block, path []string) {
			rec := doctree.Record{
				File:    file,
				Title:   b.Title,
				Content: b.Content,
			}
			if len(path) > 1 {
				rec.Breadcrumb = path[:len(path)-1]
			}
			records = append(records, rec)
		})
	}
	return records
}
