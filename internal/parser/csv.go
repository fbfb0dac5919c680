package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
)

// csvBatchSize is the number of data rows per block.
const csvBatchSize = 20

// CSVParser handles CSV files. The first row is the header; data rows are
// grouped into "Rows a-b" blocks with one "header: value" line per row.
type CSVParser struct {
	Chunk chunker.Config
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.Tree{
		Title: titleFromFilename(filename),
	}
	if len(records) == 0 {
		return tree, nil
	}

	headers := records[0]
	dataRows := records[1:]

	b := newTreeBuilder(p.Chunk)
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		// 1-indexed, skip header
		b.Heading(1, fmt.Sprintf("Rows %d-%d", i+2, end+1))
		for _, row := range dataRows[i:end] {
			b.Line(csvRowLine(headers, row))
		}
	}

	tree.Blocks = b.Blocks()
	return tree, nil
}

func csvRowLine(headers, row []string) string {
	parts := make([]string, len(row))
	for j, cell := range row {
		if j < len(headers) {
			parts[j] = headers[j] + ": " + cell
		} else {
			parts[j] = cell
		}
	}
	return strings.Join(parts, ", ")
}
