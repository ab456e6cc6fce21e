// Package layout turns per-page text and image primitives into classified
// blocks: region, column, table and text box membership.
package layout

import (
	"atslens/internal/types"
)

// Span is a run of text on a page as delivered by a document reader.
// Readers that group text into blocks return one span per block.
type Span struct {
	Text  string
	BBox  types.Rect // top-left origin
	Fonts []string
}

// Document is the page-level view of a resume that the analyzer needs.
// Pages are 1-based. Implementations must allow concurrent calls for
// different pages.
type Document interface {
	PageCount() int
	PageSize(page int) (width, height float64, err error)
	TextSpans(page int) ([]Span, error)
	Images(page int) ([]types.ImageBox, error)
	ClipText(page int, clip types.Rect) (string, error)
	Close() error
}
