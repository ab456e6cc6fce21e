package types

import (
	"encoding/json"
	"fmt"
)

// Rect is an axis-aligned box in PDF points with a top-left origin
type Rect struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

// MarshalJSON encodes the rectangle as [x0, y0, x1, y1]
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X0, r.Y0, r.X1, r.Y1})
}

// UnmarshalJSON decodes a rectangle from [x0, y0, x1, y1]
func (r *Rect) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bbox must be an array of numbers: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("bbox must have 4 coordinates, got %d", len(v))
	}
	r.X0, r.Y0, r.X1, r.Y1 = v[0], v[1], v[2], v[3]
	return nil
}

// MarshalYAML keeps the YAML form identical to the JSON one
func (r Rect) MarshalYAML() (any, error) {
	return []float64{r.X0, r.Y0, r.X1, r.Y1}, nil
}

// Region is the coarse vertical placement of a block on its page
type Region string

const (
	RegionHeader Region = "header"
	RegionBody   Region = "body"
	RegionFooter Region = "footer"
)

// TextBlock is a classified block of text. Blocks are produced once per document
// and referenced by Index everywhere downstream.
type TextBlock struct {
	Index     int      `json:"index"`
	Page      int      `json:"page"` // 1-based
	Text      string   `json:"text"`
	BBox      Rect     `json:"bbox"`
	Region    Region   `json:"region"`
	Column    int      `json:"column"` // 1-based
	InTable   bool     `json:"inTable"`
	InTextBox bool     `json:"inTextBox"`
	Fonts     []string `json:"fonts,omitempty"`
}

// IsHeaderFooter reports whether the block sits in the header or footer band
func (b TextBlock) IsHeaderFooter() bool {
	return b.Region == RegionHeader || b.Region == RegionFooter
}

// ImageBox is a raster image placed on a page. BBox is nil when the reader
// could not recover the placement.
type ImageBox struct {
	Page   int     `json:"page"`
	Name   string  `json:"name,omitempty"`
	BBox   *Rect   `json:"bbox,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageInfo holds page dimensions in points
type PageInfo struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the output of the layout analyzer
type Layout struct {
	Pages            []PageInfo  `json:"pages"`
	Blocks           []TextBlock `json:"blocks"`
	Images           []ImageBox  `json:"images"`
	Fonts            []string    `json:"fonts"` // distinct raw font names
	TotalChars       int         `json:"totalChars"`
	TableCount       int         `json:"tableCount"`
	Unreadable       bool        `json:"unreadable"`
	UnreadableReason string      `json:"unreadableReason,omitempty"`
}

// Page returns the page info for a 1-based page number
func (l *Layout) Page(n int) (PageInfo, bool) {
	if l == nil || n < 1 || n > len(l.Pages) {
		return PageInfo{}, false
	}
	return l.Pages[n-1], true
}

// LayoutDiagnostics is the one-pass pre-scan summary of a document
type LayoutDiagnostics struct {
	HasImages            bool     `json:"hasImages"`
	HasTables            bool     `json:"hasTables"`
	HasMultiColumn       bool     `json:"hasMultiColumn"`
	HasHeadersFooters    bool     `json:"hasHeadersFooters"`
	HasTextBoxes         bool     `json:"hasTextBoxes"`
	ImageCount           int      `json:"imageCount"`
	TableCount           int      `json:"tableCount"`
	FontCount            int      `json:"fontCount"`
	PageCount            int      `json:"pageCount"`
	CharacterCount       int      `json:"characterCount"`
	SecondaryColumnRatio float64  `json:"secondaryColumnRatio"`
	ComplexityMetric     *float64 `json:"complexityMetric,omitempty"` // 0-100, higher is worse
	Warnings             []string `json:"warnings,omitempty"`
}
