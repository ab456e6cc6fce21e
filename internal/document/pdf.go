// Package document provides readers that expose a resume as a layout.Document.
package document

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	tlayout "github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"

	"atslens/internal/errors"
	"atslens/internal/layout"
	"atslens/internal/types"
)

// PDF is a layout.Document backed by the tabula reader. The reader keeps
// internal caches, so every call into it is serialised.
type PDF struct {
	mu        sync.Mutex
	r         *reader.Reader
	pageCount int
	fragments map[int][]text.TextFragment
	sizes     map[int][2]float64
}

var _ layout.Document = (*PDF)(nil)

// OpenPDF opens a PDF file for layout analysis. The caller must Close it.
func OpenPDF(path string) (*PDF, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeDocumentUnreadable, "failed to open PDF", err).
			WithContext("file", path)
	}

	count, err := r.PageCount()
	if err != nil {
		_ = r.Close()
		return nil, errors.NewParseError(errors.ErrCodeDocumentUnreadable, "failed to read page tree", err).
			WithContext("file", path)
	}

	return &PDF{
		r:         r,
		pageCount: count,
		fragments: make(map[int][]text.TextFragment),
		sizes:     make(map[int][2]float64),
	}, nil
}

func (d *PDF) PageCount() int {
	return d.pageCount
}

func (d *PDF) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return nil
	}
	err := d.r.Close()
	d.r = nil
	return err
}

// page must be called with d.mu held
func (d *PDF) page(n int) (*pages.Page, error) {
	if d.r == nil {
		return nil, fmt.Errorf("document is closed")
	}
	if n < 1 || n > d.pageCount {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, d.pageCount)
	}
	return d.r.GetPage(n - 1)
}

func (d *PDF) PageSize(n int) (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageSizeLocked(n)
}

func (d *PDF) pageSizeLocked(n int) (float64, float64, error) {
	if size, ok := d.sizes[n]; ok {
		return size[0], size[1], nil
	}
	p, err := d.page(n)
	if err != nil {
		return 0, 0, err
	}
	w, err := p.Width()
	if err != nil {
		return 0, 0, fmt.Errorf("page width: %w", err)
	}
	h, err := p.Height()
	if err != nil {
		return 0, 0, fmt.Errorf("page height: %w", err)
	}
	d.sizes[n] = [2]float64{w, h}
	return w, h, nil
}

func (d *PDF) fragmentsLocked(n int) ([]text.TextFragment, error) {
	if frags, ok := d.fragments[n]; ok {
		return frags, nil
	}
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	frags, err := d.r.ExtractTextFragments(p)
	if err != nil {
		return nil, err
	}
	d.fragments[n] = frags
	return frags, nil
}

// TextSpans returns one span per block found by tabula's block detector
func (d *PDF) TextSpans(n int) ([]layout.Span, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, h, err := d.pageSizeLocked(n)
	if err != nil {
		return nil, err
	}
	frags, err := d.fragmentsLocked(n)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, nil
	}

	detected := tlayout.NewBlockDetector().Detect(frags, w, h)
	spans := make([]layout.Span, 0, len(detected.Blocks))
	for i := range detected.Blocks {
		b := &detected.Blocks[i]
		spans = append(spans, layout.Span{
			Text:  b.GetText(),
			BBox:  flip(b.BBox, h),
			Fonts: fontNames(b.Fragments),
		})
	}
	return spans, nil
}

// ClipText returns the text of every fragment whose centre lies inside clip
func (d *PDF) ClipText(n int, clip types.Rect) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, h, err := d.pageSizeLocked(n)
	if err != nil {
		return "", err
	}
	frags, err := d.fragmentsLocked(n)
	if err != nil {
		return "", err
	}

	var inside []text.TextFragment
	for _, f := range frags {
		r := flip(model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}, h)
		cx, cy := (r.X0+r.X1)/2, (r.Y0+r.Y1)/2
		if cx >= clip.X0 && cx <= clip.X1 && cy >= clip.Y0 && cy <= clip.Y1 {
			inside = append(inside, f)
		}
	}
	// top to bottom, then left to right
	sort.SliceStable(inside, func(i, j int) bool {
		if inside[i].Y != inside[j].Y {
			return inside[i].Y > inside[j].Y
		}
		return inside[i].X < inside[j].X
	})

	var sb strings.Builder
	for i, f := range inside {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Text)
	}
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

// Images returns every image XObject on the page, placed using the content
// stream. An image that is never drawn with a recoverable transform is
// returned without a bounding box.
func (d *PDF) Images(n int) ([]types.ImageBox, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, h, err := d.pageSizeLocked(n)
	if err != nil {
		return nil, err
	}
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	imgs, err := d.r.ExtractPageImages(p)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, nil
	}

	placements := imagePlacements(p, h)

	sort.Slice(imgs, func(i, j int) bool { return imgs[i].Name < imgs[j].Name })
	var out []types.ImageBox
	for _, img := range imgs {
		name := strings.TrimPrefix(img.Name, "/")
		rects := placements[name]
		if len(rects) == 0 {
			out = append(out, types.ImageBox{Page: n, Name: name, Width: float64(img.Width), Height: float64(img.Height)})
			continue
		}
		for _, r := range rects {
			out = append(out, types.ImageBox{Page: n, Name: name, BBox: &r, Width: r.Width(), Height: r.Height()})
		}
	}
	return out, nil
}

// imagePlacements walks the page content stream tracking the current
// transformation matrix and records where each XObject is drawn. The image
// occupies the unit square in its own space.
func imagePlacements(p *pages.Page, pageHeight float64) map[string][]types.Rect {
	out := make(map[string][]types.Rect)

	contents, err := p.Contents()
	if err != nil {
		return out
	}
	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return out
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}

	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		return out
	}

	ctm := model.Identity()
	var stack []model.Matrix
	for _, op := range ops {
		switch op.Operator {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if len(stack) > 0 {
				ctm = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "cm":
			if m, ok := matrixOf(op.Operands); ok {
				ctm = m.Multiply(ctm)
			}
		case "Do":
			if len(op.Operands) != 1 {
				continue
			}
			name, ok := op.Operands[0].(core.Name)
			if !ok {
				continue
			}
			key := strings.TrimPrefix(string(name), "/")
			out[key] = append(out[key], unitSquare(ctm, pageHeight))
		}
	}
	return out
}

func matrixOf(operands []core.Object) (model.Matrix, bool) {
	if len(operands) != 6 {
		return model.Matrix{}, false
	}
	var m model.Matrix
	for i, o := range operands {
		switch v := o.(type) {
		case core.Int:
			m[i] = float64(v)
		case core.Real:
			m[i] = float64(v)
		default:
			return model.Matrix{}, false
		}
	}
	return m, true
}

func unitSquare(ctm model.Matrix, pageHeight float64) types.Rect {
	corners := []model.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	first := ctm.Transform(corners[0])
	minX, maxX, minY, maxY := first.X, first.X, first.Y, first.Y
	for _, c := range corners[1:] {
		pt := ctm.Transform(c)
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}
	return types.Rect{X0: minX, Y0: pageHeight - maxY, X1: maxX, Y1: pageHeight - minY}
}

// flip converts a bottom-left origin box into a top-left origin Rect
func flip(b model.BBox, pageHeight float64) types.Rect {
	return types.Rect{
		X0: b.X,
		Y0: pageHeight - (b.Y + b.Height),
		X1: b.X + b.Width,
		Y1: pageHeight - b.Y,
	}
}

func fontNames(frags []text.TextFragment) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range frags {
		if f.FontName == "" || seen[f.FontName] {
			continue
		}
		seen[f.FontName] = true
		names = append(names, f.FontName)
	}
	sort.Strings(names)
	return names
}
