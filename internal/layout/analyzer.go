package layout

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"atslens/internal/errors"
	"atslens/internal/types"
)

// Analyzer extracts and classifies blocks from a Document
type Analyzer struct {
	workers int
	logger  *errors.Logger
}

// NewAnalyzer creates an analyzer. workers bounds concurrent page
// extraction; values below 1 mean GOMAXPROCS.
func NewAnalyzer(workers int, logger *errors.Logger) *Analyzer {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Analyzer{workers: workers, logger: logger}
}

type pageData struct {
	info   types.PageInfo
	spans  []Span
	images []types.ImageBox
	err    error
}

// Analyze reads every page of doc and returns the classified layout.
// An unreadable document is reported through Layout.Unreadable; the only
// error returned is context cancellation.
func (a *Analyzer) Analyze(ctx context.Context, doc Document) (*types.Layout, error) {
	if doc == nil {
		return Unreadable("no document"), nil
	}

	pageCount := doc.PageCount()
	if pageCount <= 0 {
		return Unreadable("document has no pages"), nil
	}

	pages := make([]pageData, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// A malformed page must not take the process down with it.
			defer func() {
				if rec := recover(); rec != nil {
					pages[i] = pageData{info: types.PageInfo{Number: i + 1}, err: fmt.Errorf("extraction panicked: %v", rec)}
				}
			}()
			pages[i] = a.extractPage(doc, i+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, p := range pages {
		if p.err != nil {
			failed++
			a.logger.Warn("Page extraction failed", "page", p.info.Number, "error", p.err.Error())
		}
	}
	if failed == pageCount {
		return Unreadable(fmt.Sprintf("all %d page(s) failed to extract: %v", pageCount, pages[0].err)), nil
	}

	return a.classify(pages), nil
}

func (a *Analyzer) extractPage(doc Document, page int) pageData {
	data := pageData{info: types.PageInfo{Number: page}}

	w, h, err := doc.PageSize(page)
	if err != nil {
		data.err = fmt.Errorf("page size: %w", err)
		return data
	}
	data.info.Width, data.info.Height = w, h

	spans, err := doc.TextSpans(page)
	if err != nil {
		data.err = fmt.Errorf("text spans: %w", err)
		return data
	}
	for i := range spans {
		if strings.TrimSpace(spans[i].Text) != "" {
			continue
		}
		// Some readers deliver the geometry without the text; ask for it back.
		text, clipErr := doc.ClipText(page, spans[i].BBox)
		if clipErr == nil {
			spans[i].Text = text
		}
	}
	data.spans = spans

	images, err := doc.Images(page)
	if err != nil {
		a.logger.Debug("Image extraction failed", "page", page, "error", err.Error())
	}
	for i := range images {
		images[i].Page = page
	}
	data.images = images
	return data
}

// classify runs after every page has been extracted
func (a *Analyzer) classify(pages []pageData) *types.Layout {
	out := &types.Layout{
		Pages:  make([]types.PageInfo, 0, len(pages)),
		Blocks: []types.TextBlock{},
		Images: []types.ImageBox{},
		Fonts:  []string{},
	}
	fontSet := make(map[string]bool)

	for _, p := range pages {
		out.Pages = append(out.Pages, p.info)
		if p.err != nil {
			continue
		}

		blocks := make([]types.TextBlock, 0, len(p.spans))
		for _, s := range p.spans {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			blocks = append(blocks, types.TextBlock{
				Page:  p.info.Number,
				Text:  text,
				BBox:  s.BBox,
				Fonts: s.Fonts,
			})
		}

		out.TableCount += ClassifyPage(blocks, p.info.Width, p.info.Height)
		sortReadingOrder(blocks)

		for _, b := range blocks {
			b.Index = len(out.Blocks)
			out.Blocks = append(out.Blocks, b)
			out.TotalChars += utf8.RuneCountInString(b.Text)
			for _, f := range b.Fonts {
				fontSet[f] = true
			}
		}
		out.Images = append(out.Images, p.images...)
	}

	for f := range fontSet {
		out.Fonts = append(out.Fonts, f)
	}
	sort.Strings(out.Fonts)
	return out
}

// ClassifyPage assigns region, column, table and text box membership to the
// blocks of a single page in place. It returns the number of tables found.
func ClassifyPage(blocks []types.TextBlock, pageWidth, pageHeight float64) int {
	tables := markTables(blocks)
	assignColumns(blocks, pageWidth)
	for i := range blocks {
		blocks[i].Region = RegionOf(blocks[i].BBox, pageHeight)
		blocks[i].InTextBox = IsTextBox(blocks[i].BBox, pageWidth)
	}
	return tables
}

// Column-major within a page, then top to bottom.
func sortReadingOrder(blocks []types.TextBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.BBox.Y0 != b.BBox.Y0 {
			return a.BBox.Y0 < b.BBox.Y0
		}
		return a.BBox.X0 < b.BBox.X0
	})
}

// Unreadable returns the canonical empty layout for a document that could not be read
func Unreadable(reason string) *types.Layout {
	return &types.Layout{
		Pages:            []types.PageInfo{},
		Blocks:           []types.TextBlock{},
		Images:           []types.ImageBox{},
		Fonts:            []string{},
		Unreadable:       true,
		UnreadableReason: reason,
	}
}
