package issues

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/errors"
	"atslens/internal/layout"
	"atslens/internal/types"
)

func blk(index int, text string, x0, y0, x1, y1 float64) types.TextBlock {
	return types.TextBlock{
		Index:  index,
		Page:   1,
		Text:   text,
		BBox:   types.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1},
		Region: types.RegionBody,
		Column: 1,
	}
}

func newLayout(blocks ...types.TextBlock) *types.Layout {
	l := &types.Layout{
		Pages:  []types.PageInfo{{Number: 1, Width: 612, Height: 792}},
		Blocks: blocks,
	}
	for _, b := range blocks {
		l.TotalChars += len(b.Text)
	}
	if l.TotalChars < 200 {
		l.TotalChars = 200
	}
	return l
}

func goodFields() *types.ParsedFields {
	return &types.ParsedFields{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Phone:  "(555) 123-4567",
		Skills: []string{"Go", "PostgreSQL", "Kubernetes"},
	}
}

func withCode(list []types.ATSIssue, code types.IssueCode) []types.ATSIssue {
	var out []types.ATSIssue
	for _, i := range list {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

func TestDefaultRegistryOrder(t *testing.T) {
	names := DefaultRegistry(nil).Names()
	assert.Equal(t, "unreadable", names[0])
	assert.Equal(t, "diagnostics", names[len(names)-1])
	assert.Contains(t, names, "dates")
}

func TestRunUnreadableOnly(t *testing.T) {
	l := layout.Unreadable("file is empty")
	got := DefaultRegistry(nil).Run(NewInput(l, nil, nil))

	require.Len(t, got, 1)
	assert.Equal(t, types.CodeDocumentUnreadable, got[0].Code)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)
	assert.Contains(t, got[0].Message, "file is empty")
	assert.Equal(t, -1, got[0].BlockIndex)
}

func TestRunNilInput(t *testing.T) {
	assert.NotPanics(t, func() {
		DefaultRegistry(nil).Run(nil)
	})
}

func TestRunRecoversFromPanickingDetector(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(errors.NewLoggerTo(&buf, slog.LevelDebug))
	r.Register("boom", func(*Input) []types.ATSIssue {
		panic("index out of range")
	})
	r.Register("ok", func(*Input) []types.ATSIssue {
		return []types.ATSIssue{docIssue(types.CodeTooManyFonts, types.SeverityLow, types.SectionGeneral, "fonts")}
	})

	got := r.Run(NewInput(newLayout(), nil, nil))
	require.Len(t, got, 1)
	assert.Equal(t, types.CodeTooManyFonts, got[0].Code)
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "index out of range")
}

func TestSort(t *testing.T) {
	at := func(sev types.Severity, page int, y float64) types.ATSIssue {
		return types.ATSIssue{Severity: sev, Page: page, BBox: &types.Rect{Y0: y, Y1: y + 10}}
	}
	docWide := types.ATSIssue{Severity: types.SeverityHigh, Page: 1}
	list := []types.ATSIssue{
		at(types.SeverityLow, 1, 10),
		at(types.SeverityHigh, 2, 10),
		at(types.SeverityHigh, 1, 500),
		docWide,
		at(types.SeverityCritical, 3, 0),
		at(types.SeverityHigh, 1, 100),
	}
	Sort(list)

	assert.Equal(t, types.SeverityCritical, list[0].Severity)
	assert.Nil(t, list[1].BBox, "document-wide issues come first within a page")
	assert.Equal(t, 100.0, list[2].BBox.Y0)
	assert.Equal(t, 500.0, list[3].BBox.Y0)
	assert.Equal(t, 2, list[4].Page)
	assert.Equal(t, types.SeverityLow, list[5].Severity)
}

func TestRunDeterministic(t *testing.T) {
	l := newLayout(
		blk(0, "Jane Doe", 72, 20, 200, 40),
		blk(1, "SKILLS", 72, 100, 140, 115),
		blk(2, "Go | Python | SQL | Docker", 72, 120, 400, 135),
		blk(3, "EXPERIENCE", 72, 200, 180, 215),
		blk(4, "Engineer at Acme, Jan '21 - Present", 72, 220, 400, 235),
		blk(5, "Hobbies include competitive sailing, amateur astronomy, landscape photography and restoring vintage motorcycles", 72, 300, 540, 330),
	)
	l.Images = []types.ImageBox{{Page: 1, BBox: &types.Rect{X0: 500, Y0: 20, X1: 520, Y1: 40}}}
	l.Fonts = []string{"Papyrus", "Calibri", "Roboto", "Lato", "Montserrat"}
	fields := &types.ParsedFields{Name: "Jane Doe", Skills: []string{"Go"}}

	first := DefaultRegistry(nil).Run(NewInput(l, fields, nil))
	require.NotEmpty(t, first)
	for range 3 {
		assert.Equal(t, first, DefaultRegistry(nil).Run(NewInput(l, fields, nil)))
	}
}

func TestRecommendations(t *testing.T) {
	list := []types.ATSIssue{
		{Code: types.CodeImageContent},
		{Code: types.CodeScannedPDF},
		{Code: types.CodeImageContent},
		{Code: types.IssueCode("not_a_code")},
	}
	got := Recommendations(list)
	require.Len(t, got, 2)
	assert.Equal(t, Recommendation(types.CodeImageContent), got[0])
	assert.Equal(t, Recommendation(types.CodeScannedPDF), got[1])

	assert.Empty(t, Recommendations(nil))
	assert.NotNil(t, Recommendations(nil))
}

func TestEveryCodeHasRecommendationAndTooltip(t *testing.T) {
	dateTooltips := make(map[types.IssueCode]string)
	for _, p := range datePatterns {
		dateTooltips[p.code] = p.long
	}
	for _, code := range types.AllIssueCodes() {
		t.Run(string(code), func(t *testing.T) {
			assert.NotEmpty(t, recommendations[code])
			assert.NotEmpty(t, tooltips[code]+dateTooltips[code])
		})
	}
}

func TestSummarizeHighlightsMessages(t *testing.T) {
	bbox := &types.Rect{X0: 1, Y0: 2, X1: 3, Y1: 4}
	list := []types.ATSIssue{
		{Code: types.CodeScannedPDF, Severity: types.SeverityCritical, Message: "a", Page: 1},
		{Code: types.CodeSkillsInTable, Severity: types.SeverityMedium, Message: "b", Page: 1, BBox: bbox, Tooltip: "tip"},
		{Code: types.CodeUnmappedContent, Severity: types.SeverityLow, Message: "c", Page: 2, BBox: bbox},
	}

	assert.Equal(t, types.Summary{Total: 3, Critical: 1, Medium: 1, Low: 1}, Summarize(list))
	assert.Equal(t, []string{"a", "b", "c"}, Messages(list))

	hl := Highlights(list)
	require.Len(t, hl, 2)
	assert.Equal(t, types.Highlight{
		Page: 1, BBox: *bbox, Severity: types.SeverityMedium, Code: types.CodeSkillsInTable, Message: "b", Tooltip: "tip",
	}, hl[0])
	assert.Equal(t, 2, hl[1].Page)
}

func BenchmarkRun(b *testing.B) {
	var blocks []types.TextBlock
	for i := range 60 {
		y := float64(40 + (i%30)*24)
		blocks = append(blocks, blk(i, "Led kubernetes migration for payments across every production cluster, Jan 2021", 72, y, 540, y+12))
	}
	l := newLayout(blocks...)
	fields := goodFields()
	r := DefaultRegistry(nil)

	for b.Loop() {
		r.Run(NewInput(l, fields, nil))
	}
}
