package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/document"
	"atslens/internal/layout"
	"atslens/internal/types"
)

const resumeFixture = `{
  "pages": [
    {
      "width": 612,
      "height": 792,
      "blocks": [
        {"text": "Jane Doe", "bbox": [72, 90, 200, 110], "fonts": ["Calibri-Bold"]},
        {"text": "SKILLS", "bbox": [72, 300, 140, 315], "fonts": ["Calibri"]},
        {"text": "Go, Python", "bbox": [100, 330, 200, 345], "fonts": ["Calibri"]},
        {"text": "Docker", "bbox": [250, 330, 350, 345], "fonts": ["Calibri"]},
        {"text": "Terraform", "bbox": [400, 330, 500, 345], "fonts": ["Calibri"]},
        {"text": "jane@example.com", "bbox": [72, 760, 300, 775], "fonts": ["Calibri"]}
      ]
    }
  ]
}`

func newEngine() *Engine {
	return New(Options{Workers: 2})
}

func codes(list []types.ATSIssue) []types.IssueCode {
	out := make([]types.IssueCode, len(list))
	for i, issue := range list {
		out[i] = issue.Code
	}
	return out
}

func TestAnalyzeFixture(t *testing.T) {
	doc, err := document.ParseFixture([]byte(resumeFixture))
	require.NoError(t, err)

	fields := &types.ParsedFields{Name: "Jane Doe", Phone: "555-123-4567"}
	res, err := newEngine().Analyze(context.Background(), doc, fields, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Empty(t, res.Message)
	got := codes(res.Details)
	assert.Contains(t, got, types.CodeSkillsSectionUnreadable)
	assert.Contains(t, got, types.CodeContactEmailInHeaderFooter)
	assert.Contains(t, got, types.CodeExtensiveTableUsage)
	assert.Equal(t, types.SeverityCritical, res.Details[0].Severity)

	assert.Equal(t, len(res.Details), res.Summary.Total)
	assert.Len(t, res.Issues, len(res.Details))
	assert.NotEmpty(t, res.Recommendations)
	assert.NotEmpty(t, res.Highlights)

	require.NotNil(t, res.Diagnostics)
	assert.True(t, res.Diagnostics.HasTables)
	require.NotNil(t, res.Diagnostics.ComplexityMetric)
	assert.Equal(t, res.Metrics.Complexity.Score, *res.Diagnostics.ComplexityMetric)
	assert.Equal(t, 15.0, res.Metrics.Complexity.Score)

	require.NotNil(t, res.Sections)
	assert.NotEmpty(t, res.Sections.Sections)
}

func TestAnalyzeDeterministic(t *testing.T) {
	fields := &types.ParsedFields{Name: "Jane Doe"}
	run := func() []types.ATSIssue {
		doc, err := document.ParseFixture([]byte(resumeFixture))
		require.NoError(t, err)
		res, err := newEngine().Analyze(context.Background(), doc, fields, nil)
		require.NoError(t, err)
		return res.Details
	}

	first := run()
	for range 3 {
		assert.Equal(t, first, run())
	}
}

func TestAnalyzeSinglePageImage(t *testing.T) {
	img := types.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}
	doc := document.NewFixture(&types.LayoutFixture{Pages: []types.FixturePage{{
		Width: 612, Height: 792,
		Blocks: []types.FixtureBlock{{Text: "Scanned resume", BBox: types.Rect{X0: 72, Y0: 300, X1: 300, Y1: 320}}},
		Images: []types.FixtureImage{{Name: "scan", BBox: img}},
	}}})

	res, err := newEngine().Analyze(context.Background(), doc, nil, nil)
	require.NoError(t, err)

	got := codes(res.Details)
	assert.Contains(t, got, types.CodeScannedPDF)
	assert.Contains(t, got, types.CodeImageContent)
	assert.Equal(t, 15.0, res.Metrics.Complexity.Score)
	assert.Equal(t, "simple", res.Metrics.Complexity.Label)
}

func TestAnalyzeUnreadable(t *testing.T) {
	res, err := newEngine().Analyze(context.Background(), document.NewFixture(nil), nil, nil)
	require.NoError(t, err)

	require.Len(t, res.Details, 1)
	assert.Equal(t, types.CodeDocumentUnreadable, res.Details[0].Code)
	assert.Contains(t, res.Message, "no pages")
	assert.Empty(t, res.Highlights)
	assert.Equal(t, 1, res.Summary.Critical)
}

func TestAnalyzeCancelled(t *testing.T) {
	doc, err := document.ParseFixture([]byte(resumeFixture))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newEngine().Analyze(ctx, doc, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

type panicDoc struct{ layout.Document }

func (panicDoc) PageCount() int { panic("corrupt xref") }

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	res, err := newEngine().Analyze(context.Background(), panicDoc{}, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, res.Message, "corrupt xref")
	assert.NotNil(t, res.Details)
	assert.NotNil(t, res.Highlights)
	assert.NotNil(t, res.Recommendations)
	assert.Zero(t, res.Summary.Total)
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	e := newEngine()

	t.Run("fixture", func(t *testing.T) {
		path := filepath.Join(dir, "resume.json")
		require.NoError(t, os.WriteFile(path, []byte(resumeFixture), 0600))
		a, err := e.AnalyzeFile(context.Background(), path, nil, nil)
		require.NoError(t, err)
		assert.Len(t, a.Layout.Blocks, 6)
		assert.Equal(t, a.Partition.Evaluated, a.Result.Metrics.Coverage.TotalBlocks)
	})

	t.Run("corrupt pdf is unreadable", func(t *testing.T) {
		path := filepath.Join(dir, "broken.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 garbage"), 0600))
		a, err := e.AnalyzeFile(context.Background(), path, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []types.IssueCode{types.CodeDocumentUnreadable}, codes(a.Result.Details))
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := e.AnalyzeFile(context.Background(), filepath.Join(dir, "resume.docx"), nil, nil)
		assert.Error(t, err)
	})
}

func TestMergeDiagnostics(t *testing.T) {
	score := 55.0
	computed := types.LayoutDiagnostics{PageCount: 2, CharacterCount: 900, FontCount: 3, HasTables: true, Warnings: []string{"w"}}

	assert.Equal(t, computed, MergeDiagnostics(nil, computed))

	supplied := &types.LayoutDiagnostics{HasMultiColumn: true, SecondaryColumnRatio: 0.4, ComplexityMetric: &score}
	got := MergeDiagnostics(supplied, computed)
	assert.True(t, got.HasMultiColumn)
	assert.False(t, got.HasTables, "supplied flags are used as-is")
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, 900, got.CharacterCount)
	assert.Equal(t, 3, got.FontCount)
	assert.Equal(t, []string{"w"}, got.Warnings)
	require.NotNil(t, got.ComplexityMetric)
	assert.Equal(t, 55.0, *got.ComplexityMetric)
	assert.NotSame(t, supplied.ComplexityMetric, got.ComplexityMetric)
}

func TestSuppliedComplexityDrivesIssue(t *testing.T) {
	doc, err := document.ParseFixture([]byte(resumeFixture))
	require.NoError(t, err)
	score := 80.0

	res, err := newEngine().Analyze(context.Background(), doc, nil, &types.LayoutDiagnostics{ComplexityMetric: &score})
	require.NoError(t, err)
	assert.Contains(t, codes(res.Details), types.CodeLayoutComplexity)
}

func TestExplanationContext(t *testing.T) {
	doc, err := document.ParseFixture([]byte(resumeFixture))
	require.NoError(t, err)
	a, err := newEngine().Run(context.Background(), doc, &types.ParsedFields{Name: "Jane Doe"}, nil)
	require.NoError(t, err)

	ec := ExplanationContext(a, 0)
	assert.Equal(t, a.Result.ID, ec.AnalysisID)
	assert.Equal(t, a.Result.Details, ec.Issues)
	assert.Len(t, ec.Blocks, 6)
	assert.False(t, ec.Truncated)
	assert.Equal(t, "Jane Doe", ec.Blocks[0].Preview)
	assert.True(t, ec.Blocks[2].InTable)

	short := ExplanationContext(a, 2)
	assert.Len(t, short.Blocks, 2)
	assert.True(t, short.Truncated)

	empty := ExplanationContext(nil, 10)
	assert.Empty(t, empty.Blocks)
	assert.NotNil(t, empty.Issues)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate("  a\n  b ", 80))
	assert.Equal(t, strings.Repeat("x", 80), truncate(strings.Repeat("x", 200), 80))
}
