package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"atslens/internal/matcher"
	"atslens/internal/types"
)

func TestComplexity(t *testing.T) {
	tests := []struct {
		name     string
		diag     types.LayoutDiagnostics
		expected float64
		label    string
	}{
		{"empty", types.LayoutDiagnostics{}, 0, LabelSimple},
		{"single image", types.LayoutDiagnostics{HasImages: true, ImageCount: 1}, 15, LabelSimple},
		{"image flag without count", types.LayoutDiagnostics{HasImages: true}, 15, LabelSimple},
		{"three images", types.LayoutDiagnostics{HasImages: true, ImageCount: 3}, 19, LabelSimple},
		{"image step capped", types.LayoutDiagnostics{HasImages: true, ImageCount: 40}, 25, LabelModerate},
		{"two tables", types.LayoutDiagnostics{HasTables: true, TableCount: 2}, 18, LabelSimple},
		{"table step capped", types.LayoutDiagnostics{HasTables: true, TableCount: 30}, 30, LabelModerate},
		{"multi-column", types.LayoutDiagnostics{HasMultiColumn: true, SecondaryColumnRatio: 0.333}, 26.7, LabelModerate},
		{"headers and footers", types.LayoutDiagnostics{HasHeadersFooters: true}, 10, LabelSimple},
		{
			"everything",
			types.LayoutDiagnostics{
				HasImages: true, ImageCount: 10,
				HasTables: true, TableCount: 10,
				HasMultiColumn: true, SecondaryColumnRatio: 0.5,
				HasHeadersFooters: true,
			},
			95, LabelVeryComplex,
		},
		{
			"capped",
			types.LayoutDiagnostics{
				HasImages: true, ImageCount: 10,
				HasTables: true, TableCount: 10,
				HasMultiColumn: true, SecondaryColumnRatio: 0.9,
				HasHeadersFooters: true,
			},
			100, LabelVeryComplex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Complexity(tt.diag)
			assert.InDelta(t, tt.expected, m.Score, 0.001)
			assert.Equal(t, tt.label, m.Label)
		})
	}
}

func TestComplexityLabelBoundaries(t *testing.T) {
	assert.Equal(t, LabelSimple, ComplexityLabel(20))
	assert.Equal(t, LabelModerate, ComplexityLabel(20.1))
	assert.Equal(t, LabelModerate, ComplexityLabel(40))
	assert.Equal(t, LabelComplex, ComplexityLabel(70))
	assert.Equal(t, LabelVeryComplex, ComplexityLabel(70.1))
}

func TestStructure(t *testing.T) {
	full := &types.ParsedFields{
		Email:      "jane@example.com",
		Phone:      "555-123-4567",
		Skills:     []string{"a", "b", "c", "d"},
		Experience: make([]types.ExperienceEntry, 2),
		Education:  make([]types.EducationEntry, 1),
	}
	s := Structure(full)
	// 25 + 5 + 25 + 2 + 20 + 1 + 20 + 2
	assert.Equal(t, 100.0, s.Score)
	assert.Empty(t, s.Missing)
	assert.True(t, s.HasContact)

	emailOnly := &types.ParsedFields{Email: "jane@example.com", Skills: []string{"a"}}
	s = Structure(emailOnly)
	assert.Equal(t, 45.5, s.Score)
	assert.Equal(t, []string{"experience", "education"}, s.Missing)

	s = Structure(nil)
	assert.Zero(t, s.Score)
	assert.Equal(t, []string{"contact", "experience", "education", "skills"}, s.Missing)
}

func TestStructureCapsEntryBonus(t *testing.T) {
	f := &types.ParsedFields{
		Phone:      "555-123-4567",
		Experience: make([]types.ExperienceEntry, 9),
		Skills:     make([]string, 30),
	}
	// 25 + 25 + 5 + 20 + 5
	assert.Equal(t, 80.0, Structure(f).Score)
}

func TestOverall(t *testing.T) {
	assert.Equal(t, 100.0, Overall(0, 100, 100))
	assert.Equal(t, 0.0, Overall(100, 0, 0))
	// 85*0.30 + 50*0.35 + 45.5*0.35
	assert.Equal(t, 58.9, Overall(15, 50, 45.5))
}

func TestCompute(t *testing.T) {
	res := matcher.Result{Mapped: []int{0, 1, 2}, Unmapped: []int{3}, Evaluated: 4}
	m := Compute(types.LayoutDiagnostics{HasImages: true, ImageCount: 1}, res, &types.ParsedFields{Email: "a@b.co"})

	assert.Equal(t, 15.0, m.Complexity.Score)
	assert.Equal(t, 75.0, m.Coverage.Score)
	assert.Equal(t, 25.0, m.Structure.Score)
	assert.Equal(t, Overall(15, 75, 25), m.Overall)
}
