package fonts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"subset prefix", "ABCDEF+Calibri", "calibri"},
		{"subset prefix with composite", "XYZABC+ArialMT", "arial"},
		{"icon font", "FontAwesome", ""},
		{"icon font with subset", "QWERTY+FontAwesome5Free-Solid", ""},
		{"symbol font", "Symbol", ""},
		{"tex roman", "CMR10", "computer modern"},
		{"tex bold extended", "CMBX12", "computer modern"},
		{"tex sans bold", "cmssbx10", "computer modern"},
		{"internal id short", "F1", ""},
		{"internal id t", "T3", ""},
		{"internal id hex", "a1b2c3d4", ""},
		{"composite arial bold", "Arial-BoldMT", "arial"},
		{"composite times", "TimesNewRomanPSMT", "times new roman"},
		{"composite helvetica", "Helvetica-Bold", "helvetica"},
		{"composite courier", "Courier", "courier new"},
		{"suffix bold", "Georgia-Bold", "georgia"},
		{"suffix comma style", "Calibri,Bold", "calibri"},
		{"suffix italic", "Garamond-Italic", "garamond"},
		{"suffix regular", "Lato-Regular", "lato"},
		{"times roman", "Times-Roman", "times"},
		{"stacked italic mt", "Verdana-ItalicMT", "verdana"},
		{"stacked georgia italic mt", "Georgia-ItalicMT", "georgia"},
		{"stacked light mt", "Calibri-LightMT", "calibri"},
		{"stacked with subset", "ABCDEF+Garamond-SemiboldMT", "garamond"},
		{"stacked dash styles", "Verdana-Bold-Italic", "verdana"},
		{"bold mt", "Tahoma-BoldMT", "tahoma"},
		{"too short after strip", "AB-Bold", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		family   string
		expected Category
	}{
		{"arial", CategoryFriendly},
		{"times new roman", CategoryFriendly},
		{"computer modern", CategoryFriendly},
		{"comic sans", CategoryDecorative},
		{"papyrus", CategoryDecorative},
		{"brush script std", CategoryDecorative},
		{"lato", CategoryUncommon},
		{"roboto", CategoryUncommon},
		{"", CategoryIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.family))
		})
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport([]string{
		"ABCDEF+Calibri",
		"Calibri-Bold",
		"Calibri-Bold",
		"ComicSansMS",
		"Roboto-Regular",
		"F1",
		"FontAwesome",
	})

	assert.Equal(t, 3, report.Count())
	assert.Equal(t, []string{"calibri"}, report.Friendly)
	assert.Equal(t, []string{"comic sans"}, report.Decorative)
	assert.Equal(t, []string{"roboto"}, report.Uncommon)
	assert.Equal(t, []string{"F1", "FontAwesome"}, report.Ignored)

	for _, fam := range report.Families {
		if fam.Name == "calibri" {
			assert.Equal(t, []string{"ABCDEF+Calibri", "Calibri-Bold"}, fam.Raw)
		}
	}
}

func TestNewReportStackedStyles(t *testing.T) {
	report := NewReport([]string{"Verdana-ItalicMT", "Georgia-ItalicMT", "Calibri-LightMT", "ABCDEF+Garamond-SemiboldMT"})
	assert.Equal(t, []string{"calibri", "garamond", "georgia", "verdana"}, report.Friendly)
	assert.Empty(t, report.Uncommon)
}

func TestNewReportEmpty(t *testing.T) {
	report := NewReport(nil)
	assert.Zero(t, report.Count())
	assert.Empty(t, report.Friendly)
	assert.NotNil(t, report.Friendly)
}

func TestFriendlyFamiliesSorted(t *testing.T) {
	families := FriendlyFamilies()
	assert.IsIncreasing(t, families)
	assert.Contains(t, families, "georgia")
}

func BenchmarkNormalize(b *testing.B) {
	for b.Loop() {
		Normalize("ABCDEF+TimesNewRomanPS-BoldMT")
	}
}
