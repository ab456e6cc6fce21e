package layout

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"atslens/internal/fonts"
	"atslens/internal/types"
)

// MultiColumnMinRatio is the share of text outside the first column above
// which a page layout counts as multi-column. Short right-aligned labels such
// as dates stay below it.
const MultiColumnMinRatio = 0.10

var (
	digits     = regexp.MustCompile(`\d+`)
	pageNumber = regexp.MustCompile(`(?i)^(page\s*)?\d+(\s*(of|/)\s*\d+)?$`)
)

// SecondaryColumnRatio is the character-weighted share of text outside
// column 1: 1 - chars(column 1) / chars(all). It is 0 for empty input.
func SecondaryColumnRatio(blocks []types.TextBlock) float64 {
	total, first := 0, 0
	for _, b := range blocks {
		n := utf8.RuneCountInString(b.Text)
		total += n
		if b.Column <= 1 {
			first += n
		}
	}
	if total == 0 {
		return 0
	}
	return 1 - float64(first)/float64(total)
}

// HasRunningHeadersFooters reports whether the document has real running
// headers or footers: header or footer band text that repeats on at least two
// pages, or bare page numbers. A single page never qualifies, since contact
// details at the top of a one-page resume are not a header.
func HasRunningHeadersFooters(l *types.Layout) bool {
	if l == nil || len(l.Pages) < 2 {
		return false
	}

	seen := make(map[string]map[int]bool)
	for _, b := range l.Blocks {
		if !b.IsHeaderFooter() {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(b.Text))
		if pageNumber.MatchString(text) {
			return true
		}
		key := strings.Join(strings.Fields(digits.ReplaceAllString(text, "#")), " ")
		if key == "" {
			continue
		}
		if seen[key] == nil {
			seen[key] = make(map[int]bool)
		}
		seen[key][b.Page] = true
		if len(seen[key]) >= 2 {
			return true
		}
	}
	return false
}

// HasMultiColumn applies the ratio-weighted rule: some page has a second
// column and enough text lives outside column 1.
func HasMultiColumn(blocks []types.TextBlock) bool {
	multi := false
	for _, b := range blocks {
		if b.Column >= 2 {
			multi = true
			break
		}
	}
	return multi && SecondaryColumnRatio(blocks) > MultiColumnMinRatio
}

// Diagnose computes the one-pass pre-scan summary of a layout. The
// complexity score is left unset; the metrics engine owns it.
func Diagnose(l *types.Layout) types.LayoutDiagnostics {
	d := types.LayoutDiagnostics{Warnings: []string{}}
	if l == nil {
		return d
	}

	d.PageCount = len(l.Pages)
	d.CharacterCount = l.TotalChars
	d.ImageCount = len(l.Images)
	d.HasImages = d.ImageCount > 0
	d.TableCount = l.TableCount
	d.HasTables = l.TableCount > 0
	d.FontCount = fonts.NewReport(l.Fonts).Count()
	d.SecondaryColumnRatio = SecondaryColumnRatio(l.Blocks)
	d.HasMultiColumn = HasMultiColumn(l.Blocks)
	d.HasHeadersFooters = HasRunningHeadersFooters(l)
	for _, b := range l.Blocks {
		if b.InTextBox {
			d.HasTextBoxes = true
			break
		}
	}

	if l.Unreadable {
		d.Warnings = append(d.Warnings, "Document could not be read")
	}
	if d.HasImages {
		d.Warnings = append(d.Warnings, fmt.Sprintf("Document contains %d image(s) that ATS cannot read", d.ImageCount))
	}
	if d.HasTables {
		d.Warnings = append(d.Warnings, fmt.Sprintf("Document contains %d table(s)", d.TableCount))
	}
	if d.HasMultiColumn {
		d.Warnings = append(d.Warnings, fmt.Sprintf("Multi-column layout detected (%.0f%% of text outside the main column)", d.SecondaryColumnRatio*100))
	}
	if d.HasHeadersFooters {
		d.Warnings = append(d.Warnings, "Running headers or footers detected")
	}
	if d.HasTextBoxes {
		d.Warnings = append(d.Warnings, "Floating text boxes detected")
	}
	if d.FontCount > 3 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("%d different fonts used", d.FontCount))
	}
	return d
}
