package issues

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"atslens/internal/fonts"
	"atslens/internal/types"
)

// Detector thresholds
const (
	ScannedMaxChars     = 100
	IconMaxAreaRatio    = 0.01
	IconTopBandRatio    = 0.20
	IconMinSkills       = 3
	MaxFontFamilies     = 3
	UncommonFontsListed = 3
	UnmappedPreview     = 60
)

func detectUnreadable(in *Input) []types.ATSIssue {
	if !in.Layout.Unreadable {
		return nil
	}
	msg := "Document could not be read"
	if in.Layout.UnreadableReason != "" {
		msg += ": " + in.Layout.UnreadableReason
	}
	return []types.ATSIssue{docIssue(types.CodeDocumentUnreadable, types.SeverityCritical, types.SectionGeneral, msg)}
}

func detectScanned(in *Input) []types.ATSIssue {
	if in.Layout.TotalChars >= ScannedMaxChars || len(in.Layout.Images) == 0 {
		return nil
	}
	issue := docIssue(types.CodeScannedPDF, types.SeverityCritical, types.SectionGeneral, "Scanned or image-based PDF detected")
	issue.Details = []string{
		fmt.Sprintf("%d characters of extractable text", in.Layout.TotalChars),
		fmt.Sprintf("%d image(s)", len(in.Layout.Images)),
	}
	return []types.ATSIssue{issue}
}

func detectImages(in *Input) []types.ATSIssue {
	var out []types.ATSIssue
	for _, img := range in.Layout.Images {
		issue := docIssue(types.CodeImageContent, types.SeverityCritical, types.SectionGeneral, "Image detected - ATS cannot read images")
		issue.Page = img.Page
		if img.BBox != nil {
			bbox := *img.BBox
			issue.BBox = &bbox
			issue.LocationHint = fmt.Sprintf("page %d, image", img.Page)
		}
		out = append(out, issue)
	}
	return out
}

// detectIcons flags small images near the top of a page when the extracted
// contact details or skills look thin, since icons often replace them
func detectIcons(in *Input) []types.ATSIssue {
	f := in.fields()
	if f.HasEmail() && f.HasPhone() && len(f.Skills) >= IconMinSkills {
		return nil
	}

	var out []types.ATSIssue
	flagged := make(map[int]bool)
	for _, img := range in.Layout.Images {
		if img.BBox == nil || flagged[img.Page] {
			continue
		}
		p, ok := in.Layout.Page(img.Page)
		if !ok {
			continue
		}
		pageArea := p.Width * p.Height
		if pageArea <= 0 || img.BBox.Area() >= pageArea*IconMaxAreaRatio || img.BBox.Y0 >= p.Height*IconTopBandRatio {
			continue
		}
		flagged[img.Page] = true
		bbox := *img.BBox
		issue := docIssue(types.CodeIconUsage, types.SeverityHigh, types.SectionContact, "Icons detected - may hide contact info or skills")
		issue.Page = img.Page
		issue.BBox = &bbox
		issue.LocationHint = fmt.Sprintf("page %d, top of page", img.Page)
		out = append(out, issue)
	}
	return out
}

func detectTextBoxes(in *Input) []types.ATSIssue {
	var out []types.ATSIssue
	for _, b := range in.Layout.Blocks {
		if b.InTextBox {
			out = append(out, blockIssue(types.CodeFloatingTextBox, types.SeverityMedium, types.SectionGeneral, "Floating text box", b))
		}
	}
	return out
}

func detectFonts(in *Input) []types.ATSIssue {
	report := fonts.NewReport(in.Layout.Fonts)
	var out []types.ATSIssue

	for _, fam := range report.Families {
		if fam.Category != fonts.CategoryDecorative {
			continue
		}
		issue := docIssue(types.CodeDecorativeFont, types.SeverityHigh, types.SectionGeneral, "Decorative font: "+fam.Name)
		issue.Details = fam.Raw
		localize(&issue, in.firstBlock(func(b types.TextBlock) bool {
			return slices.ContainsFunc(b.Fonts, func(f string) bool { return slices.Contains(fam.Raw, f) })
		}))
		out = append(out, issue)
	}

	if len(report.Uncommon) > 0 {
		listed := report.Uncommon[:min(len(report.Uncommon), UncommonFontsListed)]
		msg := "Uncommon fonts: " + strings.Join(listed, ", ")
		if extra := len(report.Uncommon) - len(listed); extra > 0 {
			msg += fmt.Sprintf(" and %d more", extra)
		}
		issue := docIssue(types.CodeUncommonFont, types.SeverityMedium, types.SectionGeneral, msg)
		issue.Details = slices.Clone(report.Uncommon)
		out = append(out, issue)
	}

	if n := report.Count(); n > MaxFontFamilies {
		out = append(out, docIssue(types.CodeTooManyFonts, types.SeverityLow, types.SectionGeneral,
			fmt.Sprintf("Too many fonts (%d different fonts)", n)))
	}
	return out
}

// localize pins a document-wide issue to a block when one is known
func localize(issue *types.ATSIssue, b *types.TextBlock) {
	if b == nil {
		return
	}
	bbox := b.BBox
	issue.Page = b.Page
	issue.BBox = &bbox
	issue.BlockIndex = b.Index
	issue.LocationHint = locationHint(*b)
}

func detectUnmapped(in *Input) []types.ATSIssue {
	unmapped := in.partition().Unmapped
	if len(unmapped) == 0 {
		return nil
	}
	byIndex := make(map[int]types.TextBlock, len(in.Layout.Blocks))
	for _, b := range in.Layout.Blocks {
		byIndex[b.Index] = b
	}

	var out []types.ATSIssue
	for _, idx := range unmapped {
		b, ok := byIndex[idx]
		if !ok {
			continue
		}
		msg := fmt.Sprintf("Content not captured by ATS: %q", preview(b.Text, UnmappedPreview))
		out = append(out, blockIssue(types.CodeUnmappedContent, types.SeverityLow, types.SectionGeneral, msg, b))
	}
	return out
}

// preview collapses whitespace and cuts text to at most n runes
func preview(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
