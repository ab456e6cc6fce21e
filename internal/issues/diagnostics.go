package issues

import (
	"fmt"

	"atslens/internal/types"
)

// Complexity and column-ratio severity cutoffs
const (
	ComplexityCritical = 70.0
	ComplexityHigh     = 40.0
	ComplexityMedium   = 20.0
	ColumnRatioHigh    = 0.4
	ColumnRatioMedium  = 0.2
)

// ComplexitySeverity maps a complexity score to a severity. ok is false when
// the score is too low to report.
func ComplexitySeverity(score float64) (types.Severity, bool) {
	switch {
	case score > ComplexityCritical:
		return types.SeverityCritical, true
	case score > ComplexityHigh:
		return types.SeverityHigh, true
	case score > ComplexityMedium:
		return types.SeverityMedium, true
	default:
		return "", false
	}
}

// ColumnSeverity scales with the share of text outside the main column
func ColumnSeverity(ratio float64) types.Severity {
	switch {
	case ratio > ColumnRatioHigh:
		return types.SeverityHigh
	case ratio > ColumnRatioMedium:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// detectFromDiagnostics turns pre-scan flags into issues
func detectFromDiagnostics(in *Input) []types.ATSIssue {
	d := in.Diagnostics
	if d == nil {
		return nil
	}
	var out []types.ATSIssue

	if d.ComplexityMetric != nil {
		if sev, ok := ComplexitySeverity(*d.ComplexityMetric); ok {
			issue := docIssue(types.CodeLayoutComplexity, sev, types.SectionGeneral,
				fmt.Sprintf("Complex layout (complexity score %.0f/100)", *d.ComplexityMetric))
			issue.Details = d.Warnings
			out = append(out, issue)
		}
	}

	if d.HasMultiColumn {
		out = append(out, in.multiColumnIssues(d.SecondaryColumnRatio)...)
	}

	if d.HasTables {
		issue := docIssue(types.CodeExtensiveTableUsage, types.SeverityMedium, types.SectionGeneral, "Tables used for content")
		localize(&issue, in.firstBlock(func(b types.TextBlock) bool { return b.InTable }))
		out = append(out, issue)
	}

	if d.HasHeadersFooters {
		issue := docIssue(types.CodeExcessiveHeaderFooter, types.SeverityMedium, types.SectionGeneral, "Content in headers/footers")
		localize(&issue, in.firstBlock(types.TextBlock.IsHeaderFooter))
		out = append(out, issue)
	}

	if d.HasImages && len(in.Layout.Images) == 0 {
		out = append(out, docIssue(types.CodeImageContent, types.SeverityHigh, types.SectionGeneral, "Document contains images that ATS cannot read"))
	}
	return out
}

// multiColumnIssues reports once per page, at the first block outside the
// main column. Without such a block the issue is document-wide.
func (in *Input) multiColumnIssues(ratio float64) []types.ATSIssue {
	sev := ColumnSeverity(ratio)
	msg := fmt.Sprintf("Multi-column layout (%.0f%% of text outside the main column)", ratio*100)

	var out []types.ATSIssue
	seen := make(map[int]bool)
	for _, b := range in.Layout.Blocks {
		if b.Column < 2 || seen[b.Page] {
			continue
		}
		seen[b.Page] = true
		out = append(out, blockIssue(types.CodeMultiColumnLayout, sev, types.SectionGeneral, msg, b))
	}
	if len(out) == 0 {
		out = append(out, docIssue(types.CodeMultiColumnLayout, sev, types.SectionGeneral, msg))
	}
	return out
}

func (in *Input) firstBlock(match func(types.TextBlock) bool) *types.TextBlock {
	for i := range in.Layout.Blocks {
		if match(in.Layout.Blocks[i]) {
			return &in.Layout.Blocks[i]
		}
	}
	return nil
}
