package formatters

import (
	"fmt"
	"strings"

	"atslens/internal/fonts"
	"atslens/internal/types"
)

// ResultTextFormatter handles text formatting for analysis results
type ResultTextFormatter struct{}

func (rtf *ResultTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== ATS COMPATIBILITY REPORT ===\n\n")
	if result.Message != "" {
		output.WriteString(result.Message + "\n\n")
	}

	m := result.Metrics
	fmt.Fprintf(&output, "Overall score: %.1f/100\n", m.Overall)
	fmt.Fprintf(&output, "Layout complexity: %.0f (%s)\n", m.Complexity.Score, m.Complexity.Label)
	fmt.Fprintf(&output, "Content coverage: %.1f%% (%d of %d blocks)\n", m.Coverage.Score, m.Coverage.MappedBlocks, m.Coverage.TotalBlocks)
	fmt.Fprintf(&output, "Structure: %.1f/100\n", m.Structure.Score)
	if len(m.Structure.Missing) > 0 {
		fmt.Fprintf(&output, "Missing sections: %s\n", strings.Join(m.Structure.Missing, ", "))
	}
	output.WriteString("\n")

	s := result.Summary
	fmt.Fprintf(&output, "=== ISSUES (%d) ===\n", s.Total)
	fmt.Fprintf(&output, "critical: %d  high: %d  medium: %d  low: %d\n\n", s.Critical, s.High, s.Medium, s.Low)
	if len(result.Details) == 0 {
		output.WriteString("No issues found.\n")
	}
	for i, issue := range result.Details {
		fmt.Fprintf(&output, "%d. [%s] %s\n", i+1, strings.ToUpper(string(issue.Severity)), issue.Message)
		if issue.LocationHint != "" {
			fmt.Fprintf(&output, "   Location: %s\n", issue.LocationHint)
		}
		for _, d := range issue.Details {
			fmt.Fprintf(&output, "   - %s\n", d)
		}
	}

	if len(result.Recommendations) > 0 {
		output.WriteString("\n=== RECOMMENDATIONS ===\n\n")
		for _, r := range result.Recommendations {
			fmt.Fprintf(&output, "* %s\n", r)
		}
	}

	if result.Sections != nil {
		fmt.Fprintf(&output, "\n=== SECTIONS (%s) ===\n\n", result.Sections.Overall)
		for _, sec := range result.Sections.Sections {
			fmt.Fprintf(&output, "%-15s %-12s items: %d  issues: %d\n", sec.Section, sec.Status, sec.ItemCount, sec.IssueCount)
		}
		for _, w := range result.Sections.FieldWarnings {
			fmt.Fprintf(&output, "! %s\n", w)
		}
	}

	return output.String(), nil
}

func (rtf *ResultTextFormatter) SupportedType() string {
	return typeAnalysisResult
}

// ResultMarkdownFormatter handles markdown formatting for analysis results
type ResultMarkdownFormatter struct{}

func (rmf *ResultMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ATS Compatibility Report\n\n")
	if result.Message != "" {
		fmt.Fprintf(&output, "> %s\n\n", result.Message)
	}

	m := result.Metrics
	output.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&output, "| Overall | %.1f |\n", m.Overall)
	fmt.Fprintf(&output, "| Complexity | %.0f (%s) |\n", m.Complexity.Score, m.Complexity.Label)
	fmt.Fprintf(&output, "| Coverage | %.1f%% |\n", m.Coverage.Score)
	fmt.Fprintf(&output, "| Structure | %.1f |\n\n", m.Structure.Score)

	fmt.Fprintf(&output, "## Issues (%d)\n\n", result.Summary.Total)
	if len(result.Details) == 0 {
		output.WriteString("No issues found.\n")
	}
	for _, issue := range result.Details {
		fmt.Fprintf(&output, "- **%s** `%s` %s", issue.Severity, issue.Code, escapeMarkdown(issue.Message))
		if issue.LocationHint != "" {
			fmt.Fprintf(&output, " _(%s)_", issue.LocationHint)
		}
		output.WriteString("\n")
		for _, d := range issue.Details {
			fmt.Fprintf(&output, "  - %s\n", escapeMarkdown(d))
		}
	}

	if len(result.Recommendations) > 0 {
		output.WriteString("\n## Recommendations\n\n")
		for i, r := range result.Recommendations {
			fmt.Fprintf(&output, "%d. %s\n", i+1, r)
		}
	}

	if result.Sections != nil {
		fmt.Fprintf(&output, "\n## Sections: %s\n\n", result.Sections.Overall)
		output.WriteString("| Section | Status | Items | Issues |\n|---|---|---|---|\n")
		for _, sec := range result.Sections.Sections {
			fmt.Fprintf(&output, "| %s | %s | %d | %d |\n", sec.Section, sec.Status, sec.ItemCount, sec.IssueCount)
		}
	}

	return output.String(), nil
}

func (rmf *ResultMarkdownFormatter) SupportedType() string {
	return typeAnalysisResult
}

// ContextTextFormatter handles text formatting for explanation contexts
type ContextTextFormatter struct{}

func (ctf *ContextTextFormatter) Format(data any) (string, error) {
	ec, ok := data.(types.ExplanationContext)
	if !ok {
		return "", fmt.Errorf("expected ExplanationContext, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== EXPLANATION CONTEXT %s ===\n\n", ec.AnalysisID)
	fmt.Fprintf(&output, "Overall: %.1f  Complexity: %.0f  Coverage: %.1f%%  Structure: %.1f\n\n",
		ec.Metrics.Overall, ec.Metrics.Complexity.Score, ec.Metrics.Coverage.Score, ec.Metrics.Structure.Score)

	output.WriteString("Issues:\n")
	for _, issue := range ec.Issues {
		fmt.Fprintf(&output, "  [%s] %s: %s\n", issue.Severity, issue.Code, issue.Message)
	}

	output.WriteString("\nBlocks:\n")
	for _, b := range ec.Blocks {
		fmt.Fprintf(&output, "  #%d p%d %s col%d%s %q\n", b.Index, b.Page, b.Region, b.Column, blockFlags(b), b.Preview)
	}
	if ec.Truncated {
		output.WriteString("  ...\n")
	}
	return output.String(), nil
}

func (ctf *ContextTextFormatter) SupportedType() string {
	return typeExplanationContext
}

// ContextMarkdownFormatter handles markdown formatting for explanation contexts
type ContextMarkdownFormatter struct{}

func (cmf *ContextMarkdownFormatter) Format(data any) (string, error) {
	ec, ok := data.(types.ExplanationContext)
	if !ok {
		return "", fmt.Errorf("expected ExplanationContext, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Explanation Context `%s`\n\n", ec.AnalysisID)
	output.WriteString("## Issues\n\n")
	for _, issue := range ec.Issues {
		fmt.Fprintf(&output, "- **%s** `%s` %s\n", issue.Severity, issue.Code, escapeMarkdown(issue.Message))
	}

	output.WriteString("\n## Blocks\n\n| # | Page | Region | Column | Flags | Text |\n|---|---|---|---|---|---|\n")
	for _, b := range ec.Blocks {
		fmt.Fprintf(&output, "| %d | %d | %s | %d | %s | %s |\n",
			b.Index, b.Page, b.Region, b.Column, strings.TrimSpace(blockFlags(b)), escapeMarkdown(b.Preview))
	}
	if ec.Truncated {
		output.WriteString("\n_Block list truncated._\n")
	}
	return output.String(), nil
}

func (cmf *ContextMarkdownFormatter) SupportedType() string {
	return typeExplanationContext
}

func blockFlags(b types.BlockSummary) string {
	var flags []string
	if b.InTable {
		flags = append(flags, "table")
	}
	if b.InTextBox {
		flags = append(flags, "textbox")
	}
	if !b.Mapped {
		flags = append(flags, "unmapped")
	}
	if len(flags) == 0 {
		return ""
	}
	return " " + strings.Join(flags, ",")
}

// FontsTextFormatter handles text formatting for font reports
type FontsTextFormatter struct{}

func (ftf *FontsTextFormatter) Format(data any) (string, error) {
	report, ok := data.(fonts.Report)
	if !ok {
		return "", fmt.Errorf("expected font Report, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== FONTS (%d families) ===\n\n", report.Count())
	for _, f := range report.Families {
		fmt.Fprintf(&output, "%-24s %-12s %s\n", f.Name, f.Category, strings.Join(f.Raw, ", "))
	}
	if len(report.Ignored) > 0 {
		fmt.Fprintf(&output, "\nIgnored: %s\n", strings.Join(report.Ignored, ", "))
	}
	return output.String(), nil
}

func (ftf *FontsTextFormatter) SupportedType() string {
	return typeFontReport
}

// FontsMarkdownFormatter handles markdown formatting for font reports
type FontsMarkdownFormatter struct{}

func (fmf *FontsMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(fonts.Report)
	if !ok {
		return "", fmt.Errorf("expected font Report, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Fonts (%d families)\n\n| Family | Category | Embedded names |\n|---|---|---|\n", report.Count())
	for _, f := range report.Families {
		fmt.Fprintf(&output, "| %s | %s | %s |\n", f.Name, f.Category, escapeMarkdown(strings.Join(f.Raw, ", ")))
	}
	return output.String(), nil
}

func (fmf *FontsMarkdownFormatter) SupportedType() string {
	return typeFontReport
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
