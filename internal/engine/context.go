package engine

import (
	"strings"
	"unicode/utf8"

	"atslens/internal/types"
)

// Explanation context limits
const (
	DefaultContextBlocks = 200
	BlockPreviewChars    = 80
)

// ExplanationContext condenses an analysis for a downstream explainer: every
// issue, the metrics and up to maxBlocks block summaries in reading order.
// maxBlocks <= 0 selects DefaultContextBlocks.
func ExplanationContext(a *Analysis, maxBlocks int) types.ExplanationContext {
	if maxBlocks <= 0 {
		maxBlocks = DefaultContextBlocks
	}
	ec := types.ExplanationContext{
		Issues: []types.ATSIssue{},
		Blocks: []types.BlockSummary{},
	}
	if a == nil || a.Result == nil {
		return ec
	}
	ec.AnalysisID = a.Result.ID
	ec.Issues = a.Result.Details
	ec.Metrics = a.Result.Metrics
	if a.Layout == nil {
		return ec
	}

	unmapped := make(map[int]bool, len(a.Partition.Unmapped))
	for _, idx := range a.Partition.Unmapped {
		unmapped[idx] = true
	}

	blocks := a.Layout.Blocks
	if len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
		ec.Truncated = true
	}
	for _, b := range blocks {
		ec.Blocks = append(ec.Blocks, types.BlockSummary{
			Index:     b.Index,
			Page:      b.Page,
			Region:    b.Region,
			Column:    b.Column,
			InTable:   b.InTable,
			InTextBox: b.InTextBox,
			Mapped:    !unmapped[b.Index],
			Preview:   truncate(b.Text, BlockPreviewChars),
		})
	}
	return ec
}

func truncate(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
