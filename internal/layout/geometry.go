package layout

import (
	"math"
	"sort"

	"atslens/internal/types"
)

// Heuristic thresholds. They were tuned on real resumes and can be
// recalibrated without touching the algorithms.
const (
	// ColumnGapRatio is the horizontal jump, as a fraction of page width,
	// between consecutive left edges that starts a new column.
	ColumnGapRatio = 0.20

	// RowTolerance is the y0 distance in points within which blocks share a row.
	RowTolerance = 5.0

	// MinTableRowBlocks is the smallest row that can be a table row.
	MinTableRowBlocks = 3

	// TableGapDeviation is the allowed deviation of each x0 gap from the
	// row's average gap, as a fraction of that average.
	TableGapDeviation = 0.5

	// TextBoxMaxWidthRatio and TextBoxMarginRatio describe a floating box:
	// narrow, with clear space on both sides.
	TextBoxMaxWidthRatio = 0.30
	TextBoxMarginRatio   = 0.15

	// HeaderBandRatio and FooterBandRatio bound the page regions.
	HeaderBandRatio = 0.10
	FooterBandRatio = 0.90
)

// ColumnBoundaries returns the left edges at which a new column starts,
// scanning the given x0 values in ascending order. The first column has no
// boundary.
func ColumnBoundaries(xs []float64, pageWidth float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	gap := pageWidth * ColumnGapRatio
	var bounds []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] > gap {
			bounds = append(bounds, sorted[i])
		}
	}
	return bounds
}

// ColumnFor returns the 1-based column of a left edge. An edge that sits
// exactly on a boundary belongs to the later column.
func ColumnFor(x0 float64, bounds []float64) int {
	col := 1
	for _, b := range bounds {
		if x0 >= b {
			col++
		}
	}
	return col
}

// assignColumns derives column boundaries from the left edges of every
// block on the page, table cells included.
func assignColumns(blocks []types.TextBlock, pageWidth float64) {
	xs := make([]float64, 0, len(blocks))
	for _, b := range blocks {
		xs = append(xs, b.BBox.X0)
	}

	bounds := ColumnBoundaries(xs, pageWidth)
	for i := range blocks {
		blocks[i].Column = ColumnFor(blocks[i].BBox.X0, bounds)
	}
}

// GroupRows groups block indexes into rows by y0 proximity. Each row is
// anchored on its topmost block and sorted left to right.
func GroupRows(blocks []types.TextBlock) [][]int {
	order := make([]int, len(blocks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return blocks[order[i]].BBox.Y0 < blocks[order[j]].BBox.Y0
	})

	var rows [][]int
	var current []int
	anchor := 0.0
	for _, idx := range order {
		y := blocks[idx].BBox.Y0
		if len(current) > 0 && math.Abs(y-anchor) <= RowTolerance {
			current = append(current, idx)
			continue
		}
		if len(current) > 0 {
			rows = append(rows, current)
		}
		current = []int{idx}
		anchor = y
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return blocks[row[i]].BBox.X0 < blocks[row[j]].BBox.X0
		})
	}
	return rows
}

// IsTableRow reports whether left edges, sorted ascending, are spaced evenly
// enough to be the cells of a table row.
func IsTableRow(xs []float64) bool {
	if len(xs) < MinTableRowBlocks {
		return false
	}
	gaps := make([]float64, 0, len(xs)-1)
	sum := 0.0
	for i := 1; i < len(xs); i++ {
		g := xs[i] - xs[i-1]
		gaps = append(gaps, g)
		sum += g
	}
	avg := sum / float64(len(gaps))
	if avg <= 0 {
		return false
	}
	for _, g := range gaps {
		if math.Abs(g-avg) >= TableGapDeviation*avg {
			return false
		}
	}
	return true
}

// markTables flags table rows in place and returns the number of tables,
// counting each run of consecutive table rows once.
func markTables(blocks []types.TextBlock) int {
	tables := 0
	prevWasTable := false
	for _, row := range GroupRows(blocks) {
		xs := make([]float64, len(row))
		for i, idx := range row {
			xs[i] = blocks[idx].BBox.X0
		}
		if !IsTableRow(xs) {
			prevWasTable = false
			continue
		}
		for _, idx := range row {
			blocks[idx].InTable = true
		}
		if !prevWasTable {
			tables++
		}
		prevWasTable = true
	}
	return tables
}

// IsTextBox reports whether a block floats: narrow with wide margins on both sides
func IsTextBox(r types.Rect, pageWidth float64) bool {
	if pageWidth <= 0 {
		return false
	}
	return r.Width() < pageWidth*TextBoxMaxWidthRatio &&
		r.X0 > pageWidth*TextBoxMarginRatio &&
		pageWidth-r.X1 > pageWidth*TextBoxMarginRatio
}

// RegionOf places a block in the header band, footer band or body
func RegionOf(r types.Rect, pageHeight float64) types.Region {
	switch {
	case pageHeight <= 0:
		return types.RegionBody
	case r.Y0 < pageHeight*HeaderBandRatio:
		return types.RegionHeader
	case r.Y1 > pageHeight*FooterBandRatio:
		return types.RegionFooter
	default:
		return types.RegionBody
	}
}
