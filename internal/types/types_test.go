package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectJSON(t *testing.T) {
	r := Rect{X0: 10, Y0: 20, X1: 110, Y1: 45.5}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[10,20,110,45.5]`, string(data))

	var back Rect
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)

	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"x0":1}`), &back))
}

func TestRectGeometry(t *testing.T) {
	r := Rect{X0: 100, Y0: 50, X1: 300, Y1: 150}
	assert.Equal(t, 200.0, r.Width())
	assert.Equal(t, 100.0, r.Height())
	assert.Equal(t, 20000.0, r.Area())
}

func TestSeverityRank(t *testing.T) {
	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(), "%s should outrank %s", ordered[i], ordered[i-1])
	}
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestAllIssueCodesUnique(t *testing.T) {
	seen := make(map[IssueCode]bool)
	for _, code := range AllIssueCodes() {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}

	codes := AllIssueCodes()
	codes[0] = "mutated"
	assert.Equal(t, CodeDocumentUnreadable, AllIssueCodes()[0])
}

func TestATSIssueLocalizable(t *testing.T) {
	assert.False(t, ATSIssue{}.Localizable())
	assert.True(t, ATSIssue{BBox: &Rect{}}.Localizable())
}
