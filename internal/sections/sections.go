// Package sections condenses an analysis into a per-section health report.
package sections

import (
	"slices"
	"strings"

	"atslens/internal/types"
)

// Overall statuses
const (
	OverallGood             = "good"
	OverallNeedsImprovement = "needs_improvement"
	OverallCritical         = "critical"
)

// Summarize reports every standard section. Certifications are listed only
// when the fields contain some.
func Summarize(f *types.ParsedFields, list []types.ATSIssue) *types.SectionSummary {
	if f == nil {
		f = &types.ParsedFields{}
	}
	bySection := make(map[types.Section][]types.ATSIssue)
	for _, i := range list {
		bySection[i.Section] = append(bySection[i.Section], i)
	}

	counts := []struct {
		section types.Section
		items   int
	}{
		{types.SectionContact, contactItems(f)},
		{types.SectionSkills, len(f.Skills)},
		{types.SectionExperience, len(f.Experience)},
		{types.SectionEducation, len(f.Education)},
		{types.SectionCertifications, len(f.Certifications)},
	}

	summary := &types.SectionSummary{
		Sections:      []types.SectionReport{},
		FieldWarnings: Validate(f).All(),
	}
	troubled := 0
	for _, c := range counts {
		r := report(c.section, c.items, bySection[c.section])
		if r.Status == types.StatusNotPresent {
			continue
		}
		if r.Status != types.StatusPerfect && r.Status != types.StatusGood {
			troubled++
		}
		summary.Sections = append(summary.Sections, r)
	}

	switch {
	case troubled == 0:
		summary.Overall = OverallGood
	case troubled <= 2:
		summary.Overall = OverallNeedsImprovement
	default:
		summary.Overall = OverallCritical
	}
	return summary
}

func contactItems(f *types.ParsedFields) int {
	n := 0
	for _, v := range []string{f.Name, f.Email, f.Phone} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

func report(section types.Section, items int, list []types.ATSIssue) types.SectionReport {
	r := types.SectionReport{Section: section, ItemCount: items, IssueCount: len(list)}
	worst := 0
	for _, i := range list {
		worst = max(worst, i.Severity.Rank())
		if !slices.Contains(r.IssueCodes, i.Code) {
			r.IssueCodes = append(r.IssueCodes, i.Code)
		}
	}

	switch {
	case items == 0 && section == types.SectionCertifications:
		r.Status = types.StatusNotPresent
	case items == 0:
		r.Status = types.StatusMissing
	case worst >= types.SeverityHigh.Rank():
		r.Status = types.StatusIssues
	case worst > 0:
		r.Status = types.StatusGood
	default:
		r.Status = types.StatusPerfect
	}
	return r
}
