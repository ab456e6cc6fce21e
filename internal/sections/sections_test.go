package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/types"
)

func fullFields() *types.ParsedFields {
	return &types.ParsedFields{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Phone:      "555-123-4567",
		Skills:     []string{"Go", "SQL", "Kubernetes"},
		Experience: []types.ExperienceEntry{{Title: "Engineer", Company: "Acme", Highlights: []string{"Shipped"}}},
		Education:  []types.EducationEntry{{Degree: "BSc", Institution: "State University"}},
	}
}

func statuses(s *types.SectionSummary) map[types.Section]types.SectionStatus {
	out := make(map[types.Section]types.SectionStatus)
	for _, r := range s.Sections {
		out[r.Section] = r.Status
	}
	return out
}

func TestSummarizeClean(t *testing.T) {
	s := Summarize(fullFields(), nil)

	assert.Equal(t, OverallGood, s.Overall)
	assert.Len(t, s.Sections, 4, "certifications are omitted when absent")
	for _, r := range s.Sections {
		assert.Equal(t, types.StatusPerfect, r.Status, r.Section)
	}
}

func TestSummarizeStatuses(t *testing.T) {
	f := fullFields()
	f.Education = nil
	f.Certifications = []types.CertificationEntry{{Name: "CKA"}}

	list := []types.ATSIssue{
		{Code: types.CodeSkillsInTable, Severity: types.SeverityMedium, Section: types.SectionSkills},
		{Code: types.CodeExperienceNoBullets, Severity: types.SeverityHigh, Section: types.SectionExperience},
		{Code: types.CodeExperienceNoBullets, Severity: types.SeverityHigh, Section: types.SectionExperience},
	}
	s := Summarize(f, list)

	got := statuses(s)
	assert.Equal(t, types.StatusPerfect, got[types.SectionContact])
	assert.Equal(t, types.StatusGood, got[types.SectionSkills])
	assert.Equal(t, types.StatusIssues, got[types.SectionExperience])
	assert.Equal(t, types.StatusMissing, got[types.SectionEducation])
	assert.Equal(t, types.StatusPerfect, got[types.SectionCertifications])
	assert.Equal(t, OverallNeedsImprovement, s.Overall)

	for _, r := range s.Sections {
		if r.Section == types.SectionExperience {
			assert.Equal(t, 2, r.IssueCount)
			assert.Equal(t, []types.IssueCode{types.CodeExperienceNoBullets}, r.IssueCodes)
		}
	}
}

func TestSummarizeCritical(t *testing.T) {
	s := Summarize(nil, nil)
	assert.Equal(t, OverallCritical, s.Overall)
	for _, r := range s.Sections {
		assert.Equal(t, types.StatusMissing, r.Status)
	}
}

func TestValidate(t *testing.T) {
	f := &types.ParsedFields{
		Experience: []types.ExperienceEntry{
			{Title: "GPA 3.9", Company: "State University"},
			{Title: "Engineer", Company: "AB"},
			{},
			{Title: "Software Engineer", Company: "Acme Corp"},
		},
		Education: []types.EducationEntry{
			{Degree: "BSc", Institution: "MI"},
			{Degree: "MSc", Institution: "Tech Institute"},
		},
	}

	w := Validate(f)
	require.Len(t, w.Experience, 3)
	assert.Contains(t, w.Experience[0], "education-related")
	assert.Contains(t, w.Experience[1], "too short")
	assert.Contains(t, w.Experience[2], "missing title and company")
	require.Len(t, w.Education, 1)
	assert.Contains(t, w.Education[0], "Education entry 1")
	assert.Len(t, w.All(), 4)

	assert.Empty(t, Validate(nil).All())
}
