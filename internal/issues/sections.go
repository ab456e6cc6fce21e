package issues

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"atslens/internal/matcher"
	"atslens/internal/sections"
	"atslens/internal/types"
)

// Section detection thresholds
const (
	SkillsSectionBlocks = 5
	MinExtractedSkills  = 3
	SectionEndMaxChars  = 40
	SidebarStartRatio   = 0.6
	NarrowColumnRatio   = 0.4
	MaxCommas           = 5
)

var (
	skillHeaders      = []string{"skills", "technical skills", "core competencies", "technologies", "expertise", "proficiencies", "tools", "technical"}
	experienceHeaders = []string{"experience", "work experience", "employment", "work history", "professional experience", "career"}
	educationHeaders  = []string{"education", "academic", "academic background", "qualifications"}

	experienceEnds  = []string{"education", "skills", "projects", "certifications", "awards"}
	educationEnds   = []string{"experience", "skills", "projects", "certifications", "awards"}
	experienceWords = []string{"experience", "work history", "employment", "position", "role"}
)

// Formatting causes reported with section extraction failures
const (
	CauseTable        = "Content in table/grid format"
	CauseSidebar      = "Content in sidebar/secondary column"
	CauseNarrow       = "Content in narrow column"
	CausePipes        = "Pipe separators used (|)"
	CauseCommas       = "Comma-separated format"
	causeRegionFormat = "Content in %s region"
)

// isHeaderFor reports whether the first line of text is one of headers,
// either alone or introducing inline content ("Skills: Go, SQL")
func isHeaderFor(text string, headers []string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	t := strings.ToLower(strings.TrimSpace(first))
	bare := strings.TrimSpace(strings.TrimRight(t, ":"))
	for _, h := range headers {
		if bare == h || strings.Contains(t, h+":") {
			return true
		}
	}
	return false
}

func findHeader(blocks []types.TextBlock, headers []string) int {
	for i, b := range blocks {
		if isHeaderFor(b.Text, headers) {
			return i
		}
	}
	return -1
}

// sectionBody collects the blocks after a header until a short block naming
// another section
func sectionBody(blocks []types.TextBlock, header int, ends []string) []types.TextBlock {
	var body []types.TextBlock
	for _, b := range blocks[header+1:] {
		t := strings.ToLower(strings.TrimSpace(b.Text))
		if utf8.RuneCountInString(t) <= SectionEndMaxChars && containsAny(t, ends) {
			break
		}
		body = append(body, b)
	}
	return body
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// diagnoseFormatting explains why a section's content may not have been
// extracted. The first block decides sidebar and narrow-column placement.
func (in *Input) diagnoseFormatting(blocks []types.TextBlock) []string {
	causes := []string{}
	if len(blocks) == 0 {
		return causes
	}

	for _, b := range blocks {
		if b.InTable {
			causes = append(causes, CauseTable)
			break
		}
	}

	first := blocks[0]
	width := in.pageWidth(first.Page)
	switch {
	case first.BBox.X0 > width*SidebarStartRatio:
		causes = append(causes, CauseSidebar)
	case first.BBox.Width() < width*NarrowColumnRatio:
		causes = append(causes, CauseNarrow)
	}

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	joined := strings.Join(texts, " ")
	if strings.Contains(joined, "|") {
		causes = append(causes, CausePipes)
	}
	if strings.Count(joined, ",") > MaxCommas {
		causes = append(causes, CauseCommas)
	}

	for _, b := range blocks {
		if b.IsHeaderFooter() {
			causes = append(causes, fmt.Sprintf(causeRegionFormat, b.Region))
			break
		}
	}
	return causes
}

func detectSkills(in *Input) []types.ATSIssue {
	f := in.fields()
	blocks := in.Layout.Blocks
	var out []types.ATSIssue

	out = append(out, skillsInTables(blocks, f.Skills)...)

	h := findHeader(blocks, skillHeaders)
	if h < 0 {
		if len(f.Skills) == 0 {
			out = append(out, docIssue(types.CodeSkillsNoSection, types.SeverityHigh, types.SectionSkills, "No dedicated Skills section detected"))
		}
		return out
	}

	header := blocks[h]
	content := skillsContent(blocks, h)
	causes := in.diagnoseFormatting(content)

	switch n := len(f.Skills); {
	case n == 0:
		issue := blockIssue(types.CodeSkillsSectionUnreadable, types.SeverityCritical, types.SectionSkills,
			"Skills section not extracted by ATS", header)
		issue.Details = causes
		out = append(out, issue)
	case n < MinExtractedSkills && len(causes) > 0:
		issue := blockIssue(types.CodeSkillsPartiallyExtracted, types.SeverityHigh, types.SectionSkills,
			fmt.Sprintf("Only %d skill(s) extracted by ATS", n), header)
		issue.Details = causes
		out = append(out, issue)
	}

	if len(f.Skills) > 0 && (header.Column >= 2 || header.BBox.X0 > in.pageWidth(header.Page)*SidebarStartRatio) {
		out = append(out, blockIssue(types.CodeSkillsInSidebar, types.SeverityMedium, types.SectionSkills, "Skills in sidebar column", header))
	}
	return out
}

// skillsContent is the header's inline content, if any, plus up to five
// following blocks that are not themselves section headers
func skillsContent(blocks []types.TextBlock, h int) []types.TextBlock {
	var content []types.TextBlock
	text := strings.TrimSpace(blocks[h].Text)
	if _, inline, _ := strings.Cut(text, ":"); strings.TrimSpace(inline) != "" || strings.Contains(text, "\n") {
		content = append(content, blocks[h])
	}
	for _, b := range blocks[h+1 : min(h+1+SkillsSectionBlocks, len(blocks))] {
		if matcher.IsSectionHeader(b.Text) {
			break
		}
		content = append(content, b)
	}
	if len(content) == 0 {
		content = append(content, blocks[h])
	}
	return content
}

func skillsInTables(blocks []types.TextBlock, skills []string) []types.ATSIssue {
	if len(skills) == 0 {
		return nil
	}
	needles := make([]string, 0, len(skills))
	for _, s := range skills {
		if n := matcher.Normalize(s); n != "" {
			needles = append(needles, n)
		}
	}

	var out []types.ATSIssue
	for _, b := range blocks {
		if b.InTable && containsAny(matcher.Normalize(b.Text), needles) {
			out = append(out, blockIssue(types.CodeSkillsInTable, types.SeverityMedium, types.SectionSkills, "Skills in table/grid", b))
		}
	}
	return out
}

func detectExperience(in *Input) []types.ATSIssue {
	f := in.fields()
	blocks := in.Layout.Blocks
	var out []types.ATSIssue

	if len(f.Experience) > 0 {
		for _, b := range blocks {
			if b.Column >= 2 && containsAny(strings.ToLower(b.Text), experienceWords) {
				out = append(out, blockIssue(types.CodeExperienceInColumns, types.SeverityHigh, types.SectionExperience,
					"Experience in multi-column layout", b))
				break
			}
		}
	}

	h := findHeader(blocks, experienceHeaders)
	var body []types.TextBlock
	if h >= 0 {
		body = sectionBody(blocks, h, experienceEnds)
	}

	if len(f.Experience) == 0 {
		if h >= 0 && len(body) > 0 {
			issue := blockIssue(types.CodeExperienceNotExtracted, types.SeverityCritical, types.SectionExperience,
				"Experience section not extracted by ATS", blocks[h])
			issue.Details = in.diagnoseFormatting(body)
			out = append(out, issue)
		}
		return out
	}

	noBullets, incomplete := 0, 0
	for _, e := range f.Experience {
		if len(e.Highlights) == 0 {
			noBullets++
		}
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Company) == "" {
			incomplete++
		}
	}

	if noBullets > 0 {
		issue := docIssue(types.CodeExperienceNoBullets, types.SeverityHigh, types.SectionExperience,
			fmt.Sprintf("%d job(s) missing bullet points", noBullets))
		localize(&issue, firstOf(body))
		out = append(out, issue)
	}

	warnings := sections.Validate(f).Experience
	if incomplete > 0 || len(warnings) > 0 {
		issue := docIssue(types.CodeExperienceIncomplete, types.SeverityHigh, types.SectionExperience,
			fmt.Sprintf("%d job(s) missing title or company", incomplete))
		if incomplete == 0 {
			issue.Message = "Some job entries look misclassified"
		}
		issue.Details = warnings
		localize(&issue, firstOf(body))
		out = append(out, issue)
	}
	return out
}

func detectEducation(in *Input) []types.ATSIssue {
	f := in.fields()
	blocks := in.Layout.Blocks

	h := findHeader(blocks, educationHeaders)
	var body []types.TextBlock
	if h >= 0 {
		body = sectionBody(blocks, h, educationEnds)
	}

	if len(f.Education) == 0 {
		if h < 0 || len(body) == 0 {
			return nil
		}
		issue := blockIssue(types.CodeEducationNotExtracted, types.SeverityCritical, types.SectionEducation,
			"Education not extracted by ATS", blocks[h])
		issue.Details = in.diagnoseFormatting(body)
		return []types.ATSIssue{issue}
	}

	incomplete := 0
	for _, e := range f.Education {
		if strings.TrimSpace(e.Degree) == "" || strings.TrimSpace(e.Institution) == "" {
			incomplete++
		}
	}
	warnings := sections.Validate(f).Education
	if incomplete == 0 && len(warnings) == 0 {
		return nil
	}
	issue := docIssue(types.CodeEducationIncomplete, types.SeverityMedium, types.SectionEducation,
		fmt.Sprintf("%d education entry(ies) incomplete", incomplete))
	if incomplete == 0 {
		issue.Message = "Some education entries look truncated"
	}
	issue.Details = warnings
	localize(&issue, firstOf(body))
	return []types.ATSIssue{issue}
}

func firstOf(blocks []types.TextBlock) *types.TextBlock {
	if len(blocks) == 0 {
		return nil
	}
	return &blocks[0]
}
