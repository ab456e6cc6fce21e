package issues

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/types"
)

func TestScannedThreshold(t *testing.T) {
	tests := []struct {
		chars    int
		images   int
		expected int
	}{
		{99, 1, 1},
		{100, 1, 0},
		{0, 0, 0},
		{20, 3, 1},
	}
	for _, tt := range tests {
		l := newLayout()
		l.TotalChars = tt.chars
		for range tt.images {
			l.Images = append(l.Images, types.ImageBox{Page: 1, BBox: &types.Rect{X1: 600, Y1: 780}})
		}
		got := withCode(DefaultRegistry(nil).Run(NewInput(l, goodFields(), nil)), types.CodeScannedPDF)
		require.Len(t, got, tt.expected, "chars=%d images=%d", tt.chars, tt.images)
		if tt.expected == 1 {
			assert.Equal(t, types.SeverityCritical, got[0].Severity)
			assert.Equal(t, 1, got[0].Page)
			assert.False(t, got[0].Localizable())
		}
	}
}

func TestContactEmailInFooter(t *testing.T) {
	footer := blk(1, "Contact: jane@example.com", 72, 760, 300, 775)
	footer.Region = types.RegionFooter
	l := newLayout(blk(0, "Jane Doe", 72, 100, 200, 120), footer)
	fields := &types.ParsedFields{Name: "Jane Doe"}

	got := withCode(DefaultRegistry(nil).Run(NewInput(l, fields, nil)), types.CodeContactEmailInHeaderFooter)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)
	require.NotNil(t, got[0].BBox)
	assert.Equal(t, footer.BBox, *got[0].BBox)
	assert.Equal(t, 1, got[0].BlockIndex)
	assert.Equal(t, "page 1, footer region, column 1", got[0].LocationHint)

	assert.Empty(t, withCode(detectContact(NewInput(l, fields, nil)), types.CodeContactMissing),
		"a visible email means contact info exists")
}

func TestContactExtractedValuesAreNotFlagged(t *testing.T) {
	header := blk(0, "JANE@EXAMPLE.COM  555.123.4567  linkedin.com/in/janedoe", 72, 20, 540, 40)
	header.Region = types.RegionHeader
	l := newLayout(header)

	t.Run("all extracted", func(t *testing.T) {
		f := goodFields()
		f.LinkedIn = "https://www.linkedin.com/in/janedoe"
		assert.Empty(t, detectContact(NewInput(l, f, nil)))
	})

	t.Run("nothing extracted", func(t *testing.T) {
		got := detectContact(NewInput(l, &types.ParsedFields{}, nil))
		require.Len(t, got, 3)
		assert.Equal(t, types.CodeContactEmailInHeaderFooter, got[0].Code)
		assert.Equal(t, types.CodeContactPhoneInHeaderFooter, got[1].Code)
		assert.Equal(t, types.SeverityHigh, got[1].Severity)
		assert.Equal(t, types.CodeContactLinkedInHeaderFooter, got[2].Code)
		assert.Equal(t, types.SeverityMedium, got[2].Severity)
	})

	t.Run("body text is ignored", func(t *testing.T) {
		body := header
		body.Region = types.RegionBody
		assert.Empty(t, detectContact(NewInput(newLayout(body), &types.ParsedFields{}, nil)))
	})
}

func TestContactMissing(t *testing.T) {
	l := newLayout(blk(0, "Jane Doe", 72, 100, 200, 120))
	got := detectContact(NewInput(l, &types.ParsedFields{Name: "Jane Doe"}, nil))
	require.Len(t, got, 1)
	assert.Equal(t, types.CodeContactMissing, got[0].Code)
	assert.Equal(t, types.SeverityHigh, got[0].Severity)
}

func skillsGrid() *types.Layout {
	cells := []types.TextBlock{
		blk(1, "Go, Python", 100, 330, 200, 345),
		blk(2, "Docker", 250, 330, 350, 345),
		blk(3, "Terraform", 400, 330, 500, 345),
	}
	for i := range cells {
		cells[i].InTable = true
	}
	return newLayout(append([]types.TextBlock{blk(0, "SKILLS", 72, 300, 140, 315)}, cells...)...)
}

func TestSkillsSectionInTableUnreadable(t *testing.T) {
	l := skillsGrid()
	fields := goodFields()
	fields.Skills = nil

	got := withCode(DefaultRegistry(nil).Run(NewInput(l, fields, nil)), types.CodeSkillsSectionUnreadable)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)
	assert.Contains(t, strings.Join(got[0].Details, "\n"), "table/grid format")
	assert.Equal(t, l.Blocks[0].BBox, *got[0].BBox)
}

func TestSkillsDetectors(t *testing.T) {
	t.Run("no section", func(t *testing.T) {
		got := detectSkills(NewInput(newLayout(blk(0, "Jane Doe", 72, 40, 200, 60)), &types.ParsedFields{}, nil))
		require.Len(t, got, 1)
		assert.Equal(t, types.CodeSkillsNoSection, got[0].Code)
		assert.Equal(t, "No dedicated Skills section detected", got[0].Message)
	})

	t.Run("no section but skills extracted", func(t *testing.T) {
		assert.Empty(t, detectSkills(NewInput(newLayout(blk(0, "Jane Doe", 72, 40, 200, 60)), goodFields(), nil)))
	})

	t.Run("partially extracted", func(t *testing.T) {
		f := goodFields()
		f.Skills = []string{"Go"}
		got := detectSkills(NewInput(skillsGrid(), f, nil))
		partial := withCode(got, types.CodeSkillsPartiallyExtracted)
		require.Len(t, partial, 1)
		assert.Equal(t, "Only 1 skill(s) extracted by ATS", partial[0].Message)
		assert.Len(t, withCode(got, types.CodeSkillsInTable), 1, "only the cell naming an extracted skill")
	})

	t.Run("sidebar", func(t *testing.T) {
		header := blk(0, "Technical Skills:", 420, 100, 560, 115)
		header.Column = 2
		got := detectSkills(NewInput(newLayout(header, blk(1, "Go", 420, 120, 560, 135)), goodFields(), nil))
		require.Len(t, got, 1)
		assert.Equal(t, types.CodeSkillsInSidebar, got[0].Code)
	})
}

func TestDiagnoseFormatting(t *testing.T) {
	in := NewInput(newLayout(), nil, nil)

	footer := blk(0, "Go | SQL | Docker, Kubernetes, AWS, GCP, Terraform, Ansible, Linux", 400, 760, 600, 780)
	footer.Region = types.RegionFooter
	footer.InTable = true
	assert.Equal(t, []string{CauseTable, CauseSidebar, CausePipes, CauseCommas, "Content in footer region"},
		in.diagnoseFormatting([]types.TextBlock{footer}))

	narrow := blk(0, "Go", 72, 100, 150, 115)
	assert.Equal(t, []string{CauseNarrow}, in.diagnoseFormatting([]types.TextBlock{narrow}))

	wide := blk(0, "Go and SQL", 72, 100, 540, 115)
	assert.Empty(t, in.diagnoseFormatting([]types.TextBlock{wide}))
	assert.Empty(t, in.diagnoseFormatting(nil))
}

func TestExperienceDetectors(t *testing.T) {
	l := newLayout(
		blk(0, "EXPERIENCE", 72, 100, 180, 115),
		blk(1, "Senior Engineer, Acme Corp", 72, 120, 400, 135),
		blk(2, "EDUCATION", 72, 300, 180, 315),
		blk(3, "BSc Computer Science, State University", 72, 320, 400, 335),
	)

	t.Run("not extracted", func(t *testing.T) {
		got := detectExperience(NewInput(l, &types.ParsedFields{}, nil))
		require.Len(t, got, 1)
		assert.Equal(t, types.CodeExperienceNotExtracted, got[0].Code)
		assert.Equal(t, types.SeverityCritical, got[0].Severity)
		assert.Equal(t, 0, got[0].BlockIndex)
	})

	t.Run("no bullets and incomplete", func(t *testing.T) {
		f := &types.ParsedFields{Experience: []types.ExperienceEntry{
			{Title: "Senior Engineer"},
			{Title: "Engineer", Company: "Beta Inc", Highlights: []string{"Shipped"}},
		}}
		got := detectExperience(NewInput(l, f, nil))
		require.Len(t, got, 2)
		assert.Equal(t, types.CodeExperienceNoBullets, got[0].Code)
		assert.Equal(t, "1 job(s) missing bullet points", got[0].Message)
		assert.Equal(t, 1, got[0].BlockIndex, "pinned to the first block of the section")
		assert.Equal(t, types.CodeExperienceIncomplete, got[1].Code)
	})

	t.Run("misclassified title", func(t *testing.T) {
		f := &types.ParsedFields{Experience: []types.ExperienceEntry{
			{Title: "Bachelor of Science", Company: "State University", Highlights: []string{"GPA 3.9"}},
		}}
		got := detectExperience(NewInput(l, f, nil))
		require.Len(t, got, 1)
		assert.Equal(t, types.CodeExperienceIncomplete, got[0].Code)
		require.Len(t, got[0].Details, 1)
		assert.Contains(t, got[0].Details[0], "education-related")
	})

	t.Run("in columns", func(t *testing.T) {
		side := blk(0, "Previous role: consultant", 420, 100, 560, 115)
		side.Column = 2
		f := &types.ParsedFields{Experience: []types.ExperienceEntry{{Title: "Engineer", Company: "Acme", Highlights: []string{"x"}}}}
		got := detectExperience(NewInput(newLayout(side), f, nil))
		require.Len(t, got, 1)
		assert.Equal(t, types.CodeExperienceInColumns, got[0].Code)
	})
}

func TestEducationDetectors(t *testing.T) {
	l := newLayout(
		blk(0, "Education", 72, 100, 180, 115),
		blk(1, "BSc Computer Science, State University", 72, 120, 400, 135),
	)

	got := detectEducation(NewInput(l, &types.ParsedFields{}, nil))
	require.Len(t, got, 1)
	assert.Equal(t, types.CodeEducationNotExtracted, got[0].Code)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)

	f := &types.ParsedFields{Education: []types.EducationEntry{{Degree: "BSc"}}}
	got = detectEducation(NewInput(l, f, nil))
	require.Len(t, got, 1)
	assert.Equal(t, types.CodeEducationIncomplete, got[0].Code)
	assert.Equal(t, types.SeverityMedium, got[0].Severity)

	f.Education[0].Institution = "State University"
	assert.Empty(t, detectEducation(NewInput(l, f, nil)))
}

func TestSectionBodyStopsAtNextSection(t *testing.T) {
	blocks := []types.TextBlock{
		blk(0, "EXPERIENCE", 0, 0, 1, 1),
		blk(1, "Built the skills matrix tooling used by every team in the engineering organisation", 0, 0, 1, 1),
		blk(2, "Skills", 0, 0, 1, 1),
		blk(3, "Go", 0, 0, 1, 1),
	}
	body := sectionBody(blocks, 0, experienceEnds)
	require.Len(t, body, 1, "long blocks mentioning a section word do not end the section")
	assert.Equal(t, 1, body[0].Index)
}

func TestImagesAndIcons(t *testing.T) {
	l := newLayout(blk(0, "Jane Doe", 72, 100, 200, 120))
	l.Images = []types.ImageBox{
		{Page: 1, BBox: &types.Rect{X0: 500, Y0: 30, X1: 520, Y1: 50}},
		{Page: 1, BBox: &types.Rect{X0: 530, Y0: 30, X1: 550, Y1: 50}},
		{Page: 1, BBox: &types.Rect{X0: 72, Y0: 400, X1: 540, Y1: 700}},
		{Page: 1},
	}

	images := detectImages(NewInput(l, goodFields(), nil))
	require.Len(t, images, 4)
	assert.Equal(t, 30.0, images[0].BBox.Y0)
	assert.Nil(t, images[3].BBox, "unplaced images are document-wide")

	assert.Empty(t, detectIcons(NewInput(l, goodFields(), nil)), "complete fields need no icon warning")

	f := goodFields()
	f.Phone = ""
	icons := detectIcons(NewInput(l, f, nil))
	require.Len(t, icons, 1, "once per page")
	assert.Equal(t, types.SeverityHigh, icons[0].Severity)
	assert.Equal(t, 500.0, icons[0].BBox.X0)
}

func TestDateFormats(t *testing.T) {
	tests := []struct {
		text  string
		code  types.IssueCode
		match string
	}{
		{"Acme Corp, Jan '21 - Present", types.CodeDateApostropheYear, "Jan '21"},
		{"Sept’19 to now", types.CodeDateApostropheYear, "Sept’19"},
		{"Acme Corp 2019 - 2021", types.CodeDateYearOnly, "2019 - 2021"},
		{"2019–2021 and later", types.CodeDateYearOnly, "2019–2021"},
		{"Started 1/2021", types.CodeDateSingleDigitMonth, "1/2021"},
		{"Hired 01/15/2021", types.CodeDateFullDate, "01/15/2021"},
		{"January 15, 2021", types.CodeDateDayIncluded, "January 15, 2021"},
		{"may 5th 2020", types.CodeDateDayIncluded, "may 5th 2020"},
		{"Jan '21 and 2019 - 2021", types.CodeDateApostropheYear, "Jan '21"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			code, match, ok := MatchDate(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.match, match)
		})
	}

	for _, clean := range []string{"Jan 2021 - Mar 2023", "01/2021 - Present", "2019 - 2021 (2 years)", "Team of 12"} {
		t.Run("clean "+clean, func(t *testing.T) {
			_, _, ok := MatchDate(clean)
			assert.False(t, ok)
		})
	}
}

func TestDetectDatesFirstMatchPerBlock(t *testing.T) {
	l := newLayout(blk(0, "Jan '21 - 03/04/2022", 72, 100, 400, 115))
	got := detectDates(NewInput(l, nil, nil))
	require.Len(t, got, 1)
	assert.Equal(t, types.CodeDateApostropheYear, got[0].Code)
	assert.Contains(t, got[0].Message, `"Jan '21"`)
	assert.Contains(t, got[0].Tooltip, `Found: "Jan '21"`)
	assert.Equal(t, types.SeverityMedium, got[0].Severity)
}

func TestFontDetectors(t *testing.T) {
	b := blk(0, "Jane Doe", 72, 40, 300, 70)
	b.Fonts = []string{"Papyrus"}
	l := newLayout(blk(1, "Body", 72, 100, 300, 120), b)
	l.Fonts = []string{"Papyrus", "Calibri", "Roboto", "Lato", "Montserrat"}

	got := detectFonts(NewInput(l, nil, nil))
	require.Len(t, got, 3)

	assert.Equal(t, types.CodeDecorativeFont, got[0].Code)
	assert.Equal(t, "Decorative font: papyrus", got[0].Message)
	require.NotNil(t, got[0].BBox)
	assert.Equal(t, 0, got[0].BlockIndex)

	assert.Equal(t, types.CodeUncommonFont, got[1].Code)
	assert.Equal(t, "Uncommon fonts: lato, montserrat, roboto", got[1].Message)

	assert.Equal(t, types.CodeTooManyFonts, got[2].Code)
	assert.Equal(t, types.SeverityLow, got[2].Severity)

	l.Fonts = []string{"ArialMT", "Calibri-Bold"}
	assert.Empty(t, detectFonts(NewInput(l, nil, nil)))
}

func TestTextBoxesAndUnmapped(t *testing.T) {
	box := blk(0, "Available immediately", 250, 300, 350, 320)
	box.InTextBox = true
	long := blk(1, "Hobbies include competitive sailing, amateur astronomy, landscape photography and restoring vintage motorcycles", 72, 400, 540, 430)
	l := newLayout(box, long)

	boxes := detectTextBoxes(NewInput(l, goodFields(), nil))
	require.Len(t, boxes, 1)
	assert.Equal(t, types.CodeFloatingTextBox, boxes[0].Code)

	unmapped := detectUnmapped(NewInput(l, goodFields(), nil))
	require.Len(t, unmapped, 1)
	assert.Equal(t, types.SeverityLow, unmapped[0].Severity)
	assert.Equal(t, `Content not captured by ATS: "Hobbies include competitive sailing, amateur astronomy, land..."`, unmapped[0].Message)
}

func TestDiagnosticsDetector(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	tests := []struct {
		score    float64
		severity types.Severity
		fires    bool
	}{
		{75, types.SeverityCritical, true},
		{70, types.SeverityHigh, true},
		{45, types.SeverityHigh, true},
		{25, types.SeverityMedium, true},
		{20, "", false},
	}
	for _, tt := range tests {
		got := withCode(detectFromDiagnostics(NewInput(newLayout(), nil, &types.LayoutDiagnostics{ComplexityMetric: score(tt.score)})), types.CodeLayoutComplexity)
		if !tt.fires {
			assert.Empty(t, got, "score %v", tt.score)
			continue
		}
		require.Len(t, got, 1, "score %v", tt.score)
		assert.Equal(t, tt.severity, got[0].Severity, "score %v", tt.score)
	}

	assert.Nil(t, detectFromDiagnostics(NewInput(newLayout(), nil, nil)))
}

func TestMultiColumnPerPage(t *testing.T) {
	side1 := blk(1, "Languages", 420, 100, 560, 115)
	side1.Column = 2
	side1b := blk(2, "Interests", 420, 200, 560, 215)
	side1b.Column = 2
	side2 := blk(4, "Awards", 420, 100, 560, 115)
	side2.Column = 2
	side2.Page = 2
	l := newLayout(blk(0, "Main", 72, 100, 300, 115), side1, side1b, blk(3, "Main two", 72, 100, 300, 115), side2)
	l.Pages = append(l.Pages, types.PageInfo{Number: 2, Width: 612, Height: 792})

	tests := []struct {
		ratio    float64
		severity types.Severity
	}{
		{0.5, types.SeverityHigh},
		{0.3, types.SeverityMedium},
		{0.15, types.SeverityLow},
	}
	for _, tt := range tests {
		d := &types.LayoutDiagnostics{HasMultiColumn: true, SecondaryColumnRatio: tt.ratio}
		got := withCode(detectFromDiagnostics(NewInput(l, nil, d)), types.CodeMultiColumnLayout)
		require.Len(t, got, 2)
		assert.Equal(t, tt.severity, got[0].Severity)
		assert.Equal(t, 1, got[0].BlockIndex)
		assert.Equal(t, 4, got[1].BlockIndex)
	}
}

func TestDiagnosticsFlags(t *testing.T) {
	cell := blk(0, "Go", 100, 300, 200, 315)
	cell.InTable = true
	footer := blk(1, "Page 1 of 2", 250, 770, 350, 785)
	footer.Region = types.RegionFooter
	l := newLayout(cell, footer)

	d := &types.LayoutDiagnostics{HasTables: true, HasHeadersFooters: true, HasImages: true, ImageCount: 1}
	got := detectFromDiagnostics(NewInput(l, nil, d))
	require.Len(t, got, 3)

	tables := withCode(got, types.CodeExtensiveTableUsage)
	require.Len(t, tables, 1)
	assert.Equal(t, 0, tables[0].BlockIndex)

	hf := withCode(got, types.CodeExcessiveHeaderFooter)
	require.Len(t, hf, 1)
	assert.Equal(t, 1, hf[0].BlockIndex)

	images := withCode(got, types.CodeImageContent)
	require.Len(t, images, 1)
	assert.Equal(t, types.SeverityHigh, images[0].Severity)
	assert.False(t, images[0].Localizable())
}
