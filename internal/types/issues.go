package types

import "time"

// Severity ranks how badly an issue affects ATS parsing
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; higher is worse. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Section is the resume section an issue belongs to
type Section string

const (
	SectionContact        Section = "contact"
	SectionSkills         Section = "skills"
	SectionExperience     Section = "experience"
	SectionEducation      Section = "education"
	SectionCertifications Section = "certifications"
	SectionGeneral        Section = "general"
)

// IssueCode is the stable identifier of an issue kind
type IssueCode string

const (
	CodeDocumentUnreadable          IssueCode = "document_unreadable"
	CodeScannedPDF                  IssueCode = "scanned_pdf"
	CodeContactEmailInHeaderFooter  IssueCode = "contact_email_in_header_footer"
	CodeContactPhoneInHeaderFooter  IssueCode = "contact_phone_in_header_footer"
	CodeContactLinkedInHeaderFooter IssueCode = "contact_linkedin_in_header_footer"
	CodeContactMissing              IssueCode = "contact_missing"
	CodeSkillsNoSection             IssueCode = "skills_no_section"
	CodeSkillsSectionUnreadable     IssueCode = "skills_section_unreadable"
	CodeSkillsPartiallyExtracted    IssueCode = "skills_partially_extracted"
	CodeSkillsInTable               IssueCode = "skills_in_table"
	CodeSkillsInSidebar             IssueCode = "skills_in_sidebar"
	CodeExperienceNotExtracted      IssueCode = "experience_not_extracted"
	CodeExperienceNoBullets         IssueCode = "experience_no_bullets"
	CodeExperienceIncomplete        IssueCode = "experience_incomplete"
	CodeExperienceInColumns         IssueCode = "experience_in_columns"
	CodeEducationNotExtracted       IssueCode = "education_not_extracted"
	CodeEducationIncomplete         IssueCode = "education_incomplete"
	CodeImageContent                IssueCode = "image_content"
	CodeIconUsage                   IssueCode = "icon_usage"
	CodeDateApostropheYear          IssueCode = "date_format_apostrophe_year"
	CodeDateYearOnly                IssueCode = "date_format_year_only"
	CodeDateSingleDigitMonth        IssueCode = "date_format_single_digit_month"
	CodeDateFullDate                IssueCode = "date_format_full_date"
	CodeDateDayIncluded             IssueCode = "date_format_day_included"
	CodeDecorativeFont              IssueCode = "decorative_font"
	CodeUncommonFont                IssueCode = "uncommon_font"
	CodeTooManyFonts                IssueCode = "too_many_fonts"
	CodeFloatingTextBox             IssueCode = "floating_text_box"
	CodeUnmappedContent             IssueCode = "unmapped_content"
	CodeLayoutComplexity            IssueCode = "layout_complexity"
	CodeMultiColumnLayout           IssueCode = "multi_column_layout"
	CodeExtensiveTableUsage         IssueCode = "extensive_table_usage"
	CodeExcessiveHeaderFooter       IssueCode = "excessive_header_footer"
)

var allIssueCodes = []IssueCode{
	CodeDocumentUnreadable,
	CodeScannedPDF,
	CodeContactEmailInHeaderFooter,
	CodeContactPhoneInHeaderFooter,
	CodeContactLinkedInHeaderFooter,
	CodeContactMissing,
	CodeSkillsNoSection,
	CodeSkillsSectionUnreadable,
	CodeSkillsPartiallyExtracted,
	CodeSkillsInTable,
	CodeSkillsInSidebar,
	CodeExperienceNotExtracted,
	CodeExperienceNoBullets,
	CodeExperienceIncomplete,
	CodeExperienceInColumns,
	CodeEducationNotExtracted,
	CodeEducationIncomplete,
	CodeImageContent,
	CodeIconUsage,
	CodeDateApostropheYear,
	CodeDateYearOnly,
	CodeDateSingleDigitMonth,
	CodeDateFullDate,
	CodeDateDayIncluded,
	CodeDecorativeFont,
	CodeUncommonFont,
	CodeTooManyFonts,
	CodeFloatingTextBox,
	CodeUnmappedContent,
	CodeLayoutComplexity,
	CodeMultiColumnLayout,
	CodeExtensiveTableUsage,
	CodeExcessiveHeaderFooter,
}

// AllIssueCodes returns every known issue code in declaration order
func AllIssueCodes() []IssueCode {
	out := make([]IssueCode, len(allIssueCodes))
	copy(out, allIssueCodes)
	return out
}

// ATSIssue is a single diagnosed problem. BBox is set if and only if the
// issue can be pinned to a spot on a page.
type ATSIssue struct {
	Code         IssueCode `json:"code"`
	Severity     Severity  `json:"severity"`
	Section      Section   `json:"section"`
	Message      string    `json:"message"`
	Details      []string  `json:"details,omitempty"`
	Tooltip      string    `json:"tooltip,omitempty"`
	Page         int       `json:"page"`
	BBox         *Rect     `json:"bbox,omitempty"`
	BlockIndex   int       `json:"blockIndex"` // -1 when not tied to a block
	LocationHint string    `json:"locationHint,omitempty"`
}

// Localizable reports whether the issue can be drawn as a highlight
func (i ATSIssue) Localizable() bool {
	return i.BBox != nil
}

// Highlight is the overlay record for a localizable issue
type Highlight struct {
	Page     int       `json:"page"`
	BBox     Rect      `json:"bbox"`
	Severity Severity  `json:"severity"`
	Code     IssueCode `json:"code"`
	Message  string    `json:"message"`
	Tooltip  string    `json:"tooltip"`
}

// Summary counts issues per severity
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// ComplexityMetric scores layout complexity; higher is worse
type ComplexityMetric struct {
	Score   float64  `json:"score"`
	Label   string   `json:"label"`
	Factors []string `json:"factors"`
}

// ContentCoverageMetric measures how much of the visible text the parser captured
type ContentCoverageMetric struct {
	TotalBlocks    int     `json:"totalBlocks"`
	MappedBlocks   int     `json:"mappedBlocks"`
	UnmappedBlocks int     `json:"unmappedBlocks"`
	Score          float64 `json:"score"`
}

// StructureMetric scores the presence of the standard resume sections
type StructureMetric struct {
	HasContact      bool     `json:"hasContact"`
	HasEmail        bool     `json:"hasEmail"`
	HasPhone        bool     `json:"hasPhone"`
	HasExperience   bool     `json:"hasExperience"`
	HasEducation    bool     `json:"hasEducation"`
	HasSkills       bool     `json:"hasSkills"`
	ExperienceCount int      `json:"experienceCount"`
	EducationCount  int      `json:"educationCount"`
	SkillsCount     int      `json:"skillsCount"`
	Missing         []string `json:"missing"`
	Score           float64  `json:"score"`
}

// Metrics bundles the quantitative scores of an analysis
type Metrics struct {
	Complexity ComplexityMetric      `json:"complexity"`
	Coverage   ContentCoverageMetric `json:"coverage"`
	Structure  StructureMetric       `json:"structure"`
	Overall    float64               `json:"overall"`
}

// SectionStatus is the health of a single resume section
type SectionStatus string

const (
	StatusPerfect    SectionStatus = "perfect"
	StatusGood       SectionStatus = "good"
	StatusIssues     SectionStatus = "issues"
	StatusMissing    SectionStatus = "missing"
	StatusNotPresent SectionStatus = "not_present"
)

// SectionReport describes one resume section
type SectionReport struct {
	Section    Section       `json:"section"`
	Status     SectionStatus `json:"status"`
	ItemCount  int           `json:"itemCount"`
	IssueCount int           `json:"issueCount"`
	IssueCodes []IssueCode   `json:"issueCodes,omitempty"`
}

// SectionSummary is the per-section overview of an analysis
type SectionSummary struct {
	Overall       string          `json:"overall"` // good, needs_improvement or critical
	Sections      []SectionReport `json:"sections"`
	FieldWarnings []string        `json:"fieldWarnings,omitempty"`
}

// AnalysisResult is the full output of one analysis
type AnalysisResult struct {
	ID              string             `json:"id"`
	Highlights      []Highlight        `json:"highlights"`
	Summary         Summary            `json:"summary"`
	Recommendations []string           `json:"recommendations"`
	Issues          []string           `json:"issues"`
	Details         []ATSIssue         `json:"details"`
	Metrics         Metrics            `json:"metrics"`
	Sections        *SectionSummary    `json:"sections,omitempty"`
	Diagnostics     *LayoutDiagnostics `json:"diagnostics,omitempty"`
	Message         string             `json:"message,omitempty"`
	AnalyzedAt      time.Time          `json:"analyzedAt"`
}

// BlockSummary is a condensed view of a block for downstream readers
type BlockSummary struct {
	Index     int    `json:"index"`
	Page      int    `json:"page"`
	Region    Region `json:"region"`
	Column    int    `json:"column"`
	InTable   bool   `json:"inTable,omitempty"`
	InTextBox bool   `json:"inTextBox,omitempty"`
	Mapped    bool   `json:"mapped"`
	Preview   string `json:"preview"`
}

// ExplanationContext is everything a downstream explainer needs to answer
// questions about an analysis without re-reading the document.
type ExplanationContext struct {
	AnalysisID string         `json:"analysisId"`
	Issues     []ATSIssue     `json:"issues"`
	Metrics    Metrics        `json:"metrics"`
	Blocks     []BlockSummary `json:"blocks"`
	Truncated  bool           `json:"truncated"`
}
