package issues

import (
	"atslens/internal/types"
)

var recommendations = map[types.IssueCode]string{
	types.CodeDocumentUnreadable: "Re-export the resume as a standard text-based PDF and upload it again",
	types.CodeScannedPDF:         "Convert scanned/image PDF to text-based PDF by exporting from your original document editor",

	types.CodeContactEmailInHeaderFooter:  "Move email address from header/footer to main body under your name",
	types.CodeContactPhoneInHeaderFooter:  "Move phone number from header/footer to main body under your name",
	types.CodeContactLinkedInHeaderFooter: "Display LinkedIn URL as plain text in the main body, not in the header/footer",
	types.CodeContactMissing:              "Add contact information (email and phone) in the main body under your name",

	types.CodeSkillsNoSection:          "Add a dedicated Skills section with clear header (e.g., 'SKILLS' or 'TECHNICAL SKILLS')",
	types.CodeSkillsSectionUnreadable:  "Reformat Skills section as simple bullet points - ATS extracted 0 skills",
	types.CodeSkillsPartiallyExtracted: "Improve Skills section formatting - use simple bullets instead of tables/grids",
	types.CodeSkillsInTable:            "Replace skills table/grid with a simple bullet list for better ATS compatibility",
	types.CodeSkillsInSidebar:          "Move skills from sidebar to main body in a single-column layout",

	types.CodeExperienceNotExtracted: "Experience section not readable by ATS - use simple format with clear job titles and dates",
	types.CodeExperienceNoBullets:    "Add bullet points to job descriptions using standard characters (•, -, or *)",
	types.CodeExperienceIncomplete:   "Ensure all jobs have clear job title and company name",
	types.CodeExperienceInColumns:    "Use single-column layout for work experience section",

	types.CodeEducationNotExtracted: "Education section not readable by ATS - use clear format with degree and university",
	types.CodeEducationIncomplete:   "Ensure all education entries have clear degree and institution names",

	types.CodeImageContent:      "Remove images and replace any important content with plain text",
	types.CodeIconUsage:         "Replace icons with text labels for all contact information and links",
	types.CodeFloatingTextBox:   "Replace floating text boxes with standard left-aligned text",
	types.CodeUnmappedContent:   "Ensure all important information is in clearly labeled sections (Experience, Education, Skills)",
	types.CodeDecorativeFont:    "Replace decorative fonts with ATS-friendly fonts like Arial, Calibri, or Georgia",
	types.CodeUncommonFont:      "Use ATS-friendly fonts: Arial, Calibri, Georgia, Garamond, Helvetica, or Times New Roman",
	types.CodeTooManyFonts:      "Use only 1-2 fonts maximum throughout your resume for consistency",
	types.CodeLayoutComplexity:  "Simplify the layout: one column, no tables, images or text boxes",
	types.CodeMultiColumnLayout: "Use single-column layout for better ATS readability",

	types.CodeExtensiveTableUsage:   "Reduce use of tables - use simple bullet lists instead",
	types.CodeExcessiveHeaderFooter: "Move important content from headers/footers to main body",

	types.CodeDateApostropheYear:   "Replace abbreviated years with full 4-digit years (e.g., 'Jan '21' → 'Jan 2021')",
	types.CodeDateYearOnly:         "Add months to year-only dates (e.g., '2021 - 2023' → 'Jan 2021 - Mar 2023')",
	types.CodeDateSingleDigitMonth: "Use two-digit months or month names (e.g., '1/2021' → '01/2021' or 'Jan 2021')",
	types.CodeDateFullDate:         "Remove days from dates, use month and year only (e.g., '01/15/2021' → 'Jan 2021')",
	types.CodeDateDayIncluded:      "Remove days from dates, use month and year only (e.g., 'Jan 15, 2021' → 'Jan 2021')",
}

const fontAdvice = "Recommended fonts:\nSerif: Cambria, Garamond, Georgia, Palatino, Times New Roman\nSans-serif: Arial, Calibri, Helvetica, Verdana, Tahoma"

var tooltips = map[types.IssueCode]string{
	types.CodeDocumentUnreadable: "The document could not be opened or has no pages. An ATS would reject it before reading any content.",
	types.CodeScannedPDF:         "This resume appears to be a scanned image or image-based PDF with little or no extractable text. Most ATS systems cannot read text inside images, so your resume may be rejected or appear blank.",

	types.CodeContactEmailInHeaderFooter:  "Your email is in the header/footer and was not extracted. Many ATS systems ignore headers and footers, causing them to miss your contact information. Move this to the main body.",
	types.CodeContactPhoneInHeaderFooter:  "Your phone number is in the header/footer and was not extracted. Many ATS systems ignore this area. Move your phone number to the main body for better visibility.",
	types.CodeContactLinkedInHeaderFooter: "Your LinkedIn URL is in the header/footer and was not extracted. Write the full URL as text in the main body: linkedin.com/in/yourname",
	types.CodeContactMissing:              "No email address or phone number was found, either in the extracted fields or anywhere in the visible text. Recruiters cannot contact you without them.",

	types.CodeSkillsNoSection:          "Your resume doesn't have a clearly labeled Skills section. ATS systems rely on a dedicated skills header to identify and extract your technical and professional skills.",
	types.CodeSkillsSectionUnreadable:  "A Skills section is visible, but the ATS extracted 0 skills from it. The formatting causes listed with this issue are the likely reason.",
	types.CodeSkillsPartiallyExtracted: "Only a few skills were extracted from your Skills section. Formatting such as tables, columns or separators prevents the ATS from reading the rest.",
	types.CodeSkillsInTable:            "Your skills are in a table or grid. ATS systems often read tables cell by cell or skip them, scrambling or losing your skills.",
	types.CodeSkillsInSidebar:          "Your Skills section sits in a sidebar or secondary column. Many ATS systems read left to right across columns and mix sidebar content into other sections.",

	types.CodeExperienceNotExtracted: "An Experience section is visible, but the ATS extracted no jobs from it. This is your most important section.",
	types.CodeExperienceNoBullets:    "Some jobs were extracted without any bullet points. Use standard bullet characters so the ATS can separate your accomplishments.",
	types.CodeExperienceIncomplete:   "Some jobs are missing a title or a company name. ATS systems match on both.",
	types.CodeExperienceInColumns:    "Your work experience appears in a multi-column layout. ATS systems typically read left-to-right, which can mix content from different columns and scramble your job history.",

	types.CodeEducationNotExtracted: "An Education section is visible, but the ATS extracted no entries from it.",
	types.CodeEducationIncomplete:   "Some education entries are missing a degree or an institution name.",

	types.CodeImageContent:      "ATS systems cannot read text in images. If this image contains important information (like skills, certifications, or contact info), it will be invisible to the ATS.",
	types.CodeIconUsage:         "Small icons near the top of the page often stand in for contact details or skills. ATS systems cannot read icons, so write the information out as text.",
	types.CodeFloatingTextBox:   "Text boxes and floating elements are often skipped or read out of order by ATS systems. Place this content in the main body instead.",
	types.CodeUnmappedContent:   "This text is visible on the page but was not captured in any extracted field. The ATS may be ignoring it.",
	types.CodeDecorativeFont:    "This is a decorative font that is very difficult for ATS systems to read accurately. Decorative fonts can cause text to be completely misread or ignored.\n\n" + fontAdvice,
	types.CodeUncommonFont:      "These fonts may not be widely available on ATS systems. Uncommon fonts can cause parsing errors or text misinterpretation.\n\n" + fontAdvice,
	types.CodeTooManyFonts:      "Many different fonts create inconsistency and can confuse ATS parsers. Stick to 1-2 fonts maximum: one for headings and one for body text.",
	types.CodeLayoutComplexity:  "The overall layout is complex. Each of the factors listed with this issue makes reliable parsing less likely.",
	types.CodeMultiColumnLayout: "Content is laid out in more than one column. ATS systems may read across columns and merge unrelated lines.",

	types.CodeExtensiveTableUsage:   "Tables are used for content. ATS systems often flatten tables in an unpredictable order.",
	types.CodeExcessiveHeaderFooter: "Content is repeated in headers or footers. Many ATS systems skip these regions entirely.",
}

// Recommendation returns the fix text for a code, or "" when none exists
func Recommendation(code types.IssueCode) string {
	return recommendations[code]
}

// Recommendations returns one fix per distinct code, in first-occurrence order
func Recommendations(list []types.ATSIssue) []string {
	seen := make(map[types.IssueCode]bool, len(list))
	out := []string{}
	for _, i := range list {
		if seen[i.Code] {
			continue
		}
		seen[i.Code] = true
		if rec := recommendations[i.Code]; rec != "" {
			out = append(out, rec)
		}
	}
	return out
}

// Summarize counts issues per severity
func Summarize(list []types.ATSIssue) types.Summary {
	s := types.Summary{Total: len(list)}
	for _, i := range list {
		switch i.Severity {
		case types.SeverityCritical:
			s.Critical++
		case types.SeverityHigh:
			s.High++
		case types.SeverityMedium:
			s.Medium++
		case types.SeverityLow:
			s.Low++
		}
	}
	return s
}

// Highlights returns the overlay records for localizable issues
func Highlights(list []types.ATSIssue) []types.Highlight {
	out := []types.Highlight{}
	for _, i := range list {
		if !i.Localizable() {
			continue
		}
		out = append(out, types.Highlight{
			Page:     i.Page,
			BBox:     *i.BBox,
			Severity: i.Severity,
			Code:     i.Code,
			Message:  i.Message,
			Tooltip:  i.Tooltip,
		})
	}
	return out
}

// Messages flattens issues to their messages
func Messages(list []types.ATSIssue) []string {
	out := make([]string, len(list))
	for n, i := range list {
		out[n] = i.Message
	}
	return out
}
