package issues

import (
	"fmt"
	"regexp"
	"strings"

	"atslens/internal/types"
)

type datePattern struct {
	code    types.IssueCode
	pattern *regexp.Regexp
	short   string
	long    string
	// accept rejects a match by looking at the text that follows it
	accept func(rest string) bool
}

const monthPrefix = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`

// Checked in order; the first pattern that matches a block wins.
var datePatterns = []datePattern{
	{
		code:    types.CodeDateApostropheYear,
		pattern: regexp.MustCompile(`(?i)\b` + monthPrefix + `\s*['‘’]\d{2}\b`),
		short:   "Date with apostrophe (e.g., Jan '21)",
		long:    `Dates with apostrophes like "Jan '21" can confuse ATS parsers. Use full 4-digit years: "Jan 2021" or "January 2021".`,
	},
	{
		code:    types.CodeDateYearOnly,
		pattern: regexp.MustCompile(`\b\d{4}\s*[-–—]\s*\d{4}\b`),
		short:   "Year-only dates (e.g., 2021 - 2023)",
		long:    `Using only years without months (e.g., "2021 - 2023") makes it harder for ATS to calculate tenure. Include months: "Jan 2021 - Mar 2023".`,
		accept: func(rest string) bool {
			return !strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), "(")
		},
	},
	{
		code:    types.CodeDateSingleDigitMonth,
		pattern: regexp.MustCompile(`\b\d/\d{4}\b`),
		short:   "Single-digit month (e.g., 1/2021)",
		long:    `Single-digit months like "1/2021" should use two digits or month names. Use "01/2021" or "Jan 2021" instead.`,
	},
	{
		code:    types.CodeDateFullDate,
		pattern: regexp.MustCompile(`\b\d{2}/\d{2}/\d{2,4}\b`),
		short:   "Full date format (e.g., 01/15/2021)",
		long:    `Full dates like "01/15/2021" are unnecessarily precise for resumes. Use month and year only: "Jan 2021" or "01/2021".`,
	},
	{
		code:    types.CodeDateDayIncluded,
		pattern: regexp.MustCompile(`(?i)\b` + monthPrefix + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		short:   "Date with day (e.g., Jan 15, 2021)",
		long:    `Including the day in dates (e.g., "Jan 15, 2021") is too specific. Use month and year only: "Jan 2021".`,
	},
}

// find returns the first acceptable match in text
func (p datePattern) find(text string) (string, bool) {
	for _, loc := range p.pattern.FindAllStringIndex(text, -1) {
		if p.accept == nil || p.accept(text[loc[1]:]) {
			return text[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// MatchDate returns the first date anti-pattern found in text
func MatchDate(text string) (types.IssueCode, string, bool) {
	for _, p := range datePatterns {
		if m, ok := p.find(text); ok {
			return p.code, m, true
		}
	}
	return "", "", false
}

func detectDates(in *Input) []types.ATSIssue {
	var out []types.ATSIssue
	for _, b := range in.Layout.Blocks {
		for _, p := range datePatterns {
			m, ok := p.find(b.Text)
			if !ok {
				continue
			}
			issue := blockIssue(p.code, types.SeverityMedium, types.SectionGeneral, fmt.Sprintf("%s: %q", p.short, m), b)
			issue.Tooltip = fmt.Sprintf("%s\n\nFound: %q", p.long, m)
			out = append(out, issue)
			break
		}
	}
	return out
}
