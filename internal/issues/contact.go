package issues

import (
	"regexp"
	"strings"

	"atslens/internal/types"
)

var (
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern    = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	linkedInPattern = regexp.MustCompile(`(?i)linkedin\.com/(?:in|pub)/[\w-]+`)
)

type contactRule struct {
	code     types.IssueCode
	severity types.Severity
	message  string
	pattern  *regexp.Regexp
	// extracted reports whether the visible value is already in the fields
	extracted func(f *types.ParsedFields, visible string) bool
}

var contactRules = []contactRule{
	{
		code:     types.CodeContactEmailInHeaderFooter,
		severity: types.SeverityCritical,
		message:  "Email in header/footer not extracted by ATS",
		pattern:  emailPattern,
		extracted: func(f *types.ParsedFields, visible string) bool {
			return f.Email != "" && strings.EqualFold(strings.TrimSpace(f.Email), visible)
		},
	},
	{
		code:     types.CodeContactPhoneInHeaderFooter,
		severity: types.SeverityHigh,
		message:  "Phone in header/footer not extracted by ATS",
		pattern:  phonePattern,
		extracted: func(f *types.ParsedFields, visible string) bool {
			want := lastDigits(f.Phone, 10)
			return want != "" && want == lastDigits(visible, 10)
		},
	},
	{
		code:     types.CodeContactLinkedInHeaderFooter,
		severity: types.SeverityMedium,
		message:  "LinkedIn in header/footer not extracted by ATS",
		pattern:  linkedInPattern,
		extracted: func(f *types.ParsedFields, visible string) bool {
			return f.LinkedIn != "" && strings.Contains(strings.ToLower(f.LinkedIn), strings.ToLower(visible))
		},
	},
}

func lastDigits(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) > n {
		d = d[len(d)-n:]
	}
	return d
}

// detectContact flags contact details that are only visible in the header or
// footer bands and were not extracted, plus a resume with no contact at all
func detectContact(in *Input) []types.ATSIssue {
	f := in.fields()
	var out []types.ATSIssue

	for _, rule := range contactRules {
		for _, b := range in.Layout.Blocks {
			if !b.IsHeaderFooter() {
				continue
			}
			visible := rule.pattern.FindString(b.Text)
			if visible == "" || rule.extracted(f, visible) {
				continue
			}
			issue := blockIssue(rule.code, rule.severity, types.SectionContact, rule.message, b)
			issue.Details = []string{"Found: " + visible}
			out = append(out, issue)
			break
		}
	}

	if !f.HasEmail() && !f.HasPhone() && !in.anyBlockMatches(emailPattern, phonePattern) {
		out = append(out, docIssue(types.CodeContactMissing, types.SeverityHigh, types.SectionContact, "No contact information found"))
	}
	return out
}

func (in *Input) anyBlockMatches(patterns ...*regexp.Regexp) bool {
	for _, b := range in.Layout.Blocks {
		for _, p := range patterns {
			if p.MatchString(b.Text) {
				return true
			}
		}
	}
	return false
}
