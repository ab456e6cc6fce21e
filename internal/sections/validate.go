package sections

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"atslens/internal/types"
)

const minNameChars = 3

var educationTitleWords = []string{"gpa", "grade", "degree", "bachelor", "master"}

// FieldWarnings are plausibility problems found in extracted entries
type FieldWarnings struct {
	Experience []string `json:"experience,omitempty"`
	Education  []string `json:"education,omitempty"`
}

// All returns every warning, experience first
func (w FieldWarnings) All() []string {
	out := make([]string, 0, len(w.Experience)+len(w.Education))
	out = append(out, w.Experience...)
	return append(out, w.Education...)
}

// Validate checks extracted entries for signs of misclassification: job
// titles that read like degrees and truncated company or school names.
func Validate(f *types.ParsedFields) FieldWarnings {
	var w FieldWarnings
	if f == nil {
		return w
	}

	for i, e := range f.Experience {
		title := strings.TrimSpace(e.Title)
		company := strings.TrimSpace(e.Company)
		n := i + 1

		if title == "" && company == "" {
			w.Experience = append(w.Experience, fmt.Sprintf("Experience entry %d: missing title and company", n))
			continue
		}
		lower := strings.ToLower(title)
		for _, word := range educationTitleWords {
			if strings.Contains(lower, word) {
				w.Experience = append(w.Experience,
					fmt.Sprintf("Experience entry %d: title %q looks education-related and may be misclassified", n, title))
				break
			}
		}
		if company != "" && utf8.RuneCountInString(company) < minNameChars {
			w.Experience = append(w.Experience, fmt.Sprintf("Experience entry %d: company name %q seems too short", n, company))
		}
	}

	for i, e := range f.Education {
		inst := strings.TrimSpace(e.Institution)
		if inst != "" && utf8.RuneCountInString(inst) < minNameChars {
			w.Education = append(w.Education, fmt.Sprintf("Education entry %d: institution name %q seems too short", i+1, inst))
		}
	}
	return w
}
