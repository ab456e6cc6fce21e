// Package fonts normalizes embedded PDF font identifiers into family names and
// classifies them by how reliably applicant tracking systems handle them.
package fonts

import (
	"regexp"
	"sort"
	"strings"
)

// Category is the ATS-friendliness class of a font family
type Category string

const (
	CategoryFriendly   Category = "friendly"
	CategoryDecorative Category = "decorative"
	CategoryUncommon   Category = "uncommon"
	CategoryIgnored    Category = "ignored"
)

var (
	subsetPrefix = regexp.MustCompile(`^[A-Za-z]{6,}\+`)
	texFont      = regexp.MustCompile(`^(cmssbx|cmbx|cmtt|cmti|cmsl|cmss|cmsy|cmmi|cmr|cmb)\d*$`)
	internalID   = []*regexp.Regexp{
		regexp.MustCompile(`^[a-z]{1,2}\d+$`),
		regexp.MustCompile(`^f\d+`),
		regexp.MustCompile(`^t\d+`),
		regexp.MustCompile(`^font\d+`),
		regexp.MustCompile(`^[a-f0-9]{6,}$`),
	}
	letterRun   = regexp.MustCompile(`[a-z]{3,}`)
	punctuation = regexp.MustCompile(`[^a-z ]+`)
	spaces      = regexp.MustCompile(`\s+`)
)

var iconFamilies = []string{
	"fontawesome", "font awesome", "materialicons", "material icons", "materialsymbols",
	"glyphicons", "ionicons", "icomoon", "feather", "dingbats", "wingdings", "webdings",
	"symbol",
}

var compositeNames = map[string]string{
	"arialmt":                  "arial",
	"arial-boldmt":             "arial",
	"arial-italicmt":           "arial",
	"arial-bolditalicmt":       "arial",
	"timesnewromanpsmt":        "times new roman",
	"timesnewromanps":          "times new roman",
	"timesnewromanps-boldmt":   "times new roman",
	"timesnewromanps-italicmt": "times new roman",
	"helvetica-bold":           "helvetica",
	"helvetica-oblique":        "helvetica",
	"helveticaneue":            "helvetica neue",
	"courier":                  "courier new",
	"couriernew":               "courier new",
	"couriernewpsmt":           "courier new",
	"palatinolinotype":         "palatino linotype",
	"trebuchetms":              "trebuchet",
	"comicsansms":              "comic sans",
	"brushscriptmt":            "brush script",
	"lucidahandwriting-italic": "lucida handwriting",
	"bookmanoldstyle":          "bookman",
	"garamondpremrpro":         "garamond",
	"ebgaramond":               "garamond",
	"georgia-bold":             "georgia",
	"calibri-bold":             "calibri",
	"cambria-bold":             "cambria",
	"verdana-bold":             "verdana",
	"tahoma-bold":              "tahoma",
}

// Longest suffixes first so "-bolditalic" wins over "-italic".
var styleSuffixes = []string{
	"-bolditalicmt", "-bolditalic", "-semibold", "-oblique", "-regular", "-italic",
	"-medium", "-black", "-light", "-bold", "-roman", "-book",
	"psmt", "mt", "ps",
}

var friendly = map[string]bool{
	"cambria":           true,
	"garamond":          true,
	"georgia":           true,
	"palatino":          true,
	"palatino linotype": true,
	"times":             true,
	"times new roman":   true,
	"bookman":           true,
	"arial":             true,
	"calibri":           true,
	"helvetica":         true,
	"helvetica neue":    true,
	"tahoma":            true,
	"verdana":           true,
	"trebuchet":         true,
	"computer modern":   true,
}

var decorative = map[string]bool{
	"comic sans":         true,
	"comicsans":          true,
	"papyrus":            true,
	"brush script":       true,
	"curlz":              true,
	"impact":             true,
	"zapfino":            true,
	"bleeding cowboys":   true,
	"chiller":            true,
	"jokerman":           true,
	"ravie":              true,
	"mistral":            true,
	"script":             true,
	"freestyle":          true,
	"lucida handwriting": true,
}

// Normalize turns a raw embedded font name into a lowercase family name.
// It returns "" for names that should be ignored: icon fonts, internal ids,
// and anything that does not leave a recognisable word behind.
func Normalize(raw string) string {
	name := strings.TrimSpace(raw)
	name = subsetPrefix.ReplaceAllString(name, "")
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	if name == "" {
		return ""
	}

	for _, icon := range iconFamilies {
		if strings.Contains(name, icon) {
			return ""
		}
	}

	if texFont.MatchString(name) {
		return "computer modern"
	}

	for _, re := range internalID {
		if re.MatchString(name) {
			return ""
		}
	}

	if mapped, ok := compositeNames[name]; ok {
		return mapped
	}

	name = strings.ReplaceAll(name, ",", "-")
	// PostScript names stack styles ("Verdana-ItalicMT"), so strip until none is left
	for {
		trimmed := trimStyleSuffix(name)
		if trimmed == name {
			break
		}
		name = trimmed
		if mapped, ok := compositeNames[name]; ok {
			return mapped
		}
	}

	name = punctuation.ReplaceAllString(name, " ")
	name = strings.TrimSpace(spaces.ReplaceAllString(name, " "))
	if !letterRun.MatchString(name) {
		return ""
	}
	return name
}

func trimStyleSuffix(name string) string {
	for _, suffix := range styleSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// Classify returns the category of a normalized family name
func Classify(family string) Category {
	switch {
	case family == "":
		return CategoryIgnored
	case friendly[family]:
		return CategoryFriendly
	case decorative[family]:
		return CategoryDecorative
	}
	// Families like "comic sans bold" or "brush script std" share a decorative stem.
	for name := range decorative {
		if strings.HasPrefix(family, name+" ") {
			return CategoryDecorative
		}
	}
	return CategoryUncommon
}

// IsFriendly reports whether family is in the ATS-friendly set
func IsFriendly(family string) bool {
	return friendly[family]
}

// FriendlyFamilies returns the ATS-friendly families in alphabetical order
func FriendlyFamilies() []string {
	out := make([]string, 0, len(friendly))
	for name := range friendly {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Family is a normalized font family with the raw names that mapped to it
type Family struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Raw      []string `json:"raw"`
}

// Report is the classification of every font used by a document
type Report struct {
	Families   []Family `json:"families"`
	Ignored    []string `json:"ignored,omitempty"`
	Friendly   []string `json:"friendly"`
	Decorative []string `json:"decorative"`
	Uncommon   []string `json:"uncommon"`
}

// Count returns the number of distinct families that were not ignored
func (r *Report) Count() int {
	return len(r.Families)
}

// NewReport normalizes and classifies raw font names. Output order is
// deterministic: families sorted by name.
func NewReport(raw []string) *Report {
	byName := make(map[string]*Family)
	report := &Report{
		Friendly:   []string{},
		Decorative: []string{},
		Uncommon:   []string{},
	}
	seenRaw := make(map[string]bool)

	for _, r := range raw {
		if seenRaw[r] {
			continue
		}
		seenRaw[r] = true

		name := Normalize(r)
		if name == "" {
			report.Ignored = append(report.Ignored, r)
			continue
		}
		fam, ok := byName[name]
		if !ok {
			fam = &Family{Name: name, Category: Classify(name)}
			byName[name] = fam
		}
		fam.Raw = append(fam.Raw, r)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	sort.Strings(report.Ignored)

	for _, name := range names {
		fam := byName[name]
		sort.Strings(fam.Raw)
		report.Families = append(report.Families, *fam)
		switch fam.Category {
		case CategoryFriendly:
			report.Friendly = append(report.Friendly, name)
		case CategoryDecorative:
			report.Decorative = append(report.Decorative, name)
		default:
			report.Uncommon = append(report.Uncommon, name)
		}
	}
	return report
}
