// Package matcher decides whether the text of a visual block is represented
// in the parser's structured fields.
package matcher

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"atslens/internal/types"
)

// Matching thresholds. They favour precision: a block is reported as
// missing from the extraction only when the evidence is strong.
const (
	MinEvaluatedChars     = 10
	DefaultMappedMaxChars = 80
	MinFragmentChars      = 5
	MinOverlapFragment    = 20
	OverlapRatio          = 0.7
	NearHeaderRatio       = 0.6
	HeaderProximity       = 3
	MinSignificantWordLen = 4
	WindowWords           = 8
	WindowStep            = 4
	MetadataMaxChars      = 50
)

var bulletGlyphs = strings.NewReplacer(
	"•", " ", "●", " ", "▪", " ", "◦", " ", "‣", " ", "■", " ", "►", " ", "➢", " ", "✓", " ", "∙", " ",
	"*", " ", " - ", " ", " – ", " ",
)

var leadingBullet = regexp.MustCompile(`^\s*(?:[•●▪◦‣■►➢✓∙*\-–]|\d{1,2}[.)])\s+`)

var stopwords = map[string]bool{
	"about": true, "also": true, "been": true, "each": true, "from": true, "have": true,
	"into": true, "more": true, "most": true, "over": true, "some": true, "such": true,
	"than": true, "that": true, "their": true, "them": true, "then": true, "they": true,
	"this": true, "were": true, "what": true, "when": true, "where": true, "which": true,
	"while": true, "will": true, "with": true, "your": true,
}

// SectionHeaders are the headings treated as section starts
var SectionHeaders = []string{
	"experience", "education", "skills", "summary", "objective", "projects",
	"certifications", "awards", "work history", "employment", "technical skills",
	"professional experience", "qualifications", "work experience", "profile",
	"core competencies", "publications", "volunteer", "languages", "interests",
}

var months = []string{
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
}

// Normalize lowercases text, strips bullet glyphs and collapses whitespace
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = leadingBullet.ReplaceAllString(s, "")
	s = bulletGlyphs.Replace(" " + s + " ")
	return strings.Join(strings.Fields(s), " ")
}

// SignificantWords returns the distinct words of at least four letters that
// are not stopwords
func SignificantWords(normalized string) map[string]bool {
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := make(map[string]bool, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= MinSignificantWordLen && !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

type fragment struct {
	text  string
	words map[string]bool
}

// Matcher holds the normalized fragments of one ParsedFields record.
// It is immutable after New and safe for concurrent use.
type Matcher struct {
	fragments []fragment
}

// New builds the fragment set for fields. A nil record yields an empty set.
func New(fields *types.ParsedFields) *Matcher {
	b := &builder{seen: make(map[string]bool)}
	if fields != nil {
		b.add(fields.Name, fields.Email, fields.Phone, fields.LinkedIn, fields.Summary)
		b.windows(fields.Summary)
		b.add(fields.Skills...)
		for _, e := range fields.Experience {
			b.add(e.Title, e.Company, e.Location, e.StartDate, e.EndDate, e.Description)
			b.add(e.Highlights...)
			b.windows(e.Description)
			for _, h := range e.Highlights {
				b.windows(h)
			}
		}
		for _, e := range fields.Education {
			b.add(e.Degree, e.Institution, e.Major, e.GraduationDate, e.GPA)
		}
		for _, c := range fields.Certifications {
			b.add(c.Name, c.Issuer)
		}
	}
	sort.Slice(b.out, func(i, j int) bool { return b.out[i].text < b.out[j].text })
	return &Matcher{fragments: b.out}
}

type builder struct {
	seen map[string]bool
	out  []fragment
}

func (b *builder) add(values ...string) {
	for _, v := range values {
		n := Normalize(v)
		if n == "" || b.seen[n] {
			continue
		}
		b.seen[n] = true
		b.out = append(b.out, fragment{text: n, words: SignificantWords(n)})
	}
}

// windows adds overlapping word windows so that paraphrased or truncated
// bullets still match part of the original text
func (b *builder) windows(s string) {
	words := strings.Fields(Normalize(s))
	if len(words) <= WindowWords {
		return
	}
	for start := 0; start < len(words); start += WindowStep {
		end := min(start+WindowWords, len(words))
		b.add(strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
}

// Fragments returns the normalized fragments, sorted
func (m *Matcher) Fragments() []string {
	out := make([]string, len(m.fragments))
	for i, f := range m.fragments {
		out[i] = f.text
	}
	return out
}

// Contains reports whether text is represented in the fragment set, either
// by substring containment in either direction or by significant-word
// overlap with a single fragment.
func (m *Matcher) Contains(text string, nearHeader bool) bool {
	n := Normalize(text)
	if n == "" {
		return false
	}
	for _, f := range m.fragments {
		if len(f.text) < MinFragmentChars {
			continue
		}
		if strings.Contains(n, f.text) || strings.Contains(f.text, n) {
			return true
		}
	}

	blockWords := SignificantWords(n)
	if len(blockWords) == 0 {
		return false
	}
	threshold := OverlapRatio
	if nearHeader {
		threshold = NearHeaderRatio
	}
	for _, f := range m.fragments {
		if len(f.text) <= MinOverlapFragment || len(f.words) == 0 {
			continue
		}
		shared := 0
		for w := range blockWords {
			if f.words[w] {
				shared++
			}
		}
		if float64(shared)/float64(len(blockWords)) > threshold {
			return true
		}
	}
	return false
}

// IsSectionHeader reports whether text is a recognised section heading
func IsSectionHeader(text string) bool {
	n := strings.TrimRight(Normalize(text), ": ")
	if n == "" || len(n) > 40 {
		return false
	}
	for _, h := range SectionHeaders {
		if n == h {
			return true
		}
	}
	return false
}

// isHeaderLike also accepts blocks whose first line is a heading, since
// block detection often merges a heading with the lines below it.
func isHeaderLike(text string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if IsSectionHeader(first) {
		return true
	}
	first = strings.TrimSpace(first)
	return len(strings.Fields(first)) <= 4 && first == strings.ToUpper(first) && strings.ToLower(first) != first
}

func isMetadata(text string) bool {
	n := Normalize(text)
	if len(n) >= MetadataMaxChars {
		return false
	}
	for _, w := range strings.FieldsFunc(n, func(r rune) bool { return !unicode.IsLetter(r) }) {
		for _, m := range months {
			if w == m {
				return true
			}
		}
	}
	return false
}

func isBulletShaped(text string) bool {
	return leadingBullet.MatchString(text)
}

func nearSectionHeader(blocks []types.TextBlock, i int) bool {
	for j := i - 1; j >= 0 && j >= i-HeaderProximity; j-- {
		if IsSectionHeader(blocks[j].Text) {
			return true
		}
	}
	return false
}

// Result is the mapped/unmapped partition of a document's blocks, by block index
type Result struct {
	Mapped    []int
	Unmapped  []int
	Evaluated int
}

// Partition classifies every block. Blocks under MinEvaluatedChars are left
// out of both lists and of Evaluated; only long body blocks that are neither
// headings nor bullets can be unmapped.
func (m *Matcher) Partition(blocks []types.TextBlock) Result {
	res := Result{Mapped: []int{}, Unmapped: []int{}}
	for i, b := range blocks {
		text := strings.TrimSpace(b.Text)
		length := utf8.RuneCountInString(text)
		if length < MinEvaluatedChars {
			continue
		}
		res.Evaluated++

		if m.isMapped(blocks, i, length) {
			res.Mapped = append(res.Mapped, b.Index)
		} else {
			res.Unmapped = append(res.Unmapped, b.Index)
		}
	}
	return res
}

// IsMapped reports whether block i is represented in the parsed fields.
// Blocks too short to judge are never reported as unmapped. An index out of
// range is not mapped.
func (m *Matcher) IsMapped(blocks []types.TextBlock, i int) bool {
	if i < 0 || i >= len(blocks) {
		return false
	}
	length := utf8.RuneCountInString(strings.TrimSpace(blocks[i].Text))
	if length < MinEvaluatedChars {
		return true
	}
	return m.isMapped(blocks, i, length)
}

func (m *Matcher) isMapped(blocks []types.TextBlock, i, length int) bool {
	b := blocks[i]
	switch {
	case length <= DefaultMappedMaxChars:
		return true
	case b.Region != types.RegionBody:
		return true
	case isHeaderLike(b.Text), isMetadata(b.Text), isBulletShaped(b.Text):
		return true
	}
	return m.Contains(b.Text, nearSectionHeader(blocks, i))
}

// Coverage converts a partition into the coverage metric
func (r Result) Coverage() types.ContentCoverageMetric {
	c := types.ContentCoverageMetric{
		TotalBlocks:    r.Evaluated,
		MappedBlocks:   len(r.Mapped),
		UnmappedBlocks: len(r.Unmapped),
	}
	if c.TotalBlocks > 0 {
		c.Score = float64(c.MappedBlocks) / float64(c.TotalBlocks) * 100
	}
	return c
}
