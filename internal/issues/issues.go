// Package issues runs the ATS detectors over an analyzed layout and turns
// their findings into highlights, summaries and recommendations.
package issues

import (
	"fmt"
	"sort"

	"atslens/internal/errors"
	"atslens/internal/matcher"
	"atslens/internal/types"
)

// Input is everything a detector may look at. Fields and Diagnostics may be
// nil; Layout never is.
type Input struct {
	Layout      *types.Layout
	Fields      *types.ParsedFields
	Diagnostics *types.LayoutDiagnostics
	Matcher     *matcher.Matcher

	// Partition is the matcher's verdict over Layout.Blocks. When nil it is
	// computed on first use.
	Partition *matcher.Result
}

// NewInput fills in the matcher and partition for a layout
func NewInput(l *types.Layout, fields *types.ParsedFields, diag *types.LayoutDiagnostics) *Input {
	if l == nil {
		l = &types.Layout{}
	}
	in := &Input{Layout: l, Fields: fields, Diagnostics: diag, Matcher: matcher.New(fields)}
	in.partition()
	return in
}

func (in *Input) partition() *matcher.Result {
	if in.Partition == nil {
		if in.Matcher == nil {
			in.Matcher = matcher.New(in.Fields)
		}
		res := in.Matcher.Partition(in.Layout.Blocks)
		in.Partition = &res
	}
	return in.Partition
}

func (in *Input) fields() *types.ParsedFields {
	if in.Fields == nil {
		return &types.ParsedFields{}
	}
	return in.Fields
}

func (in *Input) pageWidth(page int) float64 {
	if p, ok := in.Layout.Page(page); ok && p.Width > 0 {
		return p.Width
	}
	return defaultPageWidth
}

func (in *Input) pageHeight(page int) float64 {
	if p, ok := in.Layout.Page(page); ok && p.Height > 0 {
		return p.Height
	}
	return defaultPageHeight
}

// US Letter, used only when a page is missing from the layout
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Detector is one named rule
type Detector struct {
	Name string
	Run  func(in *Input) []types.ATSIssue
}

// Registry is an ordered collection of detectors
type Registry struct {
	detectors []Detector
	logger    *errors.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *errors.Logger) *Registry {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Registry{logger: logger}
}

// DefaultRegistry registers the built-in detectors
func DefaultRegistry(logger *errors.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register("unreadable", detectUnreadable)
	r.Register("scanned", detectScanned)
	r.Register("contact", detectContact)
	r.Register("skills", detectSkills)
	r.Register("experience", detectExperience)
	r.Register("education", detectEducation)
	r.Register("images", detectImages)
	r.Register("icons", detectIcons)
	r.Register("dates", detectDates)
	r.Register("fonts", detectFonts)
	r.Register("text_boxes", detectTextBoxes)
	r.Register("unmapped", detectUnmapped)
	r.Register("diagnostics", detectFromDiagnostics)
	return r
}

// Register appends a detector
func (r *Registry) Register(name string, fn func(in *Input) []types.ATSIssue) {
	r.detectors = append(r.detectors, Detector{Name: name, Run: fn})
}

// Names lists the registered detectors in run order
func (r *Registry) Names() []string {
	names := make([]string, len(r.detectors))
	for i, d := range r.detectors {
		names[i] = d.Name
	}
	return names
}

// Run executes every detector and returns their issues sorted by severity,
// then page, then vertical position. An unreadable layout only ever yields
// the unreadable issue.
func (r *Registry) Run(in *Input) []types.ATSIssue {
	if in == nil || in.Layout == nil {
		in = NewInput(nil, nil, nil)
	}
	if in.Layout.Unreadable {
		return detectUnreadable(in)
	}

	var out []types.ATSIssue
	for _, d := range r.detectors {
		out = append(out, r.runOne(d, in)...)
	}
	Sort(out)
	return out
}

func (r *Registry) runOne(d Detector, in *Input) (found []types.ATSIssue) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("Detector failed", "detector", d.Name, "panic", fmt.Sprint(rec))
			found = nil
		}
	}()
	return d.Run(in)
}

// Sort orders issues by severity rank descending, then page, then y0.
// Document-wide issues sort before localized ones on the same page.
func Sort(list []types.ATSIssue) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return y0(a) < y0(b)
	})
}

func y0(i types.ATSIssue) float64 {
	if i.BBox == nil {
		return -1
	}
	return i.BBox.Y0
}

func docIssue(code types.IssueCode, sev types.Severity, section types.Section, message string) types.ATSIssue {
	return types.ATSIssue{
		Code:       code,
		Severity:   sev,
		Section:    section,
		Message:    message,
		Tooltip:    tooltips[code],
		Page:       1,
		BlockIndex: -1,
	}
}

func blockIssue(code types.IssueCode, sev types.Severity, section types.Section, message string, b types.TextBlock) types.ATSIssue {
	bbox := b.BBox
	return types.ATSIssue{
		Code:         code,
		Severity:     sev,
		Section:      section,
		Message:      message,
		Tooltip:      tooltips[code],
		Page:         b.Page,
		BBox:         &bbox,
		BlockIndex:   b.Index,
		LocationHint: locationHint(b),
	}
}

func locationHint(b types.TextBlock) string {
	return fmt.Sprintf("page %d, %s region, column %d", b.Page, b.Region, b.Column)
}
