package types

// ParsedFields represents the structured extraction of a resume produced by an
// independent parser. The engine only reads it.
type ParsedFields struct {
	Name           string               `json:"name" yaml:"name"`
	Email          string               `json:"email" yaml:"email"`
	Phone          string               `json:"phone" yaml:"phone"`
	LinkedIn       string               `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Summary        string               `json:"summary,omitempty" yaml:"summary,omitempty"`
	Skills         []string             `json:"skills" yaml:"skills"`
	Experience     []ExperienceEntry    `json:"experience" yaml:"experience"`
	Education      []EducationEntry     `json:"education" yaml:"education"`
	Certifications []CertificationEntry `json:"certifications,omitempty" yaml:"certifications,omitempty"`
}

// ExperienceEntry represents a single job in the work history
type ExperienceEntry struct {
	Title       string   `json:"title" yaml:"title"`
	Company     string   `json:"company" yaml:"company"`
	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	StartDate   string   `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty" yaml:"highlights,omitempty"` // bullet points
}

// EducationEntry represents a degree or diploma
type EducationEntry struct {
	Degree         string `json:"degree" yaml:"degree"`
	Institution    string `json:"institution" yaml:"institution"`
	Major          string `json:"major,omitempty" yaml:"major,omitempty"`
	GraduationDate string `json:"graduationDate,omitempty" yaml:"graduationDate,omitempty"`
	GPA            string `json:"gpa,omitempty" yaml:"gpa,omitempty"`
}

// CertificationEntry represents a professional certification
type CertificationEntry struct {
	Name   string `json:"name" yaml:"name"`
	Issuer string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Date   string `json:"date,omitempty" yaml:"date,omitempty"`
}

// HasEmail reports whether the parser extracted an email address
func (f *ParsedFields) HasEmail() bool {
	return f != nil && f.Email != ""
}

// HasPhone reports whether the parser extracted a phone number
func (f *ParsedFields) HasPhone() bool {
	return f != nil && f.Phone != ""
}

// LayoutFixture is a serialized document: pages of pre-grouped text blocks and images.
// It stands in for a PDF when the caller has already run its own extraction.
type LayoutFixture struct {
	Pages []FixturePage `json:"pages"`
}

// FixturePage is one page of a LayoutFixture
type FixturePage struct {
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Blocks []FixtureBlock `json:"blocks"`
	Images []FixtureImage `json:"images,omitempty"`
}

// FixtureBlock is a text block as delivered by an external extractor
type FixtureBlock struct {
	Text  string   `json:"text"`
	BBox  Rect     `json:"bbox"`
	Fonts []string `json:"fonts,omitempty"`
}

// FixtureImage is an image placement as delivered by an external extractor
type FixtureImage struct {
	Name string `json:"name,omitempty"`
	BBox Rect   `json:"bbox"`
}
