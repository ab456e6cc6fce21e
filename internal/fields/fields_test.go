package fields

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/errors"
)

const fieldsJSON = `{
  "name": "Jane Doe",
  "email": "jane@example.com",
  "phone": "555-123-4567",
  "skills": ["Go", "Kubernetes"],
  "experience": [{"title": "Engineer", "company": "Acme", "highlights": ["Shipped things"]}],
  "education": [{"degree": "BSc", "institution": "State University"}]
}`

const fieldsYAML = `
name: Jane Doe
email: jane@example.com
phone: "555-123-4567"
skills:
  - Go
  - Kubernetes
experience:
  - title: Engineer
    company: Acme
    highlights:
      - Shipped things
education:
  - degree: BSc
    institution: State University
`

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"json", fieldsJSON, FormatJSON},
		{"yaml", fieldsYAML, FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "Jane Doe", f.Name)
			assert.Equal(t, "555-123-4567", f.Phone)
			assert.Equal(t, []string{"Go", "Kubernetes"}, f.Skills)
			require.Len(t, f.Experience, 1)
			assert.Equal(t, []string{"Shipped things"}, f.Experience[0].Highlights)
			require.Len(t, f.Education, 1)
			assert.Equal(t, "State University", f.Education[0].Institution)
		})
	}
}

func TestParseNumericScalars(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", `
experience:
  - title: Engineer
    company: Acme
    startDate: 2019
    endDate: 2023
education:
  - degree: BSc
    institution: State University
    graduationDate: 2018
    gpa: 3.8
certifications:
  - name: CKA
    date: 2022
`, FormatYAML},
		{"json", `{
  "experience": [{"title": "Engineer", "company": "Acme", "startDate": 2019, "endDate": "2023"}],
  "education": [{"degree": "BSc", "institution": "State University", "graduationDate": 2018, "gpa": 3.8}],
  "certifications": [{"name": "CKA", "date": 2022}]
}`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			require.Len(t, f.Experience, 1)
			assert.Equal(t, "2019", f.Experience[0].StartDate)
			assert.Equal(t, "2023", f.Experience[0].EndDate)
			require.Len(t, f.Education, 1)
			assert.Equal(t, "2018", f.Education[0].GraduationDate)
			assert.Equal(t, "3.8", f.Education[0].GPA)
			require.Len(t, f.Certifications, 1)
			assert.Equal(t, "2022", f.Certifications[0].Date)
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"malformed json", `{"name": `, FormatJSON},
		{"skills not a list", `{"skills": "Go, Python"}`, FormatJSON},
		{"certification without name", `{"certifications": [{"issuer": "AWS"}]}`, FormatJSON},
		{"top level array", `[]`, FormatJSON},
		{"malformed yaml", "name: [unterminated", FormatYAML},
		{"numeric phone in yaml", "phone: 5551234567", FormatYAML},
		{"gpa as a list", `{"education": [{"gpa": [3.8]}]}`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeFieldsInvalid, appCode(t, err))
		})
	}
}

func TestParseDiagnostics(t *testing.T) {
	d, err := ParseDiagnostics([]byte(`{"hasMultiColumn": true, "secondaryColumnRatio": 0.35, "complexityMetric": 62}`), FormatJSON)
	require.NoError(t, err)
	assert.True(t, d.HasMultiColumn)
	assert.Equal(t, 0.35, d.SecondaryColumnRatio)
	require.NotNil(t, d.ComplexityMetric)
	assert.Equal(t, 62.0, *d.ComplexityMetric)

	_, err = ParseDiagnostics([]byte(`{"secondaryColumnRatio": 1.5}`), FormatJSON)
	assert.Equal(t, errors.ErrCodeFieldsInvalid, appCode(t, err))

	_, err = ParseDiagnostics([]byte(`{"imageCount": -1}`), FormatJSON)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "fields.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(fieldsYAML), 0600))
	f, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", f.Email)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Equal(t, errors.ErrCodeFileNotFound, appCode(t, err))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"skills": 3}`), 0600))
	_, err = LoadFile(badPath)
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, badPath, appErr.Context["file"])

	diagPath := filepath.Join(dir, "diag.yaml")
	require.NoError(t, os.WriteFile(diagPath, []byte("hasTables: true\ntableCount: 2\n"), 0600))
	d, err := LoadDiagnosticsFile(diagPath)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TableCount)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatOf("a.YAML"))
	assert.Equal(t, FormatYAML, FormatOf("dir/a.yml"))
	assert.Equal(t, FormatJSON, FormatOf("a.json"))
	assert.Equal(t, FormatJSON, FormatOf("noext"))
}
