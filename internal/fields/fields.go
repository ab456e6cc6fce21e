// Package fields loads the caller-supplied side inputs of an analysis: the
// parsed resume fields and an optional pre-scan diagnostics record. Fields
// come from a JSON or YAML file or from a remote parser service.
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"atslens/internal/errors"
	"atslens/internal/types"
)

const fieldsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "email": {"type": "string"},
    "phone": {"type": "string"},
    "linkedin": {"type": "string"},
    "summary": {"type": "string"},
    "skills": {"type": "array", "items": {"type": "string"}},
    "experience": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "company": {"type": "string"},
          "location": {"type": "string"},
          "startDate": {"type": ["string", "number"]},
          "endDate": {"type": ["string", "number"]},
          "description": {"type": "string"},
          "highlights": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "education": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "degree": {"type": "string"},
          "institution": {"type": "string"},
          "major": {"type": "string"},
          "graduationDate": {"type": ["string", "number"]},
          "gpa": {"type": ["string", "number"]}
        }
      }
    },
    "certifications": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "issuer": {"type": "string"},
          "date": {"type": ["string", "number"]}
        }
      }
    }
  }
}`

const diagnosticsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "hasImages": {"type": "boolean"},
    "hasTables": {"type": "boolean"},
    "hasMultiColumn": {"type": "boolean"},
    "hasHeadersFooters": {"type": "boolean"},
    "hasTextBoxes": {"type": "boolean"},
    "imageCount": {"type": "integer", "minimum": 0},
    "tableCount": {"type": "integer", "minimum": 0},
    "fontCount": {"type": "integer", "minimum": 0},
    "pageCount": {"type": "integer", "minimum": 0},
    "characterCount": {"type": "integer", "minimum": 0},
    "secondaryColumnRatio": {"type": "number", "minimum": 0, "maximum": 1},
    "complexityMetric": {"type": "number", "minimum": 0, "maximum": 100},
    "warnings": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	fieldsSchema      = mustSchema(fieldsSchemaJSON)
	diagnosticsSchema = mustSchema(diagnosticsSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// Format of a side-input document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension. Unknown extensions are JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse validates and decodes parsed resume fields
func Parse(data []byte, format Format) (*types.ParsedFields, error) {
	var f types.ParsedFields
	if err := decode(data, format, fieldsSchema, &f, "fields", stringifyScalars); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads parsed resume fields from a JSON or YAML file
func LoadFile(path string) (*types.ParsedFields, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, withFile(err, path)
	}
	return f, nil
}

// ParseDiagnostics validates and decodes a pre-scan diagnostics record
func ParseDiagnostics(data []byte, format Format) (*types.LayoutDiagnostics, error) {
	var d types.LayoutDiagnostics
	if err := decode(data, format, diagnosticsSchema, &d, "diagnostics", nil); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDiagnosticsFile reads a pre-scan diagnostics record from a JSON or YAML file
func LoadDiagnosticsFile(path string) (*types.LayoutDiagnostics, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	d, err := ParseDiagnostics(data, FormatOf(path))
	if err != nil {
		return nil, withFile(err, path)
	}
	return d, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "file not found", err).WithContext("file", path)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot read file", err).WithContext("file", path)
	}
	return data, nil
}

func withFile(err error, path string) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.WithContext("file", path)
	}
	return err
}

// Fields that YAML writers and some parsers emit as bare numbers ("gpa: 3.8",
// "graduationDate: 2021"), keyed by the list they live in
var numericStringFields = map[string][]string{
	"experience":     {"startDate", "endDate"},
	"education":      {"graduationDate", "gpa"},
	"certifications": {"date"},
}

// stringifyScalars rewrites the numeric values of numericStringFields as
// their literal text so they decode into string fields
func stringifyScalars(doc map[string]any) {
	for list, keys := range numericStringFields {
		entries, _ := doc[list].([]any)
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			for _, k := range keys {
				if n, ok := entry[k].(json.Number); ok {
					entry[k] = n.String()
				}
			}
		}
	}
}

// decode normalises YAML to JSON so one schema serves both formats. A
// non-nil rewrite sees the validated document before it is decoded into out.
func decode(data []byte, format Format, schema *gojsonschema.Schema, out any, what string, rewrite func(map[string]any)) error {
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return errors.NewValidationError(errors.ErrCodeFieldsInvalid, what+" is not valid YAML", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return errors.NewValidationError(errors.ErrCodeFieldsInvalid, what+" cannot be represented as JSON", err)
		}
		data = converted
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeFieldsInvalid, what+" is not valid JSON", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.NewValidationError(errors.ErrCodeFieldsInvalid, what+" do not match schema", nil).
			WithContext("violations", msgs)
	}

	if rewrite != nil {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return errors.NewValidationError(errors.ErrCodeFieldsInvalid, "failed to decode "+what, err)
		}
		rewrite(doc)
		rewritten, err := json.Marshal(doc)
		if err != nil {
			return errors.NewValidationError(errors.ErrCodeFieldsInvalid, "failed to decode "+what, err)
		}
		data = rewritten
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewValidationError(errors.ErrCodeFieldsInvalid, "failed to decode "+what, err)
	}
	return nil
}
