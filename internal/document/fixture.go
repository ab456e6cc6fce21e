package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"atslens/internal/errors"
	"atslens/internal/layout"
	"atslens/internal/types"
)

const fixtureSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["pages"],
  "properties": {
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["width", "height", "blocks"],
        "properties": {
          "width": {"type": "number", "exclusiveMinimum": 0},
          "height": {"type": "number", "exclusiveMinimum": 0},
          "blocks": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["text", "bbox"],
              "properties": {
                "text": {"type": "string"},
                "bbox": {"$ref": "#/definitions/bbox"},
                "fonts": {"type": "array", "items": {"type": "string"}}
              }
            }
          },
          "images": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["bbox"],
              "properties": {
                "name": {"type": "string"},
                "bbox": {"$ref": "#/definitions/bbox"}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "bbox": {
      "type": "array",
      "items": {"type": "number"},
      "minItems": 4,
      "maxItems": 4
    }
  }
}`

var fixtureSchema = mustSchema(fixtureSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// ValidateFixtureJSON checks raw JSON against the layout fixture schema
func ValidateFixtureJSON(data []byte) error {
	result, err := fixtureSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "layout is not valid JSON", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "layout does not match schema", nil).
			WithContext("violations", msgs)
	}
	return nil
}

// Fixture is a layout.Document built from pre-extracted blocks. Each block
// becomes one span.
type Fixture struct {
	layout *types.LayoutFixture
}

var _ layout.Document = (*Fixture)(nil)

// ParseFixture validates and decodes a JSON layout fixture
func ParseFixture(data []byte) (*Fixture, error) {
	if err := ValidateFixtureJSON(data); err != nil {
		return nil, err
	}
	var lf types.LayoutFixture
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "failed to decode layout", err)
	}
	return NewFixture(&lf), nil
}

// NewFixture wraps an already decoded layout. A nil layout has no pages.
func NewFixture(lf *types.LayoutFixture) *Fixture {
	if lf == nil {
		lf = &types.LayoutFixture{}
	}
	return &Fixture{layout: lf}
}

func (f *Fixture) pageAt(n int) (*types.FixturePage, error) {
	if n < 1 || n > len(f.layout.Pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, len(f.layout.Pages))
	}
	return &f.layout.Pages[n-1], nil
}

func (f *Fixture) PageCount() int {
	return len(f.layout.Pages)
}

func (f *Fixture) PageSize(n int) (float64, float64, error) {
	p, err := f.pageAt(n)
	if err != nil {
		return 0, 0, err
	}
	return p.Width, p.Height, nil
}

func (f *Fixture) TextSpans(n int) ([]layout.Span, error) {
	p, err := f.pageAt(n)
	if err != nil {
		return nil, err
	}
	spans := make([]layout.Span, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		spans = append(spans, layout.Span{Text: b.Text, BBox: b.BBox, Fonts: b.Fonts})
	}
	return spans, nil
}

func (f *Fixture) Images(n int) ([]types.ImageBox, error) {
	p, err := f.pageAt(n)
	if err != nil {
		return nil, err
	}
	out := make([]types.ImageBox, 0, len(p.Images))
	for _, img := range p.Images {
		bbox := img.BBox
		out = append(out, types.ImageBox{
			Page:   n,
			Name:   img.Name,
			BBox:   &bbox,
			Width:  bbox.Width(),
			Height: bbox.Height(),
		})
	}
	return out, nil
}

// ClipText joins the text of blocks whose centre lies inside clip
func (f *Fixture) ClipText(n int, clip types.Rect) (string, error) {
	p, err := f.pageAt(n)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, b := range p.Blocks {
		cx, cy := (b.BBox.X0+b.BBox.X1)/2, (b.BBox.Y0+b.BBox.Y1)/2
		if cx >= clip.X0 && cx <= clip.X1 && cy >= clip.Y0 && cy <= clip.Y1 && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, " "), nil
}

func (f *Fixture) Close() error {
	return nil
}
