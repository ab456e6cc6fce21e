package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"atslens/internal/fonts"
	"atslens/internal/types"
)

// Output formats
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter(FormatJSON, "any", &JSONFormatter{})
	registry.RegisterFormatter(FormatYAML, "any", &YAMLFormatter{})
	registry.RegisterFormatter(FormatText, typeAnalysisResult, &ResultTextFormatter{})
	registry.RegisterFormatter(FormatMarkdown, typeAnalysisResult, &ResultMarkdownFormatter{})
	registry.RegisterFormatter(FormatText, typeExplanationContext, &ContextTextFormatter{})
	registry.RegisterFormatter(FormatMarkdown, typeExplanationContext, &ContextMarkdownFormatter{})
	registry.RegisterFormatter(FormatText, typeFontReport, &FontsTextFormatter{})
	registry.RegisterFormatter(FormatMarkdown, typeFontReport, &FontsMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Supports reports whether format is registered
func (fr *FormatterRegistry) Supports(format string) bool {
	return slices.Contains(fr.GetSupportedFormats(), format)
}

const (
	typeAnalysisResult     = "AnalysisResult"
	typeExplanationContext = "ExplanationContext"
	typeFontReport         = "FontReport"
)

// deref lets callers pass either values or pointers
func deref(data any) any {
	switch v := data.(type) {
	case *types.AnalysisResult:
		if v != nil {
			return *v
		}
	case *types.ExplanationContext:
		if v != nil {
			return *v
		}
	case *fonts.Report:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return typeAnalysisResult
	case types.ExplanationContext:
		return typeExplanationContext
	case fonts.Report:
		return typeFontReport
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter renders any data type as YAML. Keys follow the json tags
// and keep their declaration order.
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	// JSON is a YAML subset, so the node tree keeps field order.
	var node yaml.Node
	if err := yaml.Unmarshal(jsonData, &node); err != nil {
		return "", err
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle && n.Tag == "!!str" {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
