package common

import (
	"fmt"
	"slices"

	"atslens/internal/formatters"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateConfiguredFormats checks that every configured format has a
// formatter behind it
func ValidateConfiguredFormats(supportedFormats []string) error {
	for _, f := range supportedFormats {
		if !formatters.GlobalRegistry.Supports(f) {
			return fmt.Errorf("configured format '%s' has no formatter. Available formats: %v",
				f, formatters.GlobalRegistry.GetSupportedFormats())
		}
	}
	return nil
}
