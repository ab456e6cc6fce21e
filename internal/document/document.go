package document

import (
	"os"
	"path/filepath"
	"strings"

	"atslens/internal/errors"
	"atslens/internal/layout"
)

// Open returns a Document for a PDF or a JSON layout fixture, chosen by
// file extension. The caller must Close it.
func Open(path string) (layout.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc, err := OpenPDF(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read layout file", err).
				WithContext("file", path)
		}
		doc, err := ParseFixture(data)
		if err != nil {
			return nil, err
		}
		return doc, nil
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "unsupported document type, expected .pdf or .json", nil).
			WithContext("file", path)
	}
}
