package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DocumentExtensions lists the input types the analyzer can open
var DocumentExtensions = []string{".pdf", ".json"}

// ValidateInputFile checks that a file exists, is readable and, when
// maxSize is positive, is no larger than maxSize bytes
func ValidateInputFile(filename string, maxSize int64) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}

	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("file %s is %s, limit is %s", filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return nil
}

// ValidateOutputFile checks if the output file path is valid
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(ext)
}

// IsDocumentFile checks if the file is a PDF or a JSON layout fixture
func IsDocumentFile(filename string) bool {
	return slices.Contains(DocumentExtensions, GetFileExtension(filename))
}

// IsSidecarFile reports whether filename is a fields or diagnostics file
// that accompanies a document, such as resume.fields.yaml
func IsSidecarFile(filename string) bool {
	base := strings.ToLower(filepath.Base(filename))
	return strings.Contains(base, ".fields.") || strings.Contains(base, ".diagnostics.")
}

// Sidecar returns the first existing file named <stem>.<kind>.{json,yaml,yml}
// next to document, or "" when there is none
func Sidecar(document, kind string) string {
	stem := strings.TrimSuffix(document, filepath.Ext(document))
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		candidate := stem + "." + kind + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
