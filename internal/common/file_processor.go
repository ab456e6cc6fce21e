package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"atslens/internal/errors"
	"atslens/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor instance. Input files larger
// than maxSize bytes are rejected; zero means no limit.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError(errors.ErrCodeDirCreateFailed,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	// Write to a temp file and rename so watchers never see a partial report
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.WriteString(content)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmpName, filename)
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("Cannot write file: %s", filename), werr)
	}

	return nil
}

// ValidateDocument checks that filename is an existing PDF or layout fixture
// within the size limit
func (fp *FileProcessor) ValidateDocument(filename string) error {
	if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
		code := errors.ErrCodeInvalidInputFile
		if info, statErr := os.Stat(filename); statErr == nil && fp.maxSize > 0 && info.Size() > fp.maxSize {
			code = errors.ErrCodeFileTooLarge
		}
		return errors.NewValidationError(code,
			fmt.Sprintf("Invalid file %s", filename), err).WithContext("file", filename)
	}

	if !utils.IsDocumentFile(filename) {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported document type %q, expected one of %v", utils.GetFileExtension(filename), utils.DocumentExtensions), nil).
			WithContext("file", filename)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidOutputFile,
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
