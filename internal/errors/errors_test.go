package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewNetworkError(ErrCodeParserUnavailable, "parser is down", cause)

	assert.Equal(t, ErrorTypeNetwork, err.Type)
	assert.Equal(t, "PARSER_UNAVAILABLE: parser is down (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := NewValidationError(ErrCodeInvalidFormat, "unsupported document type", nil)
	assert.Equal(t, "INVALID_FORMAT: unsupported document type", plain.Error())

	var appErr *AppError
	wrapped := stderrors.Join(stderrors.New("outer"), plain)
	require.True(t, stderrors.As(wrapped, &appErr))
	assert.Equal(t, ErrCodeInvalidFormat, appErr.Code)
}

func TestWithContext(t *testing.T) {
	err := NewIOError(ErrCodeFileTooLarge, "too big", nil).
		WithContext("size", 42).
		WithContext("limit", 10)
	assert.Equal(t, map[string]any{"size": 42, "limit": 10}, err.Context)
}

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			logger, err := New(level)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	_, err := New("verbose")
	assert.EqualError(t, err, "invalid log level: verbose")
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestLogError(t *testing.T) {
	t.Run("app error fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, slog.LevelInfo)
		logger.LogError(NewParseError(ErrCodeFieldsInvalid, "bad fields", nil).WithContext("file", "a.json"),
			"Analysis failed", "source", "cli")

		rec := decodeRecord(t, &buf)
		assert.Equal(t, "Analysis failed", rec["msg"])
		assert.Equal(t, "parse", rec["error_type"])
		assert.Equal(t, ErrCodeFieldsInvalid, rec["error_code"])
		assert.Equal(t, "a.json", rec["file"])
		assert.Equal(t, "cli", rec["source"])
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		NewLoggerTo(&buf, slog.LevelInfo).LogError(stderrors.New("boom"), "failed")
		assert.Equal(t, "boom", decodeRecord(t, &buf)["error"])
	})

	t.Run("with and levels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, slog.LevelWarn).With("request_id", "r1")
		logger.Info("dropped")
		assert.Zero(t, buf.Len())
		logger.Warn("kept")
		assert.Equal(t, "r1", decodeRecord(t, &buf)["request_id"])
	})
}
