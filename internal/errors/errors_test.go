package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeNotFound, "transfer not found")
	err := fmt.Errorf("lookup: %w", New(CodeNotFound, "transfer_1 missing"))

	assert.True(t, stdErrors.Is(err, sentinel))
	assert.False(t, stdErrors.Is(err, New(CodeConflict, "")))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestRegisterOverridesAttributes(t *testing.T) {
	code := Code("TEST_REGISTERED")
	Register(code, Attributes{Message: "custom", Severity: SeverityWarning, Retryable: true, HTTPStatus: http.StatusTeapot})

	err := New(code, "")
	assert.Equal(t, "custom", err.Message())
	assert.True(t, err.Retryable())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, http.StatusTeapot, HTTPStatusOf(err))
	assert.Contains(t, Codes(), code)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	err := New(CodeStorageFailure, "boom", WithRetryable(false), WithAlert(false), WithSeverity(SeverityInfo), WithMetadata("key", "v"))
	assert.False(t, err.Retryable())
	assert.False(t, err.ShouldAlert())
	assert.Equal(t, SeverityInfo, err.Severity())
	assert.Equal(t, map[string]string{"key": "v"}, err.Metadata())
}

func TestReasonAndUnknown(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeQueueFailure, cause, "publish job")
	require.Equal(t, "publish job: connection refused", Reason(err))
	require.Equal(t, "[QUEUE_FAILURE] publish job: connection refused", err.Error())
	require.Equal(t, "plain", Reason(stdErrors.New("plain")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatusOf(stdErrors.New("plain")))
	require.Equal(t, CodeUnknown, CodeOf(nil))
}
