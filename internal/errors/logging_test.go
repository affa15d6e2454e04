package errors

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*Logger, *test.Hook) {
	base, hook := test.NewNullLogger()
	return &Logger{Logger: base}, hook
}

func TestLogger_LogRetryableError_Levels(t *testing.T) {
	logger, hook := newTestLogger()

	logger.LogRetryableError(WrapRetryable(errors.New("timeout"), ErrCodeIngestAPI, "delivery failed"), "attempt failed")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	hook.Reset()

	logger.LogRetryableError(New(ErrCodeIngestRejected, "rejected"), "attempt failed")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestLogger_WithError_AddsAppErrorFields(t *testing.T) {
	logger, hook := newTestLogger()

	err := New(ErrCodeStoreQuery, "save failed").WithContext("submissionId", "sub-1")
	logger.WithError(err).Error("store write failed")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, ErrCodeStoreQuery, entry.Data["error_code"])
	assert.Equal(t, false, entry.Data["retryable"])
	assert.Equal(t, "sub-1", entry.Data["submissionId"])
}

func TestLogger_LogError_MergesFields(t *testing.T) {
	logger, hook := newTestLogger()

	logger.LogError(errors.New("boom"), "operation failed", logrus.Fields{"op": "sync"})

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "sync", hook.LastEntry().Data["op"])
}
