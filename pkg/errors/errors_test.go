package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	// Test without cause
	err := New(CodeVideoUnavailable, "Test error")
	assert.Equal(t, "[1100] Test error", err.Error())

	// Test with cause
	cause := errors.New("underlying error")
	errWithCause := Wrap(CodeVideoUnavailable, "Test error", cause)
	assert.Contains(t, errWithCause.Error(), "underlying error")
	assert.Contains(t, errWithCause.Error(), "1100")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(CodeDecodeFailed, "Decode failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestIs(t *testing.T) {
	err := New(CodeSegmentInvalidOverlap, "overlap too large")

	assert.True(t, Is(err, CodeSegmentInvalidOverlap))
	assert.False(t, Is(err, CodeInvalidParams))

	wrapped := fmt.Errorf("split: %w", err)
	assert.True(t, Is(wrapped, CodeSegmentInvalidOverlap))

	regularErr := errors.New("regular error")
	assert.False(t, Is(regularErr, CodeSegmentInvalidOverlap))
}

func TestGetCode(t *testing.T) {
	appErr := New(CodePartialBatchFailure, "2 of 5 items failed")
	assert.Equal(t, CodePartialBatchFailure, GetCode(appErr))

	regularErr := errors.New("regular error")
	assert.Equal(t, CodeUnknown, GetCode(regularErr))
}

func TestGetMessage(t *testing.T) {
	appErr := New(CodeFileNotFound, "文件不存在 File not found")
	assert.Equal(t, "文件不存在 File not found", GetMessage(appErr))

	regularErr := errors.New("regular error message")
	assert.Equal(t, "regular error message", GetMessage(regularErr))
}

func TestWrapWithDetail(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapWithDetail(CodeSegmentWriteFailed, "write segment", "clip_segment_002.mp4", cause)

	assert.Equal(t, CodeSegmentWriteFailed, err.Code)
	assert.Equal(t, "clip_segment_002.mp4", GetDetail(err))
	assert.Equal(t, "", GetDetail(cause))
	assert.True(t, errors.Is(err, cause))
}

func TestNewf(t *testing.T) {
	err := Newf(CodeUnknownStrategy, "unknown strategy %q", "zigzag")
	assert.Equal(t, `[1202] unknown strategy "zigzag"`, err.Error())
}

func TestPredefinedErrors(t *testing.T) {
	assert.Equal(t, CodeInvalidParams, ErrInvalidParams.Code)
	assert.Equal(t, CodeVideoUnavailable, ErrVideoUnavailable.Code)
	assert.Equal(t, CodePartialBatchFailure, ErrPartialBatchFailure.Code)
	assert.Equal(t, CodeSegmentInvalidOverlap, ErrSegmentInvalidOverlap.Code)
	assert.Equal(t, CodeInvalidSplitRatios, ErrInvalidSplitRatios.Code)
}
