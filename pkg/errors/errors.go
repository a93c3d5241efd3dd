// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent CLI and API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeQueueFull     = 1003

	// Video decode/encode errors (1100-1199)
	CodeVideoUnavailable  = 1100
	CodeVideoNotFound     = 1101
	CodeDecodeFailed      = 1102
	CodeDecodeTimeout     = 1103
	CodeEncodeFailed      = 1104
	CodeUnsupportedFormat = 1105

	// Analysis errors (1200-1299)
	CodeIncomparableFingerprint = 1200
	CodePartialBatchFailure     = 1201
	CodeUnknownStrategy         = 1202
	CodeNoVideos                = 1203

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502

	// Segmenter errors (1600-1699)
	CodeSegmentInvalidOverlap = 1600
	CodeSegmentWriteFailed    = 1601

	// Dataset errors (1700-1799)
	CodeInvalidSplitRatios = 1700
	CodeUnknownCategory    = 1701
	CodeCopyFailed         = 1702
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code int, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetDetail extracts detail from error, empty if not AppError
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "参数错误 Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "资源不存在 Resource not found")
	ErrQueueFull     = New(CodeQueueFull, "任务队列已满 Job queue is full")

	// Video
	ErrVideoUnavailable = New(CodeVideoUnavailable, "视频无法打开 Video unavailable")
	ErrVideoNotFound    = New(CodeVideoNotFound, "视频不存在 Video not found")
	ErrDecodeFailed     = New(CodeDecodeFailed, "视频解码失败 Decode failed")
	ErrDecodeTimeout    = New(CodeDecodeTimeout, "视频解码超时 Decode timeout")
	ErrEncodeFailed     = New(CodeEncodeFailed, "视频编码失败 Encode failed")

	// Analysis
	ErrPartialBatchFailure = New(CodePartialBatchFailure, "部分条目处理失败 Partial batch failure")
	ErrUnknownStrategy     = New(CodeUnknownStrategy, "未知的关键帧策略 Unknown key-frame strategy")
	ErrNoVideos            = New(CodeNoVideos, "未找到视频 No videos found")

	// Storage
	ErrDBError      = New(CodeDBError, "数据库错误 Database error")
	ErrFileNotFound = New(CodeFileNotFound, "文件不存在 File not found")

	// Segmenter
	ErrSegmentInvalidOverlap = New(CodeSegmentInvalidOverlap, "重叠时长必须小于片段时长 Overlap must be shorter than segment duration")

	// Dataset
	ErrInvalidSplitRatios = New(CodeInvalidSplitRatios, "数据集划分比例无效 Invalid split ratios")
	ErrUnknownCategory    = New(CodeUnknownCategory, "未知类别 Unknown category")
)
