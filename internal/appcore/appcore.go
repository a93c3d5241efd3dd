// Package appcore is the job vocabulary shared by the service, the runners and the API.
package appcore

import (
	"context"
	"strings"
	"time"

	apperrors "vidset/pkg/errors"
)

type JobType string

const (
	JobQuality       JobType = "quality"
	JobDuplicates    JobType = "duplicates"
	JobSplit         JobType = "split"
	JobExtractFrames JobType = "extract_frames"
	JobThumbnail     JobType = "thumbnail"
	JobSummary       JobType = "summary"
	JobReport        JobType = "report"
)

var jobTypes = []JobType{JobQuality, JobDuplicates, JobSplit, JobExtractFrames, JobThumbnail, JobSummary, JobReport}

func JobTypes() []JobType {
	return append([]JobType(nil), jobTypes...)
}

func ParseJobType(name string) (JobType, error) {
	t := JobType(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range jobTypes {
		if t == known {
			return t, nil
		}
	}
	return "", apperrors.Newf(apperrors.CodeInvalidParams, "未知的任务类型 unknown job type %q", name)
}

// JobRequest describes one job. InputPath is a video or a dataset directory depending on Type;
// Args carries the type-specific options decoded from JSON.
type JobRequest struct {
	ID        string
	Type      JobType
	InputPath string
	OutputDir string
	Args      map[string]any
	Metadata  map[string]string
}

type JobStage uint8

const (
	JobStageQueued JobStage = iota + 1
	JobStagePreparing
	JobStageProcessing
	JobStageFinalizing
	JobStageSucceeded
	JobStageFailed
	JobStageCanceled
)

func (s JobStage) String() string {
	switch s {
	case JobStageQueued:
		return "queued"
	case JobStagePreparing:
		return "preparing"
	case JobStageProcessing:
		return "processing"
	case JobStageFinalizing:
		return "finalizing"
	case JobStageSucceeded:
		return "succeeded"
	case JobStageFailed:
		return "failed"
	case JobStageCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (s JobStage) IsTerminal() bool {
	return s == JobStageSucceeded || s == JobStageFailed || s == JobStageCanceled
}

type JobProgress struct {
	Stage     JobStage
	Current   int64
	Total     int64
	Percent   float64
	Message   string
	UpdatedAt time.Time
}

type JobEvent struct {
	JobID      string
	Stage      JobStage
	Progress   *JobProgress
	Message    string
	Err        error
	OccurredAt time.Time
}

type JobResult struct {
	JobID      string
	Stage      JobStage
	OutputPath string
	Artifacts  map[string]string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

type JobHandle interface {
	ID() string
	Events() <-chan JobEvent
	Result() <-chan JobResult
	Cancel() error
}

type Runner interface {
	Submit(ctx context.Context, req JobRequest) (JobHandle, error)
}

// Executor performs the work of one job, reporting progress through report.
type Executor interface {
	Execute(ctx context.Context, req JobRequest, report func(JobProgress)) (JobResult, error)
}
