package handler

import (
	"context"

	"vidset/internal/analysis"
	"vidset/internal/appcore"
	"vidset/internal/dataset"
	"vidset/internal/media"
	"vidset/internal/types"
)

// Backend is the read side of the service the API exposes.
type Backend interface {
	GetJob(ctx context.Context, jobID string) (*types.Job, error)
	ListJobs(ctx context.Context, limit int) ([]types.Job, error)
	Stats(root string) (dataset.Statistics, error)
	Balance(root string) (analysis.BalanceReport, error)
	VideoInfo(ctx context.Context, path string) (media.VideoInfo, error)
}

// JobQueue accepts jobs for asynchronous execution, in-process or through asynq workers.
type JobQueue interface {
	Submit(ctx context.Context, req appcore.JobRequest) (string, error)
	Cancel(jobID string) error
}

type Handler struct {
	Backend Backend
	Jobs    JobQueue
}

func NewHandler(backend Backend, jobs JobQueue) Handler {
	return Handler{Backend: backend, Jobs: jobs}
}
