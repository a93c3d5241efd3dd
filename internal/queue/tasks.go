// Package queue provides job handlers for Asynq background processing.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"vidset/internal/appcore"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// JobRunner executes a prepared job. *service.Service implements it.
type JobRunner interface {
	RunJob(ctx context.Context, req appcore.JobRequest, observe func(appcore.JobProgress)) (appcore.JobResult, error)
}

// TaskHandlers provides handlers for every job type
type TaskHandlers struct {
	runner JobRunner
}

// NewTaskHandlers creates a new TaskHandlers instance
func NewTaskHandlers(runner JobRunner) *TaskHandlers {
	return &TaskHandlers{runner: runner}
}

// HandleJob decodes the payload and runs the job. Invalid payloads and parameter
// errors are not retried.
func (h *TaskHandlers) HandleJob(ctx context.Context, t *asynq.Task) error {
	var payload JobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if TaskType(payload.Type) != t.Type() {
		return fmt.Errorf("payload type %q does not match task %q: %w", payload.Type, t.Type(), asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing job",
		zap.String("job_id", payload.JobID),
		zap.String("job_type", string(payload.Type)),
		zap.String("input", payload.InputPath))

	_, err := h.runner.RunJob(ctx, payload.Request(), nil)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeInvalidParams) || apperrors.Is(err, apperrors.CodeNoVideos) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.GetLogger().Info("[Queue] Job completed",
		zap.String("job_id", payload.JobID))

	return nil
}

// RegisterHandlers registers a handler for every job type with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	for _, t := range appcore.JobTypes() {
		mux.HandleFunc(TaskType(t), h.HandleJob)
	}
}

// StartWorker starts the Asynq worker with registered handlers. It blocks until shutdown.
func StartWorker(q *Queue, runner JobRunner) error {
	handlers := NewTaskHandlers(runner)

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Run(mux)
}
