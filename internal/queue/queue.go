// Package queue provides background job processing using Asynq.
// It supports reliable job queueing with retry logic and persistence.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"vidset/config"
	"vidset/internal/appcore"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// TypePrefix namespaces vidset task types; the job type follows it.
const TypePrefix = "vidset:"

// TaskType returns the asynq task type name for a job type.
func TaskType(t appcore.JobType) string {
	return TypePrefix + string(t)
}

// JobPayload is the serialized form of a prepared appcore.JobRequest.
type JobPayload struct {
	JobID     string            `json:"job_id"`
	Type      appcore.JobType   `json:"type"`
	InputPath string            `json:"input_path"`
	OutputDir string            `json:"output_dir"`
	Args      map[string]any    `json:"args,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func PayloadFor(req appcore.JobRequest) JobPayload {
	return JobPayload{
		JobID:     req.ID,
		Type:      req.Type,
		InputPath: req.InputPath,
		OutputDir: req.OutputDir,
		Args:      req.Args,
		Metadata:  req.Metadata,
	}
}

func (p JobPayload) Request() appcore.JobRequest {
	return appcore.JobRequest{
		ID:        p.JobID,
		Type:      p.Type,
		InputPath: p.InputPath,
		OutputDir: p.OutputDir,
		Args:      p.Args,
		Metadata:  p.Metadata,
	}
}

// NewJobTask builds the asynq task for a prepared request. Segment and report jobs are
// retried less since their outputs are rewritten from scratch.
func NewJobTask(req appcore.JobRequest) (*asynq.Task, error) {
	data, err := json.Marshal(PayloadFor(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	retries := 3
	if req.Type == appcore.JobSplit || req.Type == appcore.JobReport {
		retries = 1
	}
	return asynq.NewTask(TaskType(req.Type), data,
		asynq.MaxRetry(retries),
		asynq.Timeout(2*time.Hour),
		asynq.Queue("default"),
		asynq.TaskID(req.ID),
	), nil
}

// QueueConfig holds Redis configuration for Asynq
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Queue manages job enqueueing and processing
type Queue struct {
	client   *asynq.Client
	server   *asynq.Server
	redisOpt asynq.RedisClientOpt
	config   QueueConfig
}

// DefaultConfig returns default queue configuration
func DefaultConfig() QueueConfig {
	return QueueConfig{
		RedisAddr:   "localhost:6379",
		RedisDB:     0,
		Concurrency: 3,
	}
}

// ConfigFrom maps the [queue] config section, keeping defaults for unset values.
func ConfigFrom(cfg config.Queue) QueueConfig {
	q := DefaultConfig()
	if cfg.RedisAddr != "" {
		q.RedisAddr = cfg.RedisAddr
	}
	q.RedisPassword = cfg.RedisPassword
	q.RedisDB = cfg.RedisDB
	if cfg.Concurrency > 0 {
		q.Concurrency = cfg.Concurrency
	}
	return q
}

// RetryDelay backs off exponentially: 10s, 20s, 40s, 80s, ...
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(10<<uint(n)) * time.Second
}

// NewQueue creates a new Queue instance
func NewQueue(cfg QueueConfig) *Queue {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			RetryDelayFunc: RetryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.GetLogger().Error("Job failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	return &Queue{
		client:   client,
		server:   server,
		redisOpt: redisOpt,
		config:   cfg,
	}
}

// EnqueueJob adds a prepared job to the queue.
func (q *Queue) EnqueueJob(ctx context.Context, req appcore.JobRequest) error {
	task, err := NewJobTask(req)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeQueueFull, "任务入队失败 failed to enqueue job", err)
	}

	log.GetLogger().Info("Job enqueued",
		zap.String("job_id", req.ID),
		zap.String("job_type", string(req.Type)),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))

	return nil
}

// CancelJob removes a pending job from the queue, or asks the worker running it to stop.
// removed reports whether the job never started.
func (q *Queue) CancelJob(jobID string) (removed bool, err error) {
	inspector := asynq.NewInspector(q.redisOpt)
	defer inspector.Close()

	if err = inspector.DeleteTask("default", jobID); err == nil {
		log.GetLogger().Info("Queued job removed", zap.String("job_id", jobID))
		return true, nil
	}
	if err = inspector.CancelProcessing(jobID); err != nil {
		return false, apperrors.Wrap(apperrors.CodeNotFound, "任务不存在或已结束 job not active", err)
	}
	return false, nil
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	q.server.Shutdown()
	return nil
}

// Client returns the underlying Asynq client for advanced usage
func (q *Queue) Client() *asynq.Client {
	return q.client
}

// Server returns the underlying Asynq server for advanced usage
func (q *Queue) Server() *asynq.Server {
	return q.server
}
