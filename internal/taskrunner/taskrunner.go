// Package taskrunner runs jobs in-process on a bounded queue with a fixed worker pool.
package taskrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"vidset/internal/appcore"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const (
	defaultQueueSize   = 128
	defaultConcurrency = 2
	eventBuffer        = 64
)

var ErrRunnerStopped = errors.New("task runner stopped")

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

// DefaultConfig returns a desktop-friendly default config.
func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// JobService prepares and executes jobs. *service.Service implements it.
type JobService interface {
	PrepareJob(ctx context.Context, req appcore.JobRequest) (appcore.JobRequest, error)
	RunJob(ctx context.Context, req appcore.JobRequest, observe func(appcore.JobProgress)) (appcore.JobResult, error)
	MarkCanceled(jobID string)
}

// Runner executes queued jobs with in-memory workers.
type Runner struct {
	service JobService
	config  Config

	queue  chan *handle
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*handle

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

var _ appcore.Runner = (*Runner)(nil)

// New creates and starts a task runner.
func New(svc JobService, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		service: svc,
		config:  cfg,
		queue:   make(chan *handle, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*handle),
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Submit validates and queues req. A full queue is reported as apperrors.CodeQueueFull.
func (r *Runner) Submit(ctx context.Context, req appcore.JobRequest) (appcore.JobHandle, error) {
	if r.closed.Load() {
		return nil, ErrRunnerStopped
	}

	prepared, err := r.service.PrepareJob(ctx, req)
	if err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(r.ctx)
	h := &handle{
		req:    prepared,
		ctx:    jobCtx,
		cancel: cancel,
		events: make(chan appcore.JobEvent, eventBuffer),
		result: make(chan appcore.JobResult, 1),
	}

	h.emit(appcore.JobEvent{Stage: appcore.JobStageQueued, Message: "已排队 Queued"})

	r.mu.Lock()
	r.jobs[prepared.ID] = h
	r.mu.Unlock()

	select {
	case <-r.ctx.Done():
		r.forget(prepared.ID)
		cancel()
		return nil, ErrRunnerStopped
	case r.queue <- h:
		log.GetLogger().Info("[TaskRunner] job submitted",
			zap.String("job_id", prepared.ID),
			zap.String("job_type", string(prepared.Type)))
		return h, nil
	default:
		r.forget(prepared.ID)
		cancel()
		r.service.MarkCanceled(prepared.ID)
		return nil, apperrors.ErrQueueFull
	}
}

// Cancel stops a queued or running job. It reports NotFound for unknown or finished jobs.
func (r *Runner) Cancel(jobID string) error {
	r.mu.Lock()
	h, ok := r.jobs[jobID]
	r.mu.Unlock()
	if !ok {
		return apperrors.Newf(apperrors.CodeNotFound, "任务不存在或已结束 job %s not active", jobID)
	}
	return h.Cancel()
}

func (r *Runner) forget(jobID string) {
	r.mu.Lock()
	delete(r.jobs, jobID)
	r.mu.Unlock()
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.drain()
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			r.drain()
			return
		case h := <-r.queue:
			r.processJob(workerID, h)
		}
	}
}

// drain resolves jobs still queued when the runner stops.
func (r *Runner) drain() {
	for {
		select {
		case h := <-r.queue:
			r.finishCanceled(h)
		default:
			return
		}
	}
}

func (r *Runner) finishCanceled(h *handle) {
	now := time.Now()
	r.service.MarkCanceled(h.req.ID)
	r.forget(h.req.ID)
	h.finish(appcore.JobResult{
		JobID: h.req.ID, Stage: appcore.JobStageCanceled, StartedAt: now, FinishedAt: now, Err: context.Canceled,
	})
}

func (r *Runner) processJob(workerID int, h *handle) {
	if h.ctx.Err() != nil {
		r.finishCanceled(h)
		return
	}

	result, err := r.service.RunJob(h.ctx, h.req, func(p appcore.JobProgress) {
		progress := p
		h.emit(appcore.JobEvent{Stage: p.Stage, Progress: &progress, Message: p.Message})
	})
	r.forget(h.req.ID)

	if err != nil {
		log.GetLogger().Error("[TaskRunner] job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", h.req.ID),
			zap.String("job_type", string(h.req.Type)),
			zap.Error(err))
	} else {
		log.GetLogger().Info("[TaskRunner] job completed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", h.req.ID),
			zap.String("job_type", string(h.req.Type)))
	}
	result.JobID = h.req.ID
	result.Err = err
	h.finish(result)
}

// Close stops workers and rejects new jobs. Queued jobs finish as canceled.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
	r.drain()
}

// Pending returns the number of queued jobs waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}

type handle struct {
	req    appcore.JobRequest
	ctx    context.Context
	cancel context.CancelFunc
	events chan appcore.JobEvent
	result chan appcore.JobResult
	once   sync.Once
}

func (h *handle) ID() string                       { return h.req.ID }
func (h *handle) Events() <-chan appcore.JobEvent  { return h.events }
func (h *handle) Result() <-chan appcore.JobResult { return h.result }

func (h *handle) Cancel() error {
	h.cancel()
	return nil
}

// emit never blocks; slow consumers lose intermediate events, never the result.
func (h *handle) emit(ev appcore.JobEvent) {
	ev.JobID = h.req.ID
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	select {
	case h.events <- ev:
	default:
	}
}

func (h *handle) finish(result appcore.JobResult) {
	h.once.Do(func() {
		h.emit(appcore.JobEvent{Stage: result.Stage, Message: result.Stage.String(), Err: result.Err})
		h.result <- result
		close(h.events)
		close(h.result)
		h.cancel()
	})
}
