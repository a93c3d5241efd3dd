// Package server wires the HTTP API onto a job backend and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vidset/config"
	"vidset/internal/appcore"
	"vidset/internal/handler"
	"vidset/internal/queue"
	"vidset/internal/router"
	"vidset/internal/taskrunner"
	"vidset/log"
)

const shutdownTimeout = 10 * time.Second

// RunnerJobs submits jobs to the in-process task runner.
type RunnerJobs struct {
	Runner *taskrunner.Runner
}

func (j RunnerJobs) Submit(ctx context.Context, req appcore.JobRequest) (string, error) {
	h, err := j.Runner.Submit(ctx, req)
	if err != nil {
		return "", err
	}
	return h.ID(), nil
}

func (j RunnerJobs) Cancel(jobID string) error {
	return j.Runner.Cancel(jobID)
}

// JobPreparer validates a job and records it before it is handed to asynq.
type JobPreparer interface {
	PrepareJob(ctx context.Context, req appcore.JobRequest) (appcore.JobRequest, error)
	MarkCanceled(jobID string)
}

// QueueJobs submits jobs to asynq workers through Redis.
type QueueJobs struct {
	Service JobPreparer
	Queue   *queue.Queue
}

func (j QueueJobs) Submit(ctx context.Context, req appcore.JobRequest) (string, error) {
	prepared, err := j.Service.PrepareJob(ctx, req)
	if err != nil {
		return "", err
	}
	if err = j.Queue.EnqueueJob(ctx, prepared); err != nil {
		j.Service.MarkCanceled(prepared.ID)
		return "", err
	}
	return prepared.ID, nil
}

func (j QueueJobs) Cancel(jobID string) error {
	removed, err := j.Queue.CancelJob(jobID)
	if err != nil {
		return err
	}
	if removed {
		j.Service.MarkCanceled(jobID)
	}
	return nil
}

// NewEngine builds the gin engine with every API route registered.
func NewEngine(hdl handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	router.SetupRouter(r, hdl)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.GetLogger().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// StartBackend serves the API on the configured address until ctx is canceled.
func StartBackend(ctx context.Context, cfg config.Server, hdl handler.Handler) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: NewEngine(hdl),
	}

	errCh := make(chan error, 1)
	go func() {
		log.GetLogger().Info("服务启动 API server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.GetLogger().Info("服务关闭 API server shutting down")
	return srv.Shutdown(shutdownCtx)
}
