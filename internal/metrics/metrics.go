package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidset_operations_total",
		Help: "Total number of service operations, by operation and status",
	}, []string{"operation", "status"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidset_operation_duration_seconds",
		Help:    "Duration of service operations",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"operation"})

	VideosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidset_batch_videos_total",
		Help: "Videos handled by batch operations, by operation and status",
	}, []string{"operation", "status"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidset_frames_extracted_total",
		Help: "Total number of frame images written",
	})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidset_jobs_total",
		Help: "Finished jobs, by type and status",
	}, []string{"type", "status"})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidset_active_jobs",
		Help: "Number of jobs currently running",
	})
)

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// ObserveOperation records one finished operation started at start.
func ObserveOperation(operation string, start time.Time, err error) {
	OperationsTotal.WithLabelValues(operation, status(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func ObserveVideos(operation string, ok, failed int) {
	VideosTotal.WithLabelValues(operation, StatusSuccess).Add(float64(ok))
	VideosTotal.WithLabelValues(operation, StatusFailure).Add(float64(failed))
}

// JobStarted marks a job as running and returns the callback that records its result.
func JobStarted(jobType string) func(err error) {
	ActiveJobs.Inc()
	return func(err error) {
		ActiveJobs.Dec()
		JobsTotal.WithLabelValues(jobType, status(err)).Inc()
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
