package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vidset/internal/analysis"
	"vidset/internal/appcore"
	"vidset/internal/batch"
	"vidset/internal/metrics"
	"vidset/internal/types"
	"vidset/log"
	apperrors "vidset/pkg/errors"
	"vidset/pkg/util"
)

var _ appcore.Executor = (*Service)(nil)

// PrepareJob validates req, fills in the id and output directory, and records the job as queued.
func (s *Service) PrepareJob(ctx context.Context, req appcore.JobRequest) (appcore.JobRequest, error) {
	jobType, err := appcore.ParseJobType(string(req.Type))
	if err != nil {
		return req, err
	}
	req.Type = jobType
	if strings.TrimSpace(req.InputPath) == "" {
		return req, apperrors.New(apperrors.CodeInvalidParams, "参数错误 input_path is required")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.OutputDir == "" {
		if req.OutputDir, err = resolveJobDir(req.ID); err != nil {
			return req, apperrors.Wrap(apperrors.CodeInvalidParams, "无法确定输出目录 resolve job directory", err)
		}
	}

	if s.Store != nil {
		args, _ := json.Marshal(req.Args)
		job := &types.Job{
			JobId:     req.ID,
			Type:      string(req.Type),
			Stage:     uint8(appcore.JobStageQueued),
			InputPath: req.InputPath,
			OutputDir: req.OutputDir,
			Args:      string(args),
			Message:   "排队中 Queued",
		}
		if err = s.Store.SaveJob(ctx, job); err != nil {
			return req, err
		}
	}
	return req, nil
}

// RunJob executes a prepared job and keeps its persisted record current. observe, when
// set, receives every progress update as well.
func (s *Service) RunJob(ctx context.Context, req appcore.JobRequest, observe func(appcore.JobProgress)) (appcore.JobResult, error) {
	done := metrics.JobStarted(string(req.Type))
	report := func(p appcore.JobProgress) {
		s.recordProgress(ctx, req.ID, p)
		if observe != nil {
			observe(p)
		}
	}
	report(appcore.JobProgress{Stage: appcore.JobStagePreparing, Message: "准备中 Preparing", UpdatedAt: time.Now()})

	result, err := s.Execute(ctx, req, report)
	done(err)
	if err != nil {
		result.Stage = appcore.JobStageFailed
		if ctx.Err() != nil {
			result.Stage = appcore.JobStageCanceled
		}
		result.Err = err
	}
	s.finishJob(req.ID, result)
	return result, err
}

// MarkCanceled finalizes the record of a job that was canceled before it ran.
func (s *Service) MarkCanceled(jobID string) {
	now := time.Now()
	s.finishJob(jobID, appcore.JobResult{
		JobID: jobID, Stage: appcore.JobStageCanceled, StartedAt: now, FinishedAt: now, Err: context.Canceled,
	})
}

func (s *Service) recordProgress(ctx context.Context, jobID string, p appcore.JobProgress) {
	if s.Store == nil {
		return
	}
	if err := s.Store.UpdateJobProgress(ctx, jobID, p.Stage, p.Current, p.Total, p.Message); err != nil {
		log.GetLogger().Warn("failed to record job progress", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Service) finishJob(jobID string, result appcore.JobResult) {
	if s.Store == nil {
		return
	}
	// the job context may already be canceled
	ctx := context.Background()
	job, err := s.Store.GetJob(ctx, jobID)
	if err != nil {
		log.GetLogger().Warn("job record missing", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	now := time.Now()
	job.Stage = uint8(result.Stage)
	job.FinishedAt = &now
	if result.Err != nil {
		job.FailReason = result.Err.Error()
		job.Message = "任务失败 Failed"
	} else {
		job.Message = "任务完成 Succeeded"
	}
	data, _ := json.Marshal(result.Artifacts)
	job.Result = string(data)
	if err = s.Store.SaveJob(ctx, job); err != nil {
		log.GetLogger().Warn("failed to save job result", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.CodeDBError, "数据库未初始化 database not initialized")
	}
	return s.Store.GetJob(ctx, jobID)
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]types.Job, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.CodeDBError, "数据库未初始化 database not initialized")
	}
	return s.Store.ListJobs(ctx, limit)
}

// Execute runs one job and writes its artifacts into req.OutputDir.
func (s *Service) Execute(ctx context.Context, req appcore.JobRequest, report func(appcore.JobProgress)) (appcore.JobResult, error) {
	result := appcore.JobResult{JobID: req.ID, StartedAt: time.Now(), Artifacts: map[string]string{}}
	if report == nil {
		report = func(appcore.JobProgress) {}
	}
	progress := func(done, total int) {
		report(appcore.JobProgress{
			Stage:     appcore.JobStageProcessing,
			Current:   int64(done),
			Total:     int64(total),
			Percent:   float64(done) * 100 / float64(max(total, 1)),
			UpdatedAt: time.Now(),
		})
	}
	report(appcore.JobProgress{Stage: appcore.JobStageProcessing, Message: "处理中 Processing", UpdatedAt: time.Now()})

	var err error
	switch req.Type {
	case appcore.JobQuality:
		err = s.qualityJob(ctx, req, progress, &result)
	case appcore.JobDuplicates:
		err = s.duplicatesJob(ctx, req, progress, &result)
	case appcore.JobSplit:
		err = s.splitJob(ctx, req, &result)
	case appcore.JobExtractFrames:
		err = s.extractJob(ctx, req, progress, &result)
	case appcore.JobThumbnail:
		out := filepath.Join(req.OutputDir, "thumbnail."+argString(req.Args, "format", "jpg"))
		err = s.Thumbnail(ctx, req.InputPath, out, argString(req.Args, "method", "middle"))
		result.OutputPath = out
	case appcore.JobSummary:
		out := filepath.Join(req.OutputDir, "summary.mp4")
		err = s.Summary(ctx, req.InputPath, out, argInt(req.Args, "frames", 0))
		result.OutputPath = out
	case appcore.JobReport:
		var files ReportFiles
		files, err = s.WriteReports(ctx, req.InputPath, req.OutputDir, argBool(req.Args, "analysis", true))
		result.OutputPath = files.Report
		if files.Analysis != "" {
			result.Artifacts["analysis"] = files.Analysis
		}
	default:
		err = apperrors.Newf(apperrors.CodeInvalidParams, "未知的任务类型 unknown job type %q", req.Type)
	}

	result.FinishedAt = time.Now()
	if err != nil {
		result.Stage = appcore.JobStageFailed
		result.Err = err
		return result, err
	}
	if result.OutputPath != "" {
		result.Artifacts["output"] = result.OutputPath
	}
	result.Stage = appcore.JobStageSucceeded
	report(appcore.JobProgress{Stage: appcore.JobStageFinalizing, Message: "完成 Done", UpdatedAt: time.Now()})
	return result, nil
}

type qualityArtifact struct {
	Reports []analysis.QualityReport `json:"reports"`
	Failed  map[string]string        `json:"failed,omitempty"`
}

func (s *Service) qualityJob(ctx context.Context, req appcore.JobRequest, progress Progress, result *appcore.JobResult) error {
	outcomes, err := s.QualityReports(ctx, []string{req.InputPath}, progress)
	if err != nil && !apperrors.Is(err, apperrors.CodePartialBatchFailure) {
		return err
	}
	artifact := qualityArtifact{Reports: []analysis.QualityReport{}, Failed: batchFailures(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			artifact.Reports = append(artifact.Reports, o.Value)
		}
	}
	if len(artifact.Reports) == 0 {
		return err
	}
	result.OutputPath = filepath.Join(req.OutputDir, "quality.json")
	return writeArtifact(result.OutputPath, artifact)
}

func (s *Service) duplicatesJob(ctx context.Context, req appcore.JobRequest, progress Progress, result *appcore.JobResult) error {
	report, err := s.Duplicates(ctx, []string{req.InputPath}, argFloat(req.Args, "threshold", 0), progress)
	if err != nil {
		return err
	}
	result.OutputPath = filepath.Join(req.OutputDir, "duplicates.json")
	return writeArtifact(result.OutputPath, report)
}

func (s *Service) splitJob(ctx context.Context, req appcore.JobRequest, result *appcore.JobResult) error {
	duration := argFloat(req.Args, "segment_duration", 0)
	if duration <= 0 {
		return apperrors.New(apperrors.CodeInvalidParams, "参数错误 segment_duration must be positive")
	}
	files, err := s.Segment(ctx, req.InputPath, req.OutputDir, duration, argFloat(req.Args, "overlap", 0))
	if err != nil {
		return err
	}
	for i, f := range files {
		result.Artifacts[fmt.Sprintf("segment_%03d", i)] = f
	}
	result.OutputPath = req.OutputDir
	return nil
}

func (s *Service) extractJob(ctx context.Context, req appcore.JobRequest, progress Progress, result *appcore.JobResult) error {
	outDir := filepath.Join(req.OutputDir, "frames")
	written, err := s.ExtractFrames(ctx, req.InputPath, outDir, argFloat(req.Args, "fps", 0), argString(req.Args, "format", ""), progress)
	if err != nil && (written == 0 || !apperrors.Is(err, apperrors.CodePartialBatchFailure)) {
		return err
	}
	result.Artifacts["frames"] = strconv.Itoa(written)
	result.OutputPath = outDir
	return nil
}

func writeArtifact(path string, v any) error {
	if err := util.WriteJSONFile(path, v); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入结果失败 write result", path, err)
	}
	return nil
}

func argFloat(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	return int(argFloat(args, key, float64(def)))
}

func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

func argBool(args map[string]any, key string, def bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// batchFailures maps each failed item to its error text.
func batchFailures[T any](outcomes []batch.Outcome[T]) map[string]string {
	failed := map[string]string{}
	for _, o := range batch.Failed(outcomes) {
		failed[o.Item] = o.Err.Error()
	}
	return failed
}
