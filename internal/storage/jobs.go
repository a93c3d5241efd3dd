package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"vidset/internal/appcore"
	"vidset/internal/types"
	apperrors "vidset/pkg/errors"
)

// SaveJob inserts the job or updates the row with the same JobId.
func (s *Store) SaveJob(ctx context.Context, job *types.Job) error {
	var existing types.Job
	result := s.db.WithContext(ctx).Where("job_id = ?", job.JobId).First(&existing)

	if result.Error == nil {
		job.Id = existing.Id
		job.CreatedAt = existing.CreatedAt
		return dbErr(s.db.WithContext(ctx).Save(job).Error)
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return dbErr(s.db.WithContext(ctx).Create(job).Error)
	}
	return dbErr(result.Error)
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	var job types.Job
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNotFound, "任务不存在 Job not found", jobID, err)
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return &job, nil
}

// ListJobs returns the newest jobs first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []types.Job
	if err := s.db.WithContext(ctx).Order("created_at desc").Order("id desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, dbErr(err)
	}
	return jobs, nil
}

func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	return dbErr(s.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&types.Job{}).Error)
}

// UpdateJobProgress records a stage change without touching the other columns.
func (s *Store) UpdateJobProgress(ctx context.Context, jobID string, stage appcore.JobStage, current, total int64, message string) error {
	updates := map[string]any{
		"stage":   uint8(stage),
		"current": current,
		"total":   total,
		"message": message,
	}
	now := time.Now()
	if stage == appcore.JobStagePreparing {
		updates["started_at"] = &now
	}
	if stage.IsTerminal() {
		updates["finished_at"] = &now
	}
	result := s.db.WithContext(ctx).Model(&types.Job{}).Where("job_id = ?", jobID).Updates(updates)
	if result.Error != nil {
		return dbErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.WrapWithDetail(apperrors.CodeNotFound, "任务不存在 Job not found", jobID, nil)
	}
	return nil
}

// MarkStaleJobs fails every job left unfinished by a previous process.
// It should be called on startup before new jobs are accepted.
func (s *Store) MarkStaleJobs(ctx context.Context) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&types.Job{}).
		Where("stage IN ?", []uint8{
			uint8(appcore.JobStageQueued), uint8(appcore.JobStagePreparing),
			uint8(appcore.JobStageProcessing), uint8(appcore.JobStageFinalizing),
		}).
		Updates(map[string]any{
			"stage":       uint8(appcore.JobStageFailed),
			"fail_reason": "服务重启，任务被中断 Job interrupted by restart",
			"message":     "任务超时/中断 Job timeout/interrupted",
			"finished_at": &now,
		})
	return result.RowsAffected, dbErr(result.Error)
}

func dbErr(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.CodeDBError, "数据库错误 Database error", err)
}
