package dto

import (
	"encoding/json"
	"time"

	"vidset/internal/appcore"
	"vidset/internal/types"
)

type SubmitJobReq struct {
	Type      string            `json:"type" binding:"required"`
	InputPath string            `json:"input_path" binding:"required"`
	Args      map[string]any    `json:"args"`
	Metadata  map[string]string `json:"metadata"`
}

type SubmitJobRes struct {
	JobId string `json:"job_id"`
	Type  string `json:"type"`
	Stage string `json:"stage"`
}

type ListJobsReq struct {
	Limit int `form:"limit"`
}

type JobRes struct {
	JobId      string            `json:"job_id"`
	Type       string            `json:"type"`
	Stage      string            `json:"stage"`
	InputPath  string            `json:"input_path"`
	OutputDir  string            `json:"output_dir"`
	Current    int64             `json:"current"`
	Total      int64             `json:"total"`
	Percent    float64           `json:"percent"`
	Message    string            `json:"message,omitempty"`
	FailReason string            `json:"fail_reason,omitempty"`
	Result     map[string]string `json:"result,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// JobFromModel converts a persisted job. An unreadable result column is left out.
func JobFromModel(job types.Job) JobRes {
	res := JobRes{
		JobId:      job.JobId,
		Type:       job.Type,
		Stage:      appcore.JobStage(job.Stage).String(),
		InputPath:  job.InputPath,
		OutputDir:  job.OutputDir,
		Current:    job.Current,
		Total:      job.Total,
		Message:    job.Message,
		FailReason: job.FailReason,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.Total > 0 {
		res.Percent = float64(job.Current) * 100 / float64(job.Total)
	}
	if job.Result != "" {
		_ = json.Unmarshal([]byte(job.Result), &res.Result)
	}
	return res
}
