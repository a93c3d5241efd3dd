package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"vidset/internal/appcore"
	"vidset/internal/dto"
	"vidset/internal/response"
	"vidset/internal/types"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

func (h Handler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("SubmitJob ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 Invalid parameters", err))
		return
	}
	jobType, err := appcore.ParseJobType(req.Type)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	log.GetLogger().Info("SubmitJob received request", zap.String("type", req.Type), zap.String("input", req.InputPath))

	jobID, err := h.Jobs.Submit(c.Request.Context(), appcore.JobRequest{
		Type:      jobType,
		InputPath: req.InputPath,
		Args:      req.Args,
		Metadata:  req.Metadata,
	})
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.SubmitJobRes{JobId: jobID, Type: string(jobType), Stage: appcore.JobStageQueued.String()})
}

func (h Handler) ListJobs(c *gin.Context) {
	var req dto.ListJobsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 Invalid parameters", err))
		return
	}
	jobs, err := h.Backend.ListJobs(c.Request.Context(), req.Limit)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, lo.Map(jobs, func(job types.Job, _ int) dto.JobRes { return dto.JobFromModel(job) }))
}

func (h Handler) GetJob(c *gin.Context) {
	job, err := h.Backend.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.JobFromModel(*job))
}

func (h Handler) CancelJob(c *gin.Context) {
	jobID := c.Param("id")
	if err := h.Jobs.Cancel(jobID); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	log.GetLogger().Info("job cancel requested", zap.String("job_id", jobID))
	response.Success(c, gin.H{"job_id": jobID})
}
