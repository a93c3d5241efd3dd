package handler

import (
	"github.com/gin-gonic/gin"

	"vidset/internal/dto"
	"vidset/internal/fingerprint"
	"vidset/internal/response"
	apperrors "vidset/pkg/errors"
)

func (h Handler) DatasetStats(c *gin.Context) {
	var req dto.DatasetStatsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 root is required", err))
		return
	}
	stats, err := h.Backend.Stats(req.Root)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, stats)
}

func (h Handler) Balance(c *gin.Context) {
	var req dto.BalanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 root is required", err))
		return
	}
	report, err := h.Backend.Balance(req.Root)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, report)
}

func (h Handler) VideoInfo(c *gin.Context) {
	var req dto.VideoInfoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 path is required", err))
		return
	}
	info, err := h.Backend.VideoInfo(c.Request.Context(), req.Path)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.VideoInfoRes{
		Path:       req.Path,
		FPS:        info.FPS,
		Width:      info.Width,
		Height:     info.Height,
		FrameCount: info.FrameCount,
		Duration:   info.Duration,
	})
}

// Similarity needs no backend: fingerprints are compared as given.
func (h Handler) Similarity(c *gin.Context) {
	var req dto.SimilarityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 two fingerprints required", err))
		return
	}
	response.Success(c, dto.SimilarityRes{
		Similarity: fingerprint.Similarity(req.A, req.B),
		Comparable: fingerprint.Comparable(req.A, req.B),
	})
}
