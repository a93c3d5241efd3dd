package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"vidset/internal/response"
	apperrors "vidset/pkg/errors"
)

// DownloadFile serves job artifacts and reports by their "jobs/..." or "reports/..." path.
func (h Handler) DownloadFile(c *gin.Context) {
	requested := c.Param("filepath")
	if hasParentTraversal(requested) {
		response.Abort(c, http.StatusForbidden, apperrors.New(apperrors.CodeInvalidParams, "非法路径 Invalid path"))
		return
	}
	localFilePath, ok := resolveDownloadPath(requested)
	if !ok || !isRegularFile(localFilePath) {
		response.Abort(c, http.StatusNotFound, apperrors.ErrFileNotFound)
		return
	}
	c.FileAttachment(localFilePath, filepath.Base(localFilePath))
}
