package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidset/internal/handler"
	"vidset/internal/metrics"
)

func SetupRouter(r *gin.Engine, hdl handler.Handler) {
	api := r.Group("/api")
	{
		api.POST("/jobs", hdl.SubmitJob)
		api.GET("/jobs", hdl.ListJobs)
		api.GET("/jobs/:id", hdl.GetJob)
		api.POST("/jobs/:id/cancel", hdl.CancelJob)
		api.GET("/dataset/stats", hdl.DatasetStats)
		api.POST("/dataset/balance", hdl.Balance)
		api.POST("/videos/info", hdl.VideoInfo)
		api.POST("/fingerprint/similarity", hdl.Similarity)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}
