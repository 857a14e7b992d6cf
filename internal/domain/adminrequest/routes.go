package adminrequest

import (
	"earnaura/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes mounts the requester side under /admin/campus. extra
// runs before submission and upload (rate limiting).
func (h *Handler) RegisterUserRoutes(protected *gin.RouterGroup, extra ...gin.HandlerFunc) {
	campus := protected.Group("/admin/campus")
	{
		campus.GET("/request/status", h.GetStatus)
		campus.POST("/request", with(extra, h.Submit)...)
		campus.POST("/verify-email/:id", h.VerifyEmail)
		campus.POST("/upload-document/:id", with(extra, h.UploadDocument)...)
	}
}

// RegisterReviewerRoutes mounts the super-admin review queue.
func (h *Handler) RegisterReviewerRoutes(protected *gin.RouterGroup) {
	reviews := protected.Group("/super-admin/admin-requests")
	reviews.Use(middleware.SuperAdminOnly())
	{
		reviews.GET("", h.List)
		reviews.GET("/:id", h.Get)
		reviews.POST("/:id/start-review", h.StartReview)
		reviews.POST("/:id/review", h.Review)
	}
}

func with(extra []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(extra)+1)
	out = append(out, extra...)
	return append(out, h)
}
