package auth

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts register/login. extra runs before the handlers
// (rate limiting).
func (h *Handler) RegisterPublicRoutes(api *gin.RouterGroup, extra ...gin.HandlerFunc) {
	authGroup := api.Group("/auth", extra...)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}
