package middleware

import (
	"net/http"

	"earnaura/internal/pkg/jwt"
	"earnaura/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated user has one of the given roles
func RequireRole(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Role not found in token")
			return
		}

		if _, ok := set[role]; !ok {
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "Access denied: insufficient permissions")
			return
		}

		c.Next()
	}
}

// SuperAdminOnly guards reviewer endpoints.
func SuperAdminOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleReviewer)
}
