package response

import (
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// Codes shared by the middleware and every domain handler. Domain specific
// codes (REQUEST_ALREADY_ACTIVE and friends) stay next to their handlers.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Validation answers 400 with the per-field messages under error.details.
// The field names are also folded into error.message, which is the only part
// the notifywatch client shows to the user.
func Validation(c *gin.Context, fields map[string]string) {
	names := slices.Sorted(maps.Keys(fields))

	message := "Validation failed"
	if len(names) > 0 {
		message += ": " + strings.Join(names, ", ")
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    CodeValidation,
			"message": message,
			"details": fields,
		},
	})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
	c.Abort()
}
