package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	return w
}

func TestValidation_ListsFieldsInMessage(t *testing.T) {
	w := record(func(c *gin.Context) {
		Validation(c, map[string]string{"motivation": "min", "college_name": "required"})
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, CodeValidation, body.Error.Code)
	assert.Equal(t, "Validation failed: college_name, motivation", body.Error.Message)
	assert.Equal(t, "min", body.Error.Details["motivation"])
}

func TestValidation_NoFields(t *testing.T) {
	w := record(func(c *gin.Context) { Validation(c, nil) })

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Error.Message)
}

func TestAbort_StopsChain(t *testing.T) {
	var aborted bool
	w := record(func(c *gin.Context) {
		Abort(c, http.StatusForbidden, CodeForbidden, "nope")
		aborted = c.IsAborted()
	})
	assert.True(t, aborted)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"FORBIDDEN","message":"nope"}}`, w.Body.String())
}
