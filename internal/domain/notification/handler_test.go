package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"earnaura/internal/domain/realtime"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, userID int64) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := newTestService(t)
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	RegisterRoutes(api, NewHandler(svc, nil))
	return r, svc
}

func doJSONRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_ListAndMarkRead(t *testing.T) {
	r, svc := setupRouter(t, 5)
	n, err := svc.Notify(context.Background(), 5, realtime.EventNotification, "Hi", "hello", PriorityLow, nil)
	require.NoError(t, err)

	w := doJSONRequest(r, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Success bool                     `json:"success"`
		Data    NotificationListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.True(t, list.Success)
	require.Len(t, list.Data.Notifications, 1)
	assert.Equal(t, int64(1), list.Data.UnreadCount)

	path := "/api/notifications/" + strconv.FormatInt(n.ID, 10) + "/read"
	assert.Equal(t, http.StatusOK, doJSONRequest(r, http.MethodPatch, path, nil).Code)
	assert.Equal(t, http.StatusOK, doJSONRequest(r, http.MethodPatch, path, nil).Code)

	w = doJSONRequest(r, http.MethodGet, "/api/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"unread_count":0}}`, w.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	r, _ := setupRouter(t, 5)

	w := doJSONRequest(r, http.MethodPatch, "/api/notifications/abc/read", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSONRequest(r, http.MethodPatch, "/api/notifications/999/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSONRequest(r, http.MethodDelete, "/api/notifications/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	r, _ := setupRouter(t, 0)
	w := doJSONRequest(r, http.MethodPost, "/api/notifications/read-all", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
