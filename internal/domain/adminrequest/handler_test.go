package adminrequest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"earnaura/internal/middleware"
	"earnaura/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerEnv struct {
	*testEnv
	router *gin.Engine
	jwt    *jwt.Service
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := newTestEnv(t, Config{})
	jwtSvc := jwt.New("handler-secret", time.Hour)

	r := gin.New()
	protected := r.Group("/api", middleware.JWTAuth(jwtSvc))
	h := NewHandler(env.svc)
	h.RegisterUserRoutes(protected)
	h.RegisterReviewerRoutes(protected)

	return &handlerEnv{testEnv: env, router: r, jwt: jwtSvc}
}

func (e *handlerEnv) do(t *testing.T, userID int64, role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	e.authorize(t, req, userID, role)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *handlerEnv) authorize(t *testing.T, req *http.Request, userID int64, role string) {
	t.Helper()
	token, err := e.jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func submitBody() map[string]any {
	return map[string]any{
		"full_name":            "Asha Rao",
		"college_name":         "IIT Madras",
		"requested_admin_type": "campus_admin",
		"institutional_email":  "asha@iitm.ac.in",
		"motivation":           strings.Repeat("x", 60),
	}
}

func TestHandler_SubmitAndStatus(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.do(t, 1, "student", http.MethodGet, "/api/admin/campus/request/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"has_request":false,"request":null}`, string(decode(t, w).Data))

	w = e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/request", submitBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created AdminRequest
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, StatusPending, created.Status)

	w = e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/request", submitBody())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REQUEST_ALREADY_ACTIVE", decode(t, w).Error.Code)

	w = e.do(t, 1, "student", http.MethodGet, "/api/admin/campus/request/status", nil)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &status))
	assert.True(t, status.HasRequest)
	assert.Equal(t, created.ID, status.Request.ID)
}

func TestHandler_SubmitValidation(t *testing.T) {
	e := newHandlerEnv(t)

	body := submitBody()
	body["motivation"] = "too short"
	w := e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/request", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestHandler_VerifyEmailTwice(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/request", submitBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/verify-email/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email_verified":true,"auto_approved":false,"status":"pending"}`, string(decode(t, w).Data))

	w = e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/verify-email/1", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Institutional email already verified", decode(t, w).Error.Message)
}

func TestHandler_UploadDocument(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/request", submitBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_type", DocStudentID))
	fw, err := mw.CreateFormFile("file", "id.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/campus/upload-document/1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	e.authorize(t, req, 1, "student")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc Document
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &doc))
	assert.Equal(t, DocStudentID, doc.DocumentType)
	assert.Equal(t, "image/png", doc.MimeType)
}

func TestHandler_ReviewerRoutesNeedSuperAdmin(t *testing.T) {
	e := newHandlerEnv(t)

	for _, role := range []string{"student", "campus_admin", "club_admin"} {
		w := e.do(t, 1, role, http.MethodGet, "/api/super-admin/admin-requests", nil)
		assert.Equal(t, http.StatusForbidden, w.Code, role)
	}

	w := e.do(t, 9, "super_admin", http.MethodGet, "/api/super-admin/admin-requests?status=pending", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ReviewFlow(t *testing.T) {
	e := newHandlerEnv(t)

	w := e.do(t, 1, "student", http.MethodPost, "/api/admin/campus/request", submitBody())
	require.Equal(t, http.StatusCreated, w.Code)

	base := "/api/super-admin/admin-requests/1"

	w = e.do(t, 9, "super_admin", http.MethodPost, base+"/review", map[string]string{"decision": "reject"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REJECTION_REASON_REQUIRED", decode(t, w).Error.Code)

	w = e.do(t, 9, "super_admin", http.MethodPost, base+"/start-review", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, 9, "super_admin", http.MethodPost, base+"/review", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "campus_admin", string(e.promoter.calls[1]))

	w = e.do(t, 9, "super_admin", http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got AdminRequest
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, StatusApproved, got.Status)

	w = e.do(t, 9, "super_admin", http.MethodGet, "/api/super-admin/admin-requests/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
