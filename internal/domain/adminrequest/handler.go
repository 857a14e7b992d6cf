package adminrequest

import (
	"errors"
	"net/http"
	"strconv"

	"earnaura/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStatus returns the caller's latest admin request.
// @Router /admin/campus/request/status [GET]
func (h *Handler) GetStatus(c *gin.Context) {
	res, err := h.service.GetStatus(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Submit creates a new admin request for the caller.
// @Router /admin/campus/request [POST]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}

	created, err := h.service.Submit(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// @Router /admin/campus/verify-email/{id} [POST]
func (h *Handler) VerifyEmail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.service.VerifyEmail(c.Request.Context(), c.GetInt64("user_id"), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// UploadDocument accepts multipart/form-data with "file" and "document_type".
// @Router /admin/campus/upload-document/{id} [POST]
func (h *Handler) UploadDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "NO_FILE", "No file provided. Use form field 'file'")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to read uploaded file")
		return
	}
	defer file.Close()

	doc, err := h.service.UploadDocument(c.Request.Context(), c.GetInt64("user_id"), id,
		c.PostForm("document_type"), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, doc)
}

// List returns requests for reviewers. Query: status, page, limit.
// @Router /super-admin/admin-requests [GET]
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	res, err := h.service.List(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// @Router /super-admin/admin-requests/{id} [GET]
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, req)
}

// @Router /super-admin/admin-requests/{id}/start-review [POST]
func (h *Handler) StartReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.service.StartReview(c.Request.Context(), c.GetInt64("user_id"), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, req)
}

// Review approves or rejects a request.
// @Router /super-admin/admin-requests/{id}/review [POST]
func (h *Handler) Review(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body ReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}

	req, err := h.service.Review(c.Request.Context(), c.GetInt64("user_id"), id, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, req)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.Validation(c, verr.Fields)
	case errors.Is(err, ErrRequestNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Admin request not found")
	case errors.Is(err, ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "This request belongs to another user")
	case errors.Is(err, ErrRequestAlreadyActive):
		response.Error(c, http.StatusConflict, "REQUEST_ALREADY_ACTIVE", "You already have a pending admin request")
	case errors.Is(err, ErrEmailAlreadyVerified):
		response.Error(c, http.StatusConflict, "EMAIL_ALREADY_VERIFIED", "Institutional email already verified")
	case errors.Is(err, ErrRequestClosed):
		response.Error(c, http.StatusConflict, "REQUEST_CLOSED", "This request has already been decided")
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", "Request cannot move to that status")
	case errors.Is(err, ErrNotInstitutionalEmail):
		response.Error(c, http.StatusBadRequest, "NOT_INSTITUTIONAL_EMAIL", "Email is not from a recognised institution")
	case errors.Is(err, ErrRejectionReasonRequired):
		response.Error(c, http.StatusBadRequest, "REJECTION_REASON_REQUIRED", "Rejection reason is required")
	case errors.Is(err, ErrInvalidDecision):
		response.Error(c, http.StatusBadRequest, "INVALID_DECISION", "Decision must be approve or reject")
	case errors.Is(err, ErrInvalidStatus):
		response.Error(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown status filter")
	case errors.Is(err, ErrInvalidDocumentType):
		response.Error(c, http.StatusBadRequest, "INVALID_DOCUMENT_TYPE", "Unknown document type")
	case errors.Is(err, ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "EMPTY_FILE", "File is empty")
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the 10MB limit")
	case errors.Is(err, ErrInvalidMimeType):
		response.Error(c, http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", "Only PDF, PNG and JPEG files are allowed")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid request ID")
		return 0, false
	}
	return id, true
}
