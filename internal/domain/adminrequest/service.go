package adminrequest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"earnaura/internal/domain/auth"
	"earnaura/internal/domain/notification"
	"earnaura/internal/domain/realtime"
	"earnaura/internal/pkg/validator"

	"go.uber.org/zap"
)

// RolePromoter grants the admin role once a request is approved.
type RolePromoter interface {
	PromoteRole(ctx context.Context, userID int64, role auth.UserRole) error
}

// Notifier persists a notification for a user and pushes it to their sockets.
type Notifier interface {
	Notify(ctx context.Context, userID int64, typ, title, message string, priority notification.Priority, data map[string]any) (*notification.Notification, error)
}

// Broadcaster pushes an event to every subscriber of a channel.
type Broadcaster interface {
	ToChannel(ctx context.Context, channel string, ev realtime.Event)
}

// Config holds the email-domain rules.
type Config struct {
	// InstitutionalDomains extends the built-in .edu / .ac.<tld> / .edu.<tld> rule.
	InstitutionalDomains []string
	// AutoApproveDomains approve a request as soon as its email is verified.
	AutoApproveDomains []string
}

type Service struct {
	repo      Repository
	store     *DocumentStore
	roles     RolePromoter
	notifier  Notifier
	broadcast Broadcaster
	cfg       Config
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, store *DocumentStore, roles RolePromoter, notifier Notifier, broadcast Broadcaster, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		store:     store,
		roles:     roles,
		notifier:  notifier,
		broadcast: broadcast,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Submit creates a pending request. A user may hold only one active request.
func (s *Service) Submit(ctx context.Context, userID int64, in SubmitRequest) (*AdminRequest, error) {
	in.normalize()
	if fields := validator.Validate(in); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	req := &AdminRequest{
		UserID:             userID,
		Status:             StatusPending,
		FullName:           in.FullName,
		CollegeName:        in.CollegeName,
		RequestedAdminType: in.RequestedAdminType,
		InstitutionalEmail: in.InstitutionalEmail,
		Motivation:         in.Motivation,
		SubmissionDate:     s.now().UTC(),
	}
	if err := s.repo.CreateIfNoActive(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("admin request submitted",
		zap.Int64("request_id", req.ID),
		zap.Int64("user_id", userID),
		zap.String("admin_type", string(req.RequestedAdminType)))

	s.toAdmins(ctx, realtime.Event{
		Type:     realtime.EventAdminRequestSubmitted,
		Title:    "New admin request",
		Message:  fmt.Sprintf("%s from %s requested %s access", req.FullName, req.CollegeName, req.RequestedAdminType),
		Priority: string(notification.PriorityMedium),
		Data:     requestData(req),
	})
	return req, nil
}

// GetStatus returns the user's most recent request, if any.
func (s *Service) GetStatus(ctx context.Context, userID int64) (*StatusResponse, error) {
	req, err := s.repo.GetLatestByUser(ctx, userID)
	if errors.Is(err, ErrRequestNotFound) {
		return &StatusResponse{HasRequest: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &StatusResponse{HasRequest: true, Request: req}, nil
}

// VerifyEmail marks the request's institutional email as verified. When the
// email domain is on the auto-approve list the request is approved at once.
func (s *Service) VerifyEmail(ctx context.Context, userID, id int64) (*VerifyEmailResponse, error) {
	req, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.EmailVerified {
		return nil, ErrEmailAlreadyVerified
	}
	if !req.Status.IsActive() {
		return nil, ErrRequestClosed
	}

	domain := emailDomain(req.InstitutionalEmail)
	autoApprove := matchesDomain(domain, s.cfg.AutoApproveDomains)
	if !autoApprove && !isInstitutional(domain, s.cfg.InstitutionalDomains) {
		return nil, ErrNotInstitutionalEmail
	}

	now := s.now().UTC()
	updates := map[string]any{
		"email_verified":    true,
		"email_verified_at": now,
	}
	status := req.Status
	if autoApprove {
		status = StatusApproved
		updates["status"] = StatusApproved
		updates["reviewed_at"] = now
		updates["review_notes"] = "Auto-approved: verified institutional email domain " + domain
	}
	if err := s.repo.MarkEmailVerified(ctx, id, updates); err != nil {
		return nil, err
	}

	s.notify(ctx, userID, realtime.EventEmailVerificationUpdate, "Email verified",
		"Your institutional email "+req.InstitutionalEmail+" has been verified", notification.PriorityMedium,
		map[string]any{"request_id": id, "email_verified": true})

	if autoApprove {
		req.Status = StatusApproved
		if err := s.grant(ctx, req); err != nil {
			return nil, err
		}
	}

	return &VerifyEmailResponse{EmailVerified: true, AutoApproved: autoApprove, Status: status}, nil
}

// UploadDocument stores a supporting document for an active request.
func (s *Service) UploadDocument(ctx context.Context, userID, id int64, docType, originalName string, size int64, r io.Reader) (*Document, error) {
	docType = strings.TrimSpace(docType)
	if !validDocumentType(docType) {
		return nil, ErrInvalidDocumentType
	}

	req, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.IsActive() {
		return nil, ErrRequestClosed
	}

	stored, err := s.store.Save(originalName, size, r)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:           stored.ID,
		RequestID:    req.ID,
		DocumentType: docType,
		OriginalName: originalName,
		StoredPath:   stored.RelPath,
		MimeType:     stored.MimeType,
		Size:         stored.Size,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.AddDocument(ctx, doc); err != nil {
		_ = s.store.Remove(stored.RelPath)
		return nil, fmt.Errorf("save document record: %w", err)
	}

	data := map[string]any{"request_id": req.ID, "document_id": doc.ID, "document_type": docType}
	s.notify(ctx, userID, realtime.EventDocumentUploaded, "Document uploaded",
		"Your "+strings.ReplaceAll(docType, "_", " ")+" was uploaded", notification.PriorityLow, data)
	s.toAdmins(ctx, realtime.Event{
		Type:     realtime.EventDocumentUploaded,
		Title:    "Document uploaded",
		Message:  fmt.Sprintf("%s uploaded a document for request #%d", req.FullName, req.ID),
		Priority: string(notification.PriorityLow),
		Data:     data,
	})
	return doc, nil
}

// List returns requests for reviewers, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, page, limit int) (*ListResponse, error) {
	st := Status(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, ErrInvalidStatus
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	list, total, err := s.repo.List(ctx, st, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []AdminRequest{}
	}
	return &ListResponse{Requests: list, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*AdminRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// StartReview moves a pending request to under_review.
func (s *Service) StartReview(ctx context.Context, reviewerID, id int64) (*AdminRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Transition(ctx, id, []Status{StatusPending}, map[string]any{
		"status":      StatusUnderReview,
		"reviewed_by": reviewerID,
	}); err != nil {
		return nil, err
	}
	req.Status = StatusUnderReview
	req.ReviewedBy = &reviewerID

	s.notify(ctx, req.UserID, realtime.EventAdminRequestStatusUpdate, "Request under review",
		"Your admin request is now under review", notification.PriorityMedium, statusData(req))
	return req, nil
}

// Review records the final decision. Rejections need a reason; approvals
// promote the requester to the requested admin role.
func (s *Service) Review(ctx context.Context, reviewerID, id int64, in ReviewRequest) (*AdminRequest, error) {
	in.Decision = strings.ToLower(strings.TrimSpace(in.Decision))
	in.RejectionReason = strings.TrimSpace(in.RejectionReason)
	in.ReviewNotes = strings.TrimSpace(in.ReviewNotes)

	var next Status
	switch in.Decision {
	case DecisionApprove:
		next = StatusApproved
	case DecisionReject:
		if in.RejectionReason == "" {
			return nil, ErrRejectionReasonRequired
		}
		next = StatusRejected
	default:
		return nil, ErrInvalidDecision
	}

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":      next,
		"reviewed_by": reviewerID,
		"reviewed_at": now,
	}
	if in.ReviewNotes != "" {
		updates["review_notes"] = in.ReviewNotes
		req.ReviewNotes = &in.ReviewNotes
	}
	if next == StatusRejected {
		updates["rejection_reason"] = in.RejectionReason
		req.RejectionReason = &in.RejectionReason
	}
	if err := s.repo.Transition(ctx, id, activeStatuses, updates); err != nil {
		return nil, err
	}
	req.Status = next
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now

	s.log.Info("admin request reviewed",
		zap.Int64("request_id", id),
		zap.Int64("reviewer_id", reviewerID),
		zap.String("decision", in.Decision))

	if next == StatusRejected {
		s.notify(ctx, req.UserID, realtime.EventAdminRequestStatusUpdate, "Admin request rejected",
			"Your admin request was rejected: "+in.RejectionReason, notification.PriorityHigh, statusData(req))
		return req, nil
	}

	if err := s.grant(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// grant promotes the owner of an approved request and tells them about it.
func (s *Service) grant(ctx context.Context, req *AdminRequest) error {
	if err := s.roles.PromoteRole(ctx, req.UserID, auth.UserRole(req.RequestedAdminType)); err != nil {
		s.log.Error("promote approved requester",
			zap.Int64("request_id", req.ID),
			zap.Int64("user_id", req.UserID),
			zap.Error(err))
		return fmt.Errorf("promote user: %w", err)
	}

	s.notify(ctx, req.UserID, realtime.EventAdminRequestStatusUpdate, "Admin request approved",
		"Your admin request has been approved", notification.PriorityMedium, statusData(req))
	s.notify(ctx, req.UserID, realtime.EventAdminPrivilegesGranted, "Admin privileges granted",
		fmt.Sprintf("You are now a %s for %s", strings.ReplaceAll(string(req.RequestedAdminType), "_", " "), req.CollegeName),
		notification.PriorityHigh, statusData(req))
	return nil
}

func (s *Service) owned(ctx context.Context, userID, id int64) (*AdminRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrNotOwner
	}
	return req, nil
}

// notify never fails the caller: the request row is the source of truth.
func (s *Service) notify(ctx context.Context, userID int64, typ, title, message string, priority notification.Priority, data map[string]any) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, typ, title, message, priority, data); err != nil {
		s.log.Warn("notify user",
			zap.Int64("user_id", userID),
			zap.String("type", typ),
			zap.Error(err))
	}
}

func (s *Service) toAdmins(ctx context.Context, ev realtime.Event) {
	if s.broadcast != nil {
		s.broadcast.ToChannel(ctx, realtime.ChannelAdmin, ev)
	}
}

func requestData(req *AdminRequest) map[string]any {
	return map[string]any{
		"request_id":           req.ID,
		"user_id":              req.UserID,
		"full_name":            req.FullName,
		"college_name":         req.CollegeName,
		"requested_admin_type": req.RequestedAdminType,
	}
}

func statusData(req *AdminRequest) map[string]any {
	return map[string]any{
		"request_id": req.ID,
		"status":     req.Status,
	}
}
