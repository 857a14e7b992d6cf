package adminflow

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"earnaura/internal/client/api"
	"earnaura/internal/client/socket"

	"go.uber.org/zap"
)

const refreshTimeout = 15 * time.Second

// Backend is the subset of the REST client a requester needs.
type Backend interface {
	RequestStatus(ctx context.Context) (*api.RequestStatus, error)
	SubmitRequest(ctx context.Context, req api.SubmitRequest) (*api.AdminRequest, error)
	VerifyEmail(ctx context.Context, requestID int64) (*api.VerifyEmailResult, error)
	UploadDocument(ctx context.Context, requestID int64, docType, filename string, r io.Reader) (*api.Document, error)
}

// Form is what the user fills in to request admin access.
type Form struct {
	FullName           string `json:"full_name" validate:"required"`
	CollegeName        string `json:"college_name" validate:"required"`
	RequestedAdminType string `json:"requested_admin_type" validate:"omitempty,oneof=campus_admin club_admin"`
	InstitutionalEmail string `json:"institutional_email" validate:"required,email"`
	Motivation         string `json:"motivation" validate:"required,min=50"`
}

func (f Form) normalized() Form {
	f.FullName = strings.TrimSpace(f.FullName)
	f.CollegeName = strings.TrimSpace(f.CollegeName)
	f.RequestedAdminType = strings.TrimSpace(f.RequestedAdminType)
	f.InstitutionalEmail = strings.TrimSpace(f.InstitutionalEmail)
	f.Motivation = strings.TrimSpace(f.Motivation)
	return f
}

// View is the requester's projection of their latest admin request.
type View struct {
	State   State
	Badge   string
	Request *api.AdminRequest
}

type Options struct {
	Debounce time.Duration
	Log      *zap.Logger
	// OnChange runs after every view update.
	OnChange func(View)
}

// push types that make the requester's view stale
var userRefreshEvents = map[string]struct{}{
	"admin_request_status_update": {},
	"admin_privileges_granted":    {},
	"document_uploaded":           {},
	"email_verification_update":   {},
}

// Workflow drives the requester side of the admin request state machine.
// Every user-visible failure is reported through Feedback exactly once;
// returned errors are for control flow only.
type Workflow struct {
	backend  Backend
	feedback Feedback
	log      *zap.Logger
	onChange func(View)

	seq       sequencer
	refresher *Refresher

	mu   sync.Mutex
	view View
}

func NewWorkflow(backend Backend, feedback Feedback, opts Options) *Workflow {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if feedback == nil {
		feedback = NewLogFeedback(opts.Log)
	}
	w := &Workflow{
		backend:  backend,
		feedback: feedback,
		log:      opts.Log,
		onChange: opts.OnChange,
		view:     View{State: StateNone},
	}
	w.refresher = NewRefresher(opts.Debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_ = w.Refresh(ctx)
	})
	return w
}

func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Refresh fetches the authoritative status. If a newer fetch or local update
// was issued meanwhile, this result is discarded.
func (w *Workflow) Refresh(ctx context.Context) error {
	ticket := w.seq.next()

	st, err := w.backend.RequestStatus(ctx)
	if err != nil {
		if w.seq.current(ticket) {
			w.feedback.Error("Could not load admin request status: " + api.UserMessage(err))
		}
		return err
	}

	var req *api.AdminRequest
	if st.HasRequest {
		req = st.Request
	}
	if !w.apply(ticket, req) {
		w.log.Debug("discarding stale status fetch", zap.Uint64("ticket", ticket))
	}
	return nil
}

// RequestRefresh schedules a debounced Refresh.
func (w *Workflow) RequestRefresh() {
	w.refresher.Trigger()
}

// Submit validates the form locally and, only if valid, creates the request.
func (w *Workflow) Submit(ctx context.Context, form Form) (*api.AdminRequest, error) {
	form = form.normalized()
	if err := validate(form); err != nil {
		w.feedback.Error(err.Error())
		return nil, err
	}

	req, err := w.backend.SubmitRequest(ctx, api.SubmitRequest{
		FullName:           form.FullName,
		CollegeName:        form.CollegeName,
		RequestedAdminType: form.RequestedAdminType,
		InstitutionalEmail: form.InstitutionalEmail,
		Motivation:         form.Motivation,
	})
	if err != nil {
		w.feedback.Error(api.UserMessage(err))
		return nil, err
	}

	w.apply(w.seq.next(), req)
	w.feedback.Info("Admin request submitted")
	return req, nil
}

// VerifyInstitutionalEmail confirms the request's email. An auto-approved
// request shows as approved right away; a full status fetch follows either way.
func (w *Workflow) VerifyInstitutionalEmail(ctx context.Context, requestID int64) (*api.VerifyEmailResult, error) {
	res, err := w.backend.VerifyEmail(ctx, requestID)
	if err != nil {
		w.feedback.Error(api.UserMessage(err))
		return nil, err
	}

	if res.AutoApproved {
		ticket := w.seq.next()
		w.mu.Lock()
		var req *api.AdminRequest
		if w.view.Request != nil {
			cp := *w.view.Request
			cp.Status = "approved"
			cp.EmailVerified = true
			req = &cp
		}
		w.mu.Unlock()
		w.applyState(ticket, StateApproved, req)
		w.feedback.Info("Email verified. Your request was approved automatically")
	} else {
		w.feedback.Info("Institutional email verified")
	}

	_ = w.Refresh(ctx)
	return res, nil
}

// UploadDocument attaches a supporting document, then refreshes the status.
func (w *Workflow) UploadDocument(ctx context.Context, requestID int64, docType, filename string, r io.Reader) (*api.Document, error) {
	doc, err := w.backend.UploadDocument(ctx, requestID, docType, filename, r)
	if err != nil {
		w.feedback.Error(api.UserMessage(err))
		return nil, err
	}
	w.feedback.Info("Document uploaded")

	_ = w.Refresh(ctx)
	return doc, nil
}

// HandlePush reacts to realtime events for the requester.
func (w *Workflow) HandlePush(msg socket.Message) {
	if _, ok := userRefreshEvents[msg.Type]; !ok {
		return
	}
	if msg.Type == "admin_privileges_granted" {
		w.feedback.Info(msg.Title + "\n\n" + msg.Message)
	}
	w.RequestRefresh()
}

func (w *Workflow) Close() {
	w.refresher.Close()
}

func (w *Workflow) apply(ticket uint64, req *api.AdminRequest) bool {
	state := StateNone
	if req != nil {
		state = FromServer(req.Status)
	}
	return w.applyState(ticket, state, req)
}

func (w *Workflow) applyState(ticket uint64, state State, req *api.AdminRequest) bool {
	w.mu.Lock()
	if !w.seq.current(ticket) {
		w.mu.Unlock()
		return false
	}
	w.view = View{State: state, Badge: state.Badge(), Request: req}
	v := w.view
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(v)
	}
	return true
}
