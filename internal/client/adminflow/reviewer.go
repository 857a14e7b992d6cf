package adminflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"earnaura/internal/client/api"
	"earnaura/internal/client/socket"

	"go.uber.org/zap"
)

// ReviewBackend is the subset of the REST client a reviewer needs.
type ReviewBackend interface {
	ListRequests(ctx context.Context, status string, page, limit int) (*api.RequestList, error)
	StartReview(ctx context.Context, id int64) (*api.AdminRequest, error)
	Review(ctx context.Context, id int64, decision api.ReviewDecision) (*api.AdminRequest, error)
}

type ReviewerOptions struct {
	// StatusFilter limits the queue, e.g. "pending". Empty lists everything.
	StatusFilter string
	PageSize     int
	Debounce     time.Duration
	Log          *zap.Logger
	OnChange     func([]api.AdminRequest)
}

// Decision is the reviewer's form for one request.
type Decision struct {
	Decision        string `json:"decision" validate:"required,oneof=approve reject"`
	ReviewNotes     string `json:"review_notes"`
	RejectionReason string `json:"rejection_reason" validate:"required_if=Decision reject"`
}

// push types that make the review queue stale
var reviewerRefreshEvents = map[string]struct{}{
	"admin_request_submitted": {},
	"document_uploaded":       {},
}

// Reviewer keeps the super-admin review queue. It never edits the queue
// locally; every change is followed by a fetch.
type Reviewer struct {
	backend  ReviewBackend
	feedback Feedback
	log      *zap.Logger
	opts     ReviewerOptions

	seq       sequencer
	refresher *Refresher

	mu       sync.Mutex
	requests []api.AdminRequest
	total    int64
}

func NewReviewer(backend ReviewBackend, feedback Feedback, opts ReviewerOptions) *Reviewer {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if feedback == nil {
		feedback = NewLogFeedback(opts.Log)
	}
	r := &Reviewer{backend: backend, feedback: feedback, log: opts.Log, opts: opts}
	r.refresher = NewRefresher(opts.Debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_ = r.Refresh(ctx)
	})
	return r
}

func (r *Reviewer) Requests() []api.AdminRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.AdminRequest(nil), r.requests...)
}

func (r *Reviewer) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func (r *Reviewer) Refresh(ctx context.Context) error {
	ticket := r.seq.next()

	list, err := r.backend.ListRequests(ctx, r.opts.StatusFilter, 1, r.opts.PageSize)
	if err != nil {
		if r.seq.current(ticket) {
			r.feedback.Error("Could not load admin requests: " + api.UserMessage(err))
		}
		return err
	}

	r.mu.Lock()
	if !r.seq.current(ticket) {
		r.mu.Unlock()
		r.log.Debug("discarding stale request list", zap.Uint64("ticket", ticket))
		return nil
	}
	r.requests = list.Requests
	r.total = list.Total
	snapshot := append([]api.AdminRequest(nil), r.requests...)
	r.mu.Unlock()

	if r.opts.OnChange != nil {
		r.opts.OnChange(snapshot)
	}
	return nil
}

func (r *Reviewer) RequestRefresh() {
	r.refresher.Trigger()
}

func (r *Reviewer) StartReview(ctx context.Context, id int64) error {
	if _, err := r.backend.StartReview(ctx, id); err != nil {
		r.feedback.Error(api.UserMessage(err))
		return err
	}
	_ = r.Refresh(ctx)
	return nil
}

// Review submits a decision. A rejection without a reason fails locally
// and makes no network call.
func (r *Reviewer) Review(ctx context.Context, id int64, d Decision) error {
	d.Decision = strings.ToLower(strings.TrimSpace(d.Decision))
	d.ReviewNotes = strings.TrimSpace(d.ReviewNotes)
	d.RejectionReason = strings.TrimSpace(d.RejectionReason)

	if err := validate(d); err != nil {
		r.feedback.Error(err.Error())
		return err
	}

	_, err := r.backend.Review(ctx, id, api.ReviewDecision{
		Decision:        d.Decision,
		ReviewNotes:     d.ReviewNotes,
		RejectionReason: d.RejectionReason,
	})
	if err != nil {
		r.feedback.Error(api.UserMessage(err))
		return err
	}

	if d.Decision == "approve" {
		r.feedback.Info("Request approved")
	} else {
		r.feedback.Info("Request rejected")
	}
	_ = r.Refresh(ctx)
	return nil
}

// HandlePush reacts to realtime events on the admin channel.
func (r *Reviewer) HandlePush(msg socket.Message) {
	if _, ok := reviewerRefreshEvents[msg.Type]; ok {
		r.RequestRefresh()
	}
}

func (r *Reviewer) Close() {
	r.refresher.Close()
}
