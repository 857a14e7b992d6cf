package adminflow

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"earnaura/internal/client/api"
	"earnaura/internal/client/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu          sync.Mutex
	status      *api.RequestStatus
	statusErr   error
	statusCalls atomic.Int32
	// statusGate, when set, is consulted per call and may block it.
	statusGate func(call int32)

	submitCalls atomic.Int32
	submitErr   error
	verify      *api.VerifyEmailResult
	uploadCalls atomic.Int32
}

func (f *fakeBackend) RequestStatus(context.Context) (*api.RequestStatus, error) {
	n := f.statusCalls.Add(1)
	if f.statusGate != nil {
		f.statusGate(n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status == nil {
		return &api.RequestStatus{}, nil
	}
	cp := *f.status
	return &cp, nil
}

func (f *fakeBackend) setStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = &api.RequestStatus{HasRequest: true, Request: &api.AdminRequest{ID: 1, Status: status}}
}

func (f *fakeBackend) SubmitRequest(_ context.Context, req api.SubmitRequest) (*api.AdminRequest, error) {
	f.submitCalls.Add(1)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &api.AdminRequest{ID: 1, Status: "pending", FullName: req.FullName}, nil
}

func (f *fakeBackend) VerifyEmail(context.Context, int64) (*api.VerifyEmailResult, error) {
	return f.verify, nil
}

func (f *fakeBackend) UploadDocument(_ context.Context, _ int64, _, _ string, r io.Reader) (*api.Document, error) {
	f.uploadCalls.Add(1)
	_, _ = io.Copy(io.Discard, r)
	return &api.Document{ID: "doc"}, nil
}

func validForm(motivation string) Form {
	return Form{
		FullName:           "Asha Rao",
		CollegeName:        "IIT Madras",
		InstitutionalEmail: "asha@iitm.ac.in",
		Motivation:         motivation,
	}
}

func TestSubmit_ShortMotivationMakesNoCall(t *testing.T) {
	backend := &fakeBackend{}
	banners := NewBannerQueue(10)
	w := NewWorkflow(backend, banners, Options{})
	defer w.Close()

	_, err := w.Submit(context.Background(), validForm(strings.Repeat("x", 49)))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "min", verr.Fields["motivation"])
	assert.Zero(t, backend.submitCalls.Load())

	got := banners.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, LevelError, got[0].Level)
	assert.Contains(t, got[0].Text, "at least 50 characters")
}

func TestSubmit_BlankNamesMakeNoCall(t *testing.T) {
	backend := &fakeBackend{}
	w := NewWorkflow(backend, NewBannerQueue(10), Options{})
	defer w.Close()

	form := validForm(strings.Repeat("x", 60))
	form.FullName = "   "
	form.CollegeName = ""
	_, err := w.Submit(context.Background(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["full_name"])
	assert.Equal(t, "required", verr.Fields["college_name"])
	assert.Zero(t, backend.submitCalls.Load())
}

func TestSubmit_ExactlyFiftyCharsShowsPending(t *testing.T) {
	backend := &fakeBackend{}
	w := NewWorkflow(backend, NewBannerQueue(10), Options{})
	defer w.Close()

	_, err := w.Submit(context.Background(), validForm(strings.Repeat("x", 50)))
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.submitCalls.Load())

	v := w.View()
	assert.Equal(t, StatePending, v.State)
	assert.Equal(t, "Pending Review", v.Badge)
}

func TestSubmit_InstitutionalEmailRequired(t *testing.T) {
	backend := &fakeBackend{}
	w := NewWorkflow(backend, NewBannerQueue(10), Options{})
	defer w.Close()

	for email, tag := range map[string]string{"": "required", "not-an-email": "email"} {
		form := validForm(strings.Repeat("x", 50))
		form.InstitutionalEmail = email
		_, err := w.Submit(context.Background(), form)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, tag, verr.Fields["institutional_email"])
	}
	assert.Zero(t, backend.submitCalls.Load())
	assert.Equal(t, StateNone, w.View().State)
}

func TestSubmit_ServerErrorSurfacedOnceVerbatim(t *testing.T) {
	backend := &fakeBackend{submitErr: &api.APIError{Status: http.StatusConflict, Code: "REQUEST_ALREADY_ACTIVE", Message: "You already have a pending admin request"}}
	banners := NewBannerQueue(10)
	w := NewWorkflow(backend, banners, Options{})
	defer w.Close()

	_, err := w.Submit(context.Background(), validForm(strings.Repeat("x", 50)))
	require.Error(t, err)

	got := banners.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "You already have a pending admin request", got[0].Text)
	assert.Equal(t, int32(1), backend.submitCalls.Load())
	assert.Equal(t, StateNone, w.View().State)
}

func TestPrivilegesGranted_FeedbackAndRefetch(t *testing.T) {
	backend := &fakeBackend{}
	backend.setStatus("approved")
	banners := NewBannerQueue(10)
	w := NewWorkflow(backend, banners, Options{Debounce: 10 * time.Millisecond})
	defer w.Close()

	w.HandlePush(socket.Message{Type: "admin_privileges_granted", Title: "Congrats", Message: "You are now an admin"})

	got := banners.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "Congrats\n\nYou are now an admin", got[0].Text)

	require.Eventually(t, func() bool { return w.View().State == StateApproved }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), backend.statusCalls.Load())
}

func TestHandlePush_DebouncesBursts(t *testing.T) {
	backend := &fakeBackend{}
	backend.setStatus("under_review")
	w := NewWorkflow(backend, NewBannerQueue(10), Options{Debounce: 40 * time.Millisecond})
	defer w.Close()

	for range 5 {
		w.HandlePush(socket.Message{Type: "admin_request_status_update"})
	}
	w.HandlePush(socket.Message{Type: "notification"})

	require.Eventually(t, func() bool { return w.View().State == StateUnderReview }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), backend.statusCalls.Load())
}

func TestRefresh_LastIssuedFetchWins(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{}
	backend.setStatus("pending")
	backend.statusGate = func(call int32) {
		if call == 1 {
			<-release
		}
	}
	w := NewWorkflow(backend, NewBannerQueue(10), Options{})
	defer w.Close()

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_ = w.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return backend.statusCalls.Load() == 1 }, time.Second, time.Millisecond)

	backend.setStatus("approved")
	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, StateApproved, w.View().State)

	backend.setStatus("pending")
	close(release)
	<-slowDone
	assert.Equal(t, StateApproved, w.View().State)
}

func TestRefresh_ErrorSurfacedOnce(t *testing.T) {
	backend := &fakeBackend{statusErr: &api.APIError{Status: 500, Message: "boom"}}
	banners := NewBannerQueue(10)
	w := NewWorkflow(backend, banners, Options{})
	defer w.Close()

	require.Error(t, w.Refresh(context.Background()))
	got := banners.Drain()
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "boom")
}

func TestVerifyEmail_AutoApprovedThenRefetch(t *testing.T) {
	backend := &fakeBackend{verify: &api.VerifyEmailResult{EmailVerified: true, AutoApproved: true, Status: "approved"}}
	var states []State
	var mu sync.Mutex
	w := NewWorkflow(backend, NewBannerQueue(10), Options{OnChange: func(v View) {
		mu.Lock()
		states = append(states, v.State)
		mu.Unlock()
	}})
	defer w.Close()

	_, err := w.Submit(context.Background(), validForm(strings.Repeat("x", 50)))
	require.NoError(t, err)

	backend.setStatus("approved")
	res, err := w.VerifyInstitutionalEmail(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, res.AutoApproved)
	assert.Equal(t, int32(1), backend.statusCalls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StatePending, StateApproved, StateApproved}, states)
}

func TestUploadDocument_RefetchesWithoutChangingState(t *testing.T) {
	backend := &fakeBackend{}
	backend.setStatus("pending")
	w := NewWorkflow(backend, NewBannerQueue(10), Options{})
	defer w.Close()

	_, err := w.UploadDocument(context.Background(), 1, "student_id", "id.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.uploadCalls.Load())
	assert.Equal(t, int32(1), backend.statusCalls.Load())
	assert.Equal(t, StatePending, w.View().State)
}

func TestStateHelpers(t *testing.T) {
	assert.Equal(t, StateUnderReview, FromServer("under_review"))
	assert.Equal(t, StateNone, FromServer("archived"))
	assert.Equal(t, "", StateNone.Badge())
	assert.True(t, StateRejected.CanSubmit())
	assert.False(t, StatePending.CanSubmit())
}
