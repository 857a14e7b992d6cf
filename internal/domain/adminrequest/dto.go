package adminrequest

import "strings"

// SubmitRequest is the body of POST /admin/campus/request.
type SubmitRequest struct {
	FullName           string    `json:"full_name" validate:"required,max=120"`
	CollegeName        string    `json:"college_name" validate:"required,max=200"`
	RequestedAdminType AdminType `json:"requested_admin_type" validate:"required,oneof=campus_admin club_admin"`
	InstitutionalEmail string    `json:"institutional_email" validate:"required,email"`
	Motivation         string    `json:"motivation" validate:"required,min=50,max=5000"`
}

func (r *SubmitRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.CollegeName = strings.TrimSpace(r.CollegeName)
	r.InstitutionalEmail = strings.ToLower(strings.TrimSpace(r.InstitutionalEmail))
	r.Motivation = strings.TrimSpace(r.Motivation)
	if r.RequestedAdminType == "" {
		r.RequestedAdminType = AdminTypeCampus
	}
}

// ReviewRequest is the body of POST /super-admin/admin-requests/:id/review.
type ReviewRequest struct {
	Decision        string `json:"decision"`
	ReviewNotes     string `json:"review_notes"`
	RejectionReason string `json:"rejection_reason"`
}

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type StatusResponse struct {
	HasRequest bool          `json:"has_request"`
	Request    *AdminRequest `json:"request"`
}

type VerifyEmailResponse struct {
	EmailVerified bool   `json:"email_verified"`
	AutoApproved  bool   `json:"auto_approved"`
	Status        Status `json:"status"`
}

type ListResponse struct {
	Requests []AdminRequest `json:"requests"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
}
