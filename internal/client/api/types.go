package api

import "time"

type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CollegeName string `json:"college_name,omitempty"`
}

type LoginResult struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

// AdminRequest is the client projection of a server admin request.
type AdminRequest struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	Status             string     `json:"status"`
	FullName           string     `json:"full_name"`
	CollegeName        string     `json:"college_name"`
	RequestedAdminType string     `json:"requested_admin_type"`
	InstitutionalEmail string     `json:"institutional_email"`
	Motivation         string     `json:"motivation"`
	EmailVerified      bool       `json:"email_verified"`
	DocumentsUploaded  int        `json:"documents_uploaded"`
	ReviewNotes        *string    `json:"review_notes,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	ReviewedBy         *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	SubmissionDate     time.Time  `json:"submission_date"`
	Documents          []Document `json:"documents,omitempty"`
}

type Document struct {
	ID           string    `json:"id"`
	RequestID    int64     `json:"request_id"`
	DocumentType string    `json:"document_type"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

type RequestStatus struct {
	HasRequest bool          `json:"has_request"`
	Request    *AdminRequest `json:"request"`
}

type SubmitRequest struct {
	FullName           string `json:"full_name"`
	CollegeName        string `json:"college_name"`
	RequestedAdminType string `json:"requested_admin_type,omitempty"`
	InstitutionalEmail string `json:"institutional_email"`
	Motivation         string `json:"motivation"`
}

type VerifyEmailResult struct {
	EmailVerified bool   `json:"email_verified"`
	AutoApproved  bool   `json:"auto_approved"`
	Status        string `json:"status"`
}

type ReviewDecision struct {
	Decision        string `json:"decision"`
	ReviewNotes     string `json:"review_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type RequestList struct {
	Requests []AdminRequest `json:"requests"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
}

type Notification struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
	Total         int64          `json:"total"`
}
