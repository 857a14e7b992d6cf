package adminrequest

import "time"

// Status of an admin request. approved and rejected are terminal.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// IsActive reports whether the request still awaits a decision.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusUnderReview
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// AdminType is the role granted when a request is approved.
type AdminType string

const (
	AdminTypeCampus AdminType = "campus_admin"
	AdminTypeClub   AdminType = "club_admin"
)

// Document types accepted as supporting evidence.
const (
	DocStudentID           = "student_id"
	DocInstitutionalID     = "institutional_id"
	DocAuthorizationLetter = "authorization_letter"
	DocOther               = "other"
)

func validDocumentType(t string) bool {
	switch t {
	case DocStudentID, DocInstitutionalID, DocAuthorizationLetter, DocOther:
		return true
	}
	return false
}

type AdminRequest struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	// the partial unique index backs the one-active-request rule when two
	// submissions race past the count in CreateIfNoActive
	UserID             int64      `gorm:"not null;index;index:idx_admin_requests_one_active,unique,where:status <> 'approved' AND status <> 'rejected'" json:"user_id"`
	Status             Status     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	FullName           string     `gorm:"not null" json:"full_name"`
	CollegeName        string     `gorm:"not null" json:"college_name"`
	RequestedAdminType AdminType  `gorm:"type:varchar(20);not null" json:"requested_admin_type"`
	InstitutionalEmail string     `gorm:"not null" json:"institutional_email"`
	Motivation         string     `gorm:"type:text;not null" json:"motivation"`
	EmailVerified      bool       `gorm:"not null;default:false" json:"email_verified"`
	EmailVerifiedAt    *time.Time `json:"email_verified_at,omitempty"`
	DocumentsUploaded  int        `gorm:"not null;default:0" json:"documents_uploaded"`
	ReviewNotes        *string    `gorm:"type:text" json:"review_notes,omitempty"`
	RejectionReason    *string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	ReviewedBy         *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	SubmissionDate     time.Time  `gorm:"not null;index" json:"submission_date"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Documents []Document `gorm:"foreignKey:RequestID" json:"documents,omitempty"`
}

func (AdminRequest) TableName() string {
	return "admin_requests"
}

// Document is a supporting file attached to a request. StoredPath is relative
// to the upload directory.
type Document struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RequestID    int64     `gorm:"not null;index" json:"request_id"`
	DocumentType string    `gorm:"type:varchar(40);not null" json:"document_type"`
	OriginalName string    `json:"original_name"`
	StoredPath   string    `gorm:"not null" json:"-"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Document) TableName() string {
	return "admin_request_documents"
}
