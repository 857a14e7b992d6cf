package adminrequest

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrRequestNotFound         = errors.New("admin request not found")
	ErrRequestAlreadyActive    = errors.New("an admin request is already pending or under review")
	ErrNotOwner                = errors.New("admin request belongs to another user")
	ErrRequestClosed           = errors.New("admin request has already been decided")
	ErrInvalidTransition       = errors.New("admin request cannot move to that status")
	ErrEmailAlreadyVerified    = errors.New("institutional email already verified")
	ErrNotInstitutionalEmail   = errors.New("email domain is not an institutional domain")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrInvalidDecision         = errors.New("decision must be approve or reject")
	ErrInvalidStatus           = errors.New("unknown status filter")
	ErrInvalidDocumentType     = errors.New("unknown document type")
	ErrEmptyFile               = errors.New("file is empty")
	ErrFileTooLarge            = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType         = errors.New("file type is not allowed")
)

// ValidationError carries per-field failures keyed by json field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
