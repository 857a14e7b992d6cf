package adminflow

// State of the caller's admin request as shown to the user.
type State string

const (
	StateNone        State = "NONE"
	StatePending     State = "PENDING"
	StateUnderReview State = "UNDER_REVIEW"
	StateApproved    State = "APPROVED"
	StateRejected    State = "REJECTED"
)

// FromServer maps a server status string. Unknown values map to StateNone.
func FromServer(status string) State {
	switch status {
	case "pending":
		return StatePending
	case "under_review":
		return StateUnderReview
	case "approved":
		return StateApproved
	case "rejected":
		return StateRejected
	}
	return StateNone
}

// Badge is the short label rendered next to a request.
func (s State) Badge() string {
	switch s {
	case StatePending:
		return "Pending Review"
	case StateUnderReview:
		return "Under Review"
	case StateApproved:
		return "Approved"
	case StateRejected:
		return "Rejected"
	}
	return ""
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// CanSubmit reports whether a new request may be created from this state.
func (s State) CanSubmit() bool {
	return s == StateNone || s.Terminal()
}
