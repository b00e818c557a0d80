package model

import "github.com/google/uuid"

// ApprovalStatus is the projection of an exam's status presented to the
// polling client.
type ApprovalStatus string

const (
	ApprovalWaiting  ApprovalStatus = "WAITING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalDenied   ApprovalStatus = "DENIED"
	ApprovalLogout   ApprovalStatus = "LOGOUT"
)

// ApprovalIdentity is the triple a caller must present to interact with an
// exam. A request is authentic only if session and browser ids match the
// exam's stored values.
type ApprovalIdentity struct {
	ExamID     uuid.UUID
	SessionID  uuid.UUID
	BrowserID  uuid.UUID
	ClientName string
}

// ExamApproval is the poll response. It is derived from the exam's current
// status on every call, never stored.
type ExamApproval struct {
	ExamID             uuid.UUID      `json:"exam_id"`
	ApprovalStatus     ApprovalStatus `json:"approval_status"`
	StatusChangeReason *string        `json:"status_change_reason,omitempty"`
}

// ApprovalFromStatus maps a status code to its approval projection.
func ApprovalFromStatus(code StatusCode) ApprovalStatus {
	switch code {
	case StatusApproved:
		return ApprovalApproved
	case StatusDenied:
		return ApprovalDenied
	case StatusPaused:
		return ApprovalLogout
	default:
		return ApprovalWaiting
	}
}
