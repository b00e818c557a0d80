package lifecycle

import "fmt"

// ErrorCode identifies a business rejection of a lifecycle operation.
type ErrorCode string

const (
	ErrCodeTransitionFailure ErrorCode = "EXAM_STATUS_TRANSITION_FAILURE"
	ErrCodeExamIncomplete    ErrorCode = "EXAM_INCOMPLETE"
	ErrCodeBrowserMismatch   ErrorCode = "EXAM_APPROVAL_BROWSER_ID_MISMATCH"
	ErrCodeSessionMismatch   ErrorCode = "EXAM_APPROVAL_SESSION_ID_MISMATCH"
	ErrCodeSessionClosed     ErrorCode = "EXAM_APPROVAL_SESSION_CLOSED"
	ErrCodeCheckinTimeout    ErrorCode = "EXAM_APPROVAL_TA_CHECKIN_TIMEOUT"
	ErrCodeSegmentClosed     ErrorCode = "EXAM_SEGMENT_CLOSED"
)

// ValidationError is a structured business rejection. It is returned as a
// value, never raised, so callers can branch on Code. A nil *ValidationError
// means the operation passed validation; it is distinct from a system fault,
// which travels on the ordinary error path.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error satisfies the error interface for logging convenience.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
