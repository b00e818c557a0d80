package model

import "strings"

// Stage is descriptive metadata grouping statuses for display logic. It plays
// no part in transition validation.
type Stage string

const (
	StageOpen       Stage = "OPEN"
	StageInUse      Stage = "IN_USE"
	StageInProgress Stage = "IN_PROGRESS"
	StageClosed     Stage = "CLOSED"
	StageInactive   Stage = "INACTIVE"
)

// StatusCode is the closed set of exam status identifiers. Codes are matched
// case-insensitively at the boundary (ParseStatusCode) and stored in their
// canonical form.
type StatusCode string

const (
	StatusPending        StatusCode = "pending"
	StatusInitializing   StatusCode = "initializing"
	StatusSuspended      StatusCode = "suspended"
	StatusStarted        StatusCode = "started"
	StatusApproved       StatusCode = "approved"
	StatusReview         StatusCode = "review"
	StatusPaused         StatusCode = "paused"
	StatusDenied         StatusCode = "denied"
	StatusCompleted      StatusCode = "completed"
	StatusScored         StatusCode = "scored"
	StatusSubmitted      StatusCode = "submitted"
	StatusReported       StatusCode = "reported"
	StatusExpired        StatusCode = "expired"
	StatusInvalidated    StatusCode = "invalidated"
	StatusRescored       StatusCode = "rescored"
	StatusSegmentEntry   StatusCode = "segmentEntry"
	StatusSegmentExit    StatusCode = "segmentExit"
	StatusForceCompleted StatusCode = "forceCompleted"
	StatusClosed         StatusCode = "closed"
	StatusDisabled       StatusCode = "disabled"
)

// statusStages assigns every recognized code its display stage.
var statusStages = map[StatusCode]Stage{
	StatusPending:        StageOpen,
	StatusInitializing:   StageOpen,
	StatusSuspended:      StageOpen,
	StatusApproved:       StageOpen,
	StatusDenied:         StageOpen,
	StatusPaused:         StageInUse,
	StatusSegmentEntry:   StageInUse,
	StatusSegmentExit:    StageInUse,
	StatusStarted:        StageInProgress,
	StatusReview:         StageInProgress,
	StatusCompleted:      StageClosed,
	StatusScored:         StageClosed,
	StatusSubmitted:      StageClosed,
	StatusReported:       StageClosed,
	StatusRescored:       StageClosed,
	StatusForceCompleted: StageClosed,
	StatusClosed:         StageClosed,
	StatusExpired:        StageInactive,
	StatusInvalidated:    StageInactive,
	StatusDisabled:       StageInactive,
}

// statusTransitions is the adjacency table of legal direct transitions,
// keyed by current code. Self-loops mark statuses that may be re-entered.
// A code absent as a key has no outbound transitions.
var statusTransitions = map[StatusCode][]StatusCode{
	StatusPending:        {StatusInitializing, StatusPending, StatusDenied, StatusApproved, StatusPaused, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusSuspended:      {StatusSuspended, StatusDenied, StatusApproved, StatusPaused, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusStarted:        {StatusStarted, StatusPaused, StatusReview, StatusCompleted, StatusExpired, StatusInvalidated, StatusSegmentEntry, StatusSegmentExit, StatusForceCompleted},
	StatusApproved:       {StatusApproved, StatusPending, StatusStarted, StatusPaused, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusReview:         {StatusReview, StatusCompleted, StatusPaused, StatusExpired, StatusInvalidated, StatusForceCompleted, StatusSegmentEntry, StatusSegmentExit},
	StatusPaused:         {StatusPaused, StatusPending, StatusSuspended, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusDenied:         {StatusDenied, StatusPending, StatusSuspended, StatusPaused, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusCompleted:      {StatusCompleted, StatusScored, StatusSubmitted, StatusInvalidated},
	StatusScored:         {StatusRescored, StatusSubmitted, StatusInvalidated},
	StatusSubmitted:      {StatusRescored, StatusReported, StatusInvalidated},
	StatusReported:       {StatusRescored, StatusInvalidated},
	StatusExpired:        {StatusRescored, StatusInvalidated},
	StatusInvalidated:    {StatusRescored, StatusInvalidated},
	StatusRescored:       {StatusScored},
	StatusSegmentEntry:   {StatusApproved, StatusDenied, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusSegmentExit:    {StatusApproved, StatusDenied, StatusExpired, StatusInvalidated, StatusForceCompleted},
	StatusForceCompleted: {StatusCompleted, StatusScored},
	StatusInitializing:   {StatusInitializing, StatusPending, StatusDenied, StatusApproved, StatusPaused, StatusExpired, StatusInvalidated, StatusForceCompleted},
}

// canonicalCodes maps the lower-cased form of every recognized code to its
// canonical StatusCode, built once at init.
var canonicalCodes = func() map[string]StatusCode {
	m := make(map[string]StatusCode, len(statusStages))
	for code := range statusStages {
		m[strings.ToLower(string(code))] = code
	}
	return m
}()

// ParseStatusCode resolves a raw, case-insensitive status identifier to its
// canonical code. The second return is false for unrecognized identifiers.
func ParseStatusCode(raw string) (StatusCode, bool) {
	code, ok := canonicalCodes[strings.ToLower(strings.TrimSpace(raw))]
	return code, ok
}

// Stage returns the display stage for the code.
func (c StatusCode) Stage() Stage {
	return statusStages[c]
}

// CanTransitionTo reports whether the table permits a direct transition from
// c to target. Codes with no table entry reject every candidate.
func (c StatusCode) CanTransitionTo(target StatusCode) bool {
	for _, next := range statusTransitions[c] {
		if next == target {
			return true
		}
	}
	return false
}

// Status pairs a status code with its display stage.
type Status struct {
	Code  StatusCode `json:"code"`
	Stage Stage      `json:"stage"`
}

// NewStatus builds a Status for a canonical code.
func NewStatus(code StatusCode) Status {
	return Status{Code: code, Stage: code.Stage()}
}
