package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is one examinee's governed attempt at an assessment. Its status may
// only change through the lifecycle engine's commit path so that transition
// side effects are never skipped.
type Exam struct {
	ID                 uuid.UUID  `json:"id"`
	SessionID          uuid.UUID  `json:"session_id"`
	BrowserID          uuid.UUID  `json:"browser_id"`
	AssessmentKey      string     `json:"assessment_key"`
	Status             Status     `json:"status"`
	StatusChangeReason *string    `json:"status_change_reason,omitempty"`
	CurrentSegment     int        `json:"current_segment"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	ChangedAt          time.Time  `json:"changed_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ScoredAt           *time.Time `json:"scored_at,omitempty"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// OpenExamRequest is the payload for opening a new exam in pending status.
type OpenExamRequest struct {
	SessionID      uuid.UUID                 `json:"session_id" binding:"required"`
	BrowserID      uuid.UUID                 `json:"browser_id" binding:"required"`
	AssessmentKey  string                    `json:"assessment_key" binding:"required,min=1,max=255"`
	Segments       []OpenSegmentSpec         `json:"segments" binding:"required,min=1,dive"`
	Accommodations []OpenAccommodationSpec   `json:"accommodations" binding:"omitempty,dive"`
}

// OpenSegmentSpec describes one segment of the assessment being opened.
type OpenSegmentSpec struct {
	SegmentKey string `json:"segment_key" binding:"required,min=1,max=255"`
	Position   int    `json:"position" binding:"required,min=1"`
	Permeable  bool   `json:"permeable"`
}

// OpenAccommodationSpec describes one accommodation granted for the exam.
type OpenAccommodationSpec struct {
	AccType string `json:"type" binding:"required,min=1,max=64"`
	Code    string `json:"code" binding:"required,min=1,max=64"`
}

// SegmentMoveRequest is the payload for segment entry and exit operations.
type SegmentMoveRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	BrowserID uuid.UUID `json:"browser_id" binding:"required"`
	Reason    *string   `json:"reason" binding:"omitempty,max=255"`
}

// ChangeStatusRequest is the payload for requesting a status transition.
// Student callers must present their identity; proctor callers are
// authenticated by JWT and omit it.
type ChangeStatusRequest struct {
	Status    string     `json:"status" binding:"required,min=1,max=32"`
	Reason    *string    `json:"reason" binding:"omitempty,max=255"`
	SessionID *uuid.UUID `json:"session_id" binding:"omitempty"`
	BrowserID *uuid.UUID `json:"browser_id" binding:"omitempty"`
}
