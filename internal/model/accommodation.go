package model

import (
	"time"

	"github.com/google/uuid"
)

// Accommodation is an approved testing accommodation attached to an exam.
// Denial happens in bulk when the exam itself is denied.
type Accommodation struct {
	ID       uuid.UUID  `json:"id"`
	ExamID   uuid.UUID  `json:"exam_id"`
	AccType  string     `json:"type"`
	Code     string     `json:"code"`
	Denied   bool       `json:"denied"`
	DeniedAt *time.Time `json:"denied_at,omitempty"`
}
