package model

import (
	"time"

	"github.com/google/uuid"
)

// FieldTestItemGroup records the administration of a group of unscored
// experimental items during an exam. Usage bookkeeping is stamped when the
// exam completes.
type FieldTestItemGroup struct {
	ID             uuid.UUID  `json:"id"`
	ExamID         uuid.UUID  `json:"exam_id"`
	GroupKey       string     `json:"group_key"`
	Position       int        `json:"position"`
	NumItems       int        `json:"num_items"`
	AdministeredAt *time.Time `json:"administered_at,omitempty"`
}
