package model

import (
	"time"

	"github.com/google/uuid"
)

// Restore conditions under which a paused segment's permeability is revoked.
const (
	RestoreConditionSegment = "segment"
	RestoreConditionPaused  = "paused"
)

// ExamSegment is a sub-division of an exam with its own completion and
// navigability state. Position is 1-based and mirrors the assessment's
// segment structure.
type ExamSegment struct {
	ExamID                    uuid.UUID  `json:"exam_id"`
	SegmentKey                string     `json:"segment_key"`
	Position                  int        `json:"position"`
	Satisfied                 bool       `json:"satisfied"`
	Permeable                 bool       `json:"permeable"`
	RestorePermeableCondition *string    `json:"restore_permeable_condition,omitempty"`
	ExitedAt                  *time.Time `json:"exited_at,omitempty"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// RestoresOn reports whether the segment's restore condition matches cond.
func (s *ExamSegment) RestoresOn(cond string) bool {
	return s.RestorePermeableCondition != nil && *s.RestorePermeableCondition == cond
}
