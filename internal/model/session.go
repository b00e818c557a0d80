package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is the proctoring session owning one or more exams. A session
// without an assigned proctor is a guest session.
type Session struct {
	ID          uuid.UUID  `json:"id"`
	ProctorID   *int       `json:"proctor_id,omitempty"`
	Open        bool       `json:"open"`
	DateVisited *time.Time `json:"date_visited,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasProctor reports whether a proctor is assigned to the session.
func (s *Session) HasProctor() bool {
	return s.ProctorID != nil
}

// CheckinElapsed reports whether the proctor's last check-in is older than the
// allowed window. A session never visited by its proctor counts as elapsed.
func (s *Session) CheckinElapsed(window time.Duration, now time.Time) bool {
	if s.DateVisited == nil {
		return true
	}
	return now.Sub(*s.DateVisited) > window
}
