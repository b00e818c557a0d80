package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/model"
)

// SessionRepository handles proctoring session data access.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByID retrieves a proctoring session.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.db.QueryRow(ctx,
		`SELECT id, proctor_id, open, date_visited, created_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ProctorID, &s.Open, &s.DateVisited, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// TouchVisit stamps the proctor's check-in time, keeping the TA check-in
// window open for the session's exams.
func (r *SessionRepository) TouchVisit(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET date_visited = NOW() WHERE id = $1`, id)
	return err
}
