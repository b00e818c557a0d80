package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/repository"
)

// SessionService handles proctoring session business logic.
type SessionService struct {
	sessionRepo *repository.SessionRepository
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessionRepo *repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// GetByID retrieves a proctoring session.
func (s *SessionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

// Checkin stamps the proctor's visit, keeping the TA check-in window open
// for the session's exams.
func (s *SessionService) Checkin(ctx context.Context, id uuid.UUID) error {
	return s.sessionRepo.TouchVisit(ctx, id)
}
