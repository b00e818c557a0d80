package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/lifecycle"
	"github.com/proctorsoft/examgate/internal/model"
)

// ExamReader resolves exams for the approval gate.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// SessionReader resolves proctoring sessions for the approval gate.
type SessionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
}

// ApprovalService answers whether an identity may interact with an exam right
// now. Approval is a pure projection of the exam's current status plus an
// identity check; polling it never mutates state.
type ApprovalService struct {
	exams             ExamReader
	sessions          SessionReader
	checkinWindow     time.Duration
	bypassOpenSession bool
	now               func() time.Time
}

// NewApprovalService creates an ApprovalService. bypassOpenSession waives the
// open-session requirement for simulation and development deployments; it is
// an explicit flag here so the gate stays pure and testable.
func NewApprovalService(exams ExamReader, sessions SessionReader, checkinWindow time.Duration, bypassOpenSession bool) *ApprovalService {
	return &ApprovalService{
		exams:             exams,
		sessions:          sessions,
		checkinWindow:     checkinWindow,
		bypassOpenSession: bypassOpenSession,
		now:               time.Now,
	}
}

// GetApproval resolves the exam, verifies the caller's access and projects the
// exam's status into an ExamApproval. A *lifecycle.ValidationError is a
// business rejection (identity mismatch, closed session); an error is a
// system fault or not-found.
func (s *ApprovalService) GetApproval(ctx context.Context, identity model.ApprovalIdentity) (*model.ExamApproval, *lifecycle.ValidationError, error) {
	exam, err := s.exams.GetByID(ctx, identity.ExamID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve exam: %w", err)
	}

	verr, err := s.VerifyAccess(ctx, identity, exam)
	if err != nil {
		return nil, nil, err
	}
	if verr != nil {
		return nil, verr, nil
	}

	return &model.ExamApproval{
		ExamID:             exam.ID,
		ApprovalStatus:     model.ApprovalFromStatus(exam.Status.Code),
		StatusChangeReason: exam.StatusChangeReason,
	}, nil, nil
}

// VerifyAccess checks that the identity owns the exam and that the owning
// session currently admits interaction. Identity mismatches are fatal to the
// caller; session conditions are recoverable and keep the client polling.
func (s *ApprovalService) VerifyAccess(ctx context.Context, identity model.ApprovalIdentity, exam *model.Exam) (*lifecycle.ValidationError, error) {
	if identity.BrowserID != exam.BrowserID {
		return lifecycle.NewValidationError(lifecycle.ErrCodeBrowserMismatch,
			"Browser id does not match the browser id associated with the exam"), nil
	}
	if identity.SessionID != exam.SessionID {
		return lifecycle.NewValidationError(lifecycle.ErrCodeSessionMismatch,
			"Session id does not match the session id associated with the exam"), nil
	}

	session, err := s.sessions.GetByID(ctx, exam.SessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	// Guest sessions have no proctor; they only need to be open.
	if !session.HasProctor() {
		if !session.Open {
			return lifecycle.NewValidationError(lifecycle.ErrCodeSessionClosed,
				"The session is not available for testing, please check with your test administrator"), nil
		}
		return nil, nil
	}

	if !session.Open && !s.bypassOpenSession {
		return lifecycle.NewValidationError(lifecycle.ErrCodeSessionClosed,
			"The session is not available for testing, please check with your test administrator"), nil
	}
	if session.CheckinElapsed(s.checkinWindow, s.now()) {
		return lifecycle.NewValidationError(lifecycle.ErrCodeCheckinTimeout,
			"The test administrator check-in window has elapsed"), nil
	}

	return nil, nil
}
