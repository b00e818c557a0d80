package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorsoft/examgate/internal/lifecycle"
	"github.com/proctorsoft/examgate/internal/messaging"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/repository"
	"github.com/rs/zerolog"
)

// ExamStatusService owns the transition commit path: validate, persist,
// dispatch side effects and commit as a single atomic unit per exam row.
type ExamStatusService struct {
	pool              *pgxpool.Pool
	examRepo          *repository.ExamRepository
	segmentRepo       *repository.ExamSegmentRepository
	accommodationRepo *repository.AccommodationRepository
	examineeRepo      *repository.ExamineeRepository
	fieldTestRepo     *repository.FieldTestRepository
	bus               *messaging.Publisher
	log               zerolog.Logger
}

// NewExamStatusService creates a new ExamStatusService.
func NewExamStatusService(
	pool *pgxpool.Pool,
	examRepo *repository.ExamRepository,
	segmentRepo *repository.ExamSegmentRepository,
	accommodationRepo *repository.AccommodationRepository,
	examineeRepo *repository.ExamineeRepository,
	fieldTestRepo *repository.FieldTestRepository,
	bus *messaging.Publisher,
	log zerolog.Logger,
) *ExamStatusService {
	return &ExamStatusService{
		pool:              pool,
		examRepo:          examRepo,
		segmentRepo:       segmentRepo,
		accommodationRepo: accommodationRepo,
		examineeRepo:      examineeRepo,
		fieldTestRepo:     fieldTestRepo,
		bus:               bus,
		log:               log.With().Str("component", "exam_status_service").Logger(),
	}
}

// txHook runs extra work inside the transition's transaction, after the
// reactors and before commit. A returned *lifecycle.ValidationError rejects
// the whole transition and rolls it back.
type txHook func(ctx context.Context, tx pgx.Tx, exam *model.Exam) (*lifecycle.ValidationError, error)

// SegmentMoveFunc is the shape of EnterSegment and ExitSegment, so handlers
// can treat the two moves uniformly.
type SegmentMoveFunc func(ctx context.Context, examID uuid.UUID, position int, reason *string) (*model.Exam, *lifecycle.ValidationError, error)

// RequestStatusChange drives an exam through one status transition. A
// *lifecycle.ValidationError is a business rejection the caller can surface;
// an error is a system fault. On success the committed exam is returned.
func (s *ExamStatusService) RequestStatusChange(ctx context.Context, examID uuid.UUID, candidate model.StatusCode, reason *string) (*model.Exam, *lifecycle.ValidationError, error) {
	return s.transition(ctx, examID, candidate, reason, nil)
}

func (s *ExamStatusService) transition(ctx context.Context, examID uuid.UUID, candidate model.StatusCode, reason *string, hook txHook) (*model.Exam, *lifecycle.ValidationError, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	examRepo := s.examRepo.WithTx(tx)
	segmentRepo := s.segmentRepo.WithTx(tx)

	// The row lock serializes concurrent transition requests; the loser
	// blocks here and then validates against the winner's committed status.
	old, err := examRepo.GetForUpdate(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("load exam: %w", err)
	}

	candidateStatus := model.NewStatus(candidate)

	chain := lifecycle.NewRuleChain(
		lifecycle.NewSegmentCompletionRule(segmentRepo),
		lifecycle.BaseTransitionRule{},
	)
	verr, err := chain.Validate(ctx, old, candidateStatus)
	if err != nil {
		return nil, nil, err
	}
	if verr != nil {
		return nil, verr, nil
	}

	now := time.Now()
	updated := *old
	updated.Status = candidateStatus
	updated.StatusChangeReason = reason
	updated.ChangedAt = now
	switch candidate {
	case model.StatusStarted:
		if updated.StartedAt == nil {
			updated.StartedAt = &now
		}
	case model.StatusCompleted, model.StatusForceCompleted:
		if updated.CompletedAt == nil {
			updated.CompletedAt = &now
		}
	case model.StatusScored, model.StatusRescored:
		updated.ScoredAt = &now
	}

	if err := examRepo.UpdateStatus(ctx, &updated); err != nil {
		return nil, nil, fmt.Errorf("persist status: %w", err)
	}

	// Reactors share the transaction: the status change and its side effects
	// are all-or-nothing. Completion events go through the outbox so nothing
	// is announced for a rolled-back transition.
	outbox := &lifecycle.Outbox{}
	dispatcher := lifecycle.NewChangeDispatcher(
		lifecycle.NewCompletedReactor(segmentRepo, s.examineeRepo.WithTx(tx), s.fieldTestRepo.WithTx(tx), outbox),
		lifecycle.NewDeniedReactor(s.accommodationRepo.WithTx(tx)),
		lifecycle.NewExpiredReactor(outbox),
		lifecycle.NewPausedReactor(segmentRepo),
	)
	if err := dispatcher.Dispatch(ctx, old, &updated); err != nil {
		return nil, nil, err
	}

	if hook != nil {
		hverr, err := hook(ctx, tx, &updated)
		if err != nil {
			return nil, nil, err
		}
		if hverr != nil {
			return nil, hverr, nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transition: %w", err)
	}

	// Post-commit publishes are fire-and-forget: logged, never rolled back.
	for _, id := range outbox.Drain() {
		if err := s.bus.PublishExamCompleted(ctx, id); err != nil {
			s.log.Error().Err(err).Str("exam_id", id).Msg("Unacknowledged completion publish")
		}
	}
	s.notifyStatusChange(ctx, &updated)

	return &updated, nil, nil
}

// notifyStatusChange fans the committed transition out to live observers
// (proctor monitor, student stream). Best effort.
func (s *ExamStatusService) notifyStatusChange(ctx context.Context, exam *model.Exam) {
	ev := messaging.StatusEvent{
		ExamID:    exam.ID.String(),
		SessionID: exam.SessionID.String(),
		Status:    exam.Status.Code,
		Stage:     exam.Status.Stage,
		Reason:    exam.StatusChangeReason,
		ChangedAt: exam.ChangedAt,
	}
	if err := s.bus.PublishStatusEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("exam_id", ev.ExamID).Msg("Status event publish failed")
	}
}

// ExitSegment drives the exam into segmentExit and records the exit against
// the segment's position, in one transaction. The segment stops being
// permeable until an explicit entry reopens it.
func (s *ExamStatusService) ExitSegment(ctx context.Context, examID uuid.UUID, position int, reason *string) (*model.Exam, *lifecycle.ValidationError, error) {
	return s.transition(ctx, examID, model.StatusSegmentExit, reason,
		func(ctx context.Context, tx pgx.Tx, exam *model.Exam) (*lifecycle.ValidationError, error) {
			segmentRepo := s.segmentRepo.WithTx(tx)
			seg, err := segmentRepo.FindSegmentAt(ctx, examID, position)
			if err != nil {
				return nil, err
			}
			if seg == nil {
				return nil, fmt.Errorf("segment %d of exam %s: %w", position, examID, pgx.ErrNoRows)
			}
			now := time.Now()
			cond := model.RestoreConditionSegment
			seg.Permeable = false
			seg.RestorePermeableCondition = &cond
			seg.ExitedAt = &now
			return nil, segmentRepo.UpdateSegments(ctx, *seg)
		})
}

// EnterSegment drives the exam into segmentEntry and explicitly reopens the
// segment at the given position. This is the only path that restores
// permeability; a segment closed without a restore path rejects entry.
func (s *ExamStatusService) EnterSegment(ctx context.Context, examID uuid.UUID, position int, reason *string) (*model.Exam, *lifecycle.ValidationError, error) {
	return s.transition(ctx, examID, model.StatusSegmentEntry, reason,
		func(ctx context.Context, tx pgx.Tx, exam *model.Exam) (*lifecycle.ValidationError, error) {
			segmentRepo := s.segmentRepo.WithTx(tx)
			seg, err := segmentRepo.FindSegmentAt(ctx, examID, position)
			if err != nil {
				return nil, err
			}
			if seg == nil {
				return nil, fmt.Errorf("segment %d of exam %s: %w", position, examID, pgx.ErrNoRows)
			}
			if verr := lifecycle.ValidateSegmentEntry(seg); verr != nil {
				return verr, nil
			}
			seg.Permeable = true
			seg.RestorePermeableCondition = nil
			if err := segmentRepo.UpdateSegments(ctx, *seg); err != nil {
				return nil, err
			}
			if err := s.examRepo.WithTx(tx).UpdateCurrentSegment(ctx, examID, position); err != nil {
				return nil, err
			}
			exam.CurrentSegment = position
			return nil, nil
		})
}
