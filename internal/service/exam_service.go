package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/repository"
	"github.com/rs/zerolog"
)

// ExamService opens exams and serves read access to them and their segments.
type ExamService struct {
	pool              *pgxpool.Pool
	examRepo          *repository.ExamRepository
	segmentRepo       *repository.ExamSegmentRepository
	accommodationRepo *repository.AccommodationRepository
	log               zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	pool *pgxpool.Pool,
	examRepo *repository.ExamRepository,
	segmentRepo *repository.ExamSegmentRepository,
	accommodationRepo *repository.AccommodationRepository,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		pool:              pool,
		examRepo:          examRepo,
		segmentRepo:       segmentRepo,
		accommodationRepo: accommodationRepo,
		log:               log.With().Str("component", "exam_service").Logger(),
	}
}

// Open creates an exam in pending status together with its segment and
// accommodation rows, atomically. The exam is governed by the lifecycle
// engine from this point on.
func (s *ExamService) Open(ctx context.Context, req *model.OpenExamRequest) (*model.Exam, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin open exam: %w", err)
	}
	defer tx.Rollback(ctx)

	exam := &model.Exam{
		ID:             uuid.New(),
		SessionID:      req.SessionID,
		BrowserID:      req.BrowserID,
		AssessmentKey:  req.AssessmentKey,
		Status:         model.NewStatus(model.StatusPending),
		CurrentSegment: 1,
	}
	if err := s.examRepo.WithTx(tx).Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	segments := make([]model.ExamSegment, 0, len(req.Segments))
	for _, spec := range req.Segments {
		segments = append(segments, model.ExamSegment{
			ExamID:     exam.ID,
			SegmentKey: spec.SegmentKey,
			Position:   spec.Position,
			Permeable:  spec.Permeable,
		})
	}
	if err := s.segmentRepo.WithTx(tx).CreateSegments(ctx, segments...); err != nil {
		return nil, fmt.Errorf("create segments: %w", err)
	}

	if len(req.Accommodations) > 0 {
		accommodations := make([]model.Accommodation, 0, len(req.Accommodations))
		for _, spec := range req.Accommodations {
			accommodations = append(accommodations, model.Accommodation{
				ID:      uuid.New(),
				ExamID:  exam.ID,
				AccType: spec.AccType,
				Code:    spec.Code,
			})
		}
		if err := s.accommodationRepo.WithTx(tx).CreateAccommodations(ctx, accommodations...); err != nil {
			return nil, fmt.Errorf("create accommodations: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit open exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("session_id", exam.SessionID.String()).
		Msg("Exam opened")

	return exam, nil
}

// GetByID retrieves an exam.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListSegments retrieves the exam's segments ordered by position.
func (s *ExamService) ListSegments(ctx context.Context, examID uuid.UUID) ([]model.ExamSegment, error) {
	return s.segmentRepo.FindSegments(ctx, examID)
}

// ListBySession retrieves all exams of a proctoring session, for the monitor.
func (s *ExamService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Exam, error) {
	return s.examRepo.ListBySession(ctx, sessionID)
}
