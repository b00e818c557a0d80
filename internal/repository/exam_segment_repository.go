package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/model"
)

// ExamSegmentRepository handles exam segment data access. It implements
// lifecycle.SegmentStore.
type ExamSegmentRepository struct {
	db DB
}

// NewExamSegmentRepository creates a new ExamSegmentRepository.
func NewExamSegmentRepository(db DB) *ExamSegmentRepository {
	return &ExamSegmentRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *ExamSegmentRepository) WithTx(tx pgx.Tx) *ExamSegmentRepository {
	return &ExamSegmentRepository{db: tx}
}

const segmentColumns = `exam_id, segment_key, position, satisfied, permeable,
	 restore_permeable_condition, exited_at, created_at, updated_at`

func scanSegment(row pgx.Row) (*model.ExamSegment, error) {
	s := &model.ExamSegment{}
	err := row.Scan(&s.ExamID, &s.SegmentKey, &s.Position, &s.Satisfied, &s.Permeable,
		&s.RestorePermeableCondition, &s.ExitedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindSegments retrieves all segments of an exam ordered by position.
func (r *ExamSegmentRepository) FindSegments(ctx context.Context, examID uuid.UUID) ([]model.ExamSegment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+segmentColumns+` FROM exam_segments
		 WHERE exam_id = $1 ORDER BY position ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []model.ExamSegment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *s)
	}
	return segments, rows.Err()
}

// FindSegmentAt retrieves the segment at a 1-based position. Returns nil
// without error when the exam has no segment there.
func (r *ExamSegmentRepository) FindSegmentAt(ctx context.Context, examID uuid.UUID, position int) (*model.ExamSegment, error) {
	s, err := scanSegment(r.db.QueryRow(ctx,
		`SELECT `+segmentColumns+` FROM exam_segments
		 WHERE exam_id = $1 AND position = $2`, examID, position))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSegments persists the mutable fields of the given segments.
func (r *ExamSegmentRepository) UpdateSegments(ctx context.Context, segments ...model.ExamSegment) error {
	for _, s := range segments {
		tag, err := r.db.Exec(ctx,
			`UPDATE exam_segments
			 SET satisfied = $1, permeable = $2, restore_permeable_condition = $3,
			     exited_at = $4, updated_at = NOW()
			 WHERE exam_id = $5 AND position = $6`,
			s.Satisfied, s.Permeable, s.RestorePermeableCondition, s.ExitedAt,
			s.ExamID, s.Position)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("segment %d of exam %s not found", s.Position, s.ExamID)
		}
	}
	return nil
}

// AllSegmentsSatisfied reports whether every segment of the exam has all
// required items answered.
func (r *ExamSegmentRepository) AllSegmentsSatisfied(ctx context.Context, examID uuid.UUID) (bool, error) {
	var unsatisfied int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_segments
		 WHERE exam_id = $1 AND satisfied = FALSE`, examID).Scan(&unsatisfied)
	if err != nil {
		return false, err
	}
	return unsatisfied == 0, nil
}

// CreateSegments inserts the exam's segment rows when the exam opens.
func (r *ExamSegmentRepository) CreateSegments(ctx context.Context, segments ...model.ExamSegment) error {
	for _, s := range segments {
		_, err := r.db.Exec(ctx,
			`INSERT INTO exam_segments (exam_id, segment_key, position, satisfied, permeable)
			 VALUES ($1, $2, $3, $4, $5)`,
			s.ExamID, s.SegmentKey, s.Position, s.Satisfied, s.Permeable)
		if err != nil {
			return err
		}
	}
	return nil
}
