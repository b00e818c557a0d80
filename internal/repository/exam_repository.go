package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	db DB
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(db DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *ExamRepository) WithTx(tx pgx.Tx) *ExamRepository {
	return &ExamRepository{db: tx}
}

const examColumns = `id, session_id, browser_id, assessment_key, status, status_change_reason,
	 current_segment, started_at, changed_at, completed_at, scored_at, deleted_at, created_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	var statusCode string
	err := row.Scan(&e.ID, &e.SessionID, &e.BrowserID, &e.AssessmentKey, &statusCode,
		&e.StatusChangeReason, &e.CurrentSegment, &e.StartedAt, &e.ChangedAt,
		&e.CompletedAt, &e.ScoredAt, &e.DeletedAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	code, ok := model.ParseStatusCode(statusCode)
	if !ok {
		return nil, fmt.Errorf("unknown status code %q on exam %s", statusCode, e.ID)
	}
	e.Status = model.NewStatus(code)
	return e, nil
}

// GetByID retrieves an exam by id.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.db.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 AND deleted_at IS NULL`, id))
}

// GetForUpdate retrieves an exam under a row lock. Two concurrent transition
// requests therefore serialize on the exam row; the loser revalidates against
// the winner's committed status.
func (r *ExamRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.db.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO exams (id, session_id, browser_id, assessment_key, status, current_segment)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING changed_at, created_at`,
		e.ID, e.SessionID, e.BrowserID, e.AssessmentKey, string(e.Status.Code), e.CurrentSegment,
	).Scan(&e.ChangedAt, &e.CreatedAt)
}

// UpdateStatus persists the outcome of a committed transition. This is the
// only writer of the status column.
func (r *ExamRepository) UpdateStatus(ctx context.Context, e *model.Exam) error {
	_, err := r.db.Exec(ctx,
		`UPDATE exams
		 SET status = $1, status_change_reason = $2, changed_at = $3,
		     started_at = $4, completed_at = $5, scored_at = $6
		 WHERE id = $7`,
		string(e.Status.Code), e.StatusChangeReason, e.ChangedAt,
		e.StartedAt, e.CompletedAt, e.ScoredAt, e.ID)
	return err
}

// UpdateCurrentSegment moves the exam's segment cursor after an entry
// transition.
func (r *ExamRepository) UpdateCurrentSegment(ctx context.Context, id uuid.UUID, position int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE exams SET current_segment = $1 WHERE id = $2`, position, id)
	return err
}

// ListBySession retrieves all exams owned by a proctoring session.
func (r *ExamRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Exam, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE session_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// ListExpirable returns ids of exams still in an expirable status whose last
// change is older than the cutoff. The sweep drives each through the engine;
// nothing here mutates status directly.
func (r *ExamRepository) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM exams
		 WHERE status = ANY($1)
		   AND changed_at < $2
		   AND deleted_at IS NULL
		 ORDER BY changed_at ASC
		 LIMIT $3`,
		expirableStatuses(), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// expirableStatuses lists codes from which the table permits a transition to
// expired.
func expirableStatuses() []string {
	codes := []model.StatusCode{
		model.StatusPending, model.StatusInitializing, model.StatusSuspended,
		model.StatusStarted, model.StatusApproved, model.StatusReview,
		model.StatusPaused, model.StatusDenied,
		model.StatusSegmentEntry, model.StatusSegmentExit,
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
