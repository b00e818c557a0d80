package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/model"
)

// Snapshot contexts recorded for an examinee.
const snapshotContextFinal = "FINAL"

// ExamineeRepository persists examinee attribute/relationship snapshots. It
// implements lifecycle.ExamineeStore.
type ExamineeRepository struct {
	db DB
}

// NewExamineeRepository creates a new ExamineeRepository.
func NewExamineeRepository(db DB) *ExamineeRepository {
	return &ExamineeRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *ExamineeRepository) WithTx(tx pgx.Tx) *ExamineeRepository {
	return &ExamineeRepository{db: tx}
}

// InsertFinalAttributesAndRelationships stores the examinee's closing
// snapshot for the exam, keyed by the FINAL context. Downstream reporting
// reads this snapshot instead of the live examinee record.
func (r *ExamineeRepository) InsertFinalAttributesAndRelationships(ctx context.Context, exam *model.Exam) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO examinee_snapshots (exam_id, context, status, session_id, taken_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exam_id, context) DO NOTHING`,
		exam.ID, snapshotContextFinal, string(exam.Status.Code), exam.SessionID, exam.ChangedAt)
	return err
}
