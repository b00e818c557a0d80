package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/model"
)

// AccommodationRepository handles exam accommodation data access. It
// implements lifecycle.AccommodationStore.
type AccommodationRepository struct {
	db DB
}

// NewAccommodationRepository creates a new AccommodationRepository.
func NewAccommodationRepository(db DB) *AccommodationRepository {
	return &AccommodationRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *AccommodationRepository) WithTx(tx pgx.Tx) *AccommodationRepository {
	return &AccommodationRepository{db: tx}
}

// DenyAll marks every accommodation of the exam as denied at the given time.
func (r *AccommodationRepository) DenyAll(ctx context.Context, examID uuid.UUID, deniedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE exam_accommodations
		 SET denied = TRUE, denied_at = $1
		 WHERE exam_id = $2 AND denied = FALSE`, deniedAt, examID)
	return err
}

// CreateAccommodations inserts accommodation rows when the exam opens.
func (r *AccommodationRepository) CreateAccommodations(ctx context.Context, accommodations ...model.Accommodation) error {
	for _, a := range accommodations {
		_, err := r.db.Exec(ctx,
			`INSERT INTO exam_accommodations (id, exam_id, acc_type, code)
			 VALUES ($1, $2, $3, $4)`,
			a.ID, a.ExamID, a.AccType, a.Code)
		if err != nil {
			return err
		}
	}
	return nil
}
