package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/model"
)

// FieldTestRepository tracks field-test item group usage. It implements
// lifecycle.FieldTestUsageStore.
type FieldTestRepository struct {
	db DB
}

// NewFieldTestRepository creates a new FieldTestRepository.
func NewFieldTestRepository(db DB) *FieldTestRepository {
	return &FieldTestRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *FieldTestRepository) WithTx(tx pgx.Tx) *FieldTestRepository {
	return &FieldTestRepository{db: tx}
}

// FindUsageInExam retrieves the field-test item groups administered during
// the exam.
func (r *FieldTestRepository) FindUsageInExam(ctx context.Context, examID uuid.UUID) ([]model.FieldTestItemGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, exam_id, group_key, position, num_items, administered_at
		 FROM field_test_item_groups
		 WHERE exam_id = $1 ORDER BY position ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.FieldTestItemGroup
	for rows.Next() {
		var g model.FieldTestItemGroup
		if err := rows.Scan(&g.ID, &g.ExamID, &g.GroupKey, &g.Position, &g.NumItems, &g.AdministeredAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Update persists usage bookkeeping for the given groups.
func (r *FieldTestRepository) Update(ctx context.Context, groups ...model.FieldTestItemGroup) error {
	for _, g := range groups {
		_, err := r.db.Exec(ctx,
			`UPDATE field_test_item_groups
			 SET administered_at = $1
			 WHERE id = $2`, g.AdministeredAt, g.ID)
		if err != nil {
			return err
		}
	}
	return nil
}
