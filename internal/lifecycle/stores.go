package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/model"
)

// Collaborator contracts consumed by rules and reactors. The repositories
// implement them over the transition's own transaction so every side effect
// commits or rolls back with the status change.

// SegmentStore reads and mutates an exam's segments.
type SegmentStore interface {
	FindSegments(ctx context.Context, examID uuid.UUID) ([]model.ExamSegment, error)
	FindSegmentAt(ctx context.Context, examID uuid.UUID, position int) (*model.ExamSegment, error)
	UpdateSegments(ctx context.Context, segments ...model.ExamSegment) error
	AllSegmentsSatisfied(ctx context.Context, examID uuid.UUID) (bool, error)
}

// AccommodationStore mutates an exam's accommodations.
type AccommodationStore interface {
	DenyAll(ctx context.Context, examID uuid.UUID, deniedAt time.Time) error
}

// ExamineeStore persists the examinee's final snapshot when an exam closes.
type ExamineeStore interface {
	InsertFinalAttributesAndRelationships(ctx context.Context, exam *model.Exam) error
}

// FieldTestUsageStore tracks field-test item groups administered in an exam.
type FieldTestUsageStore interface {
	FindUsageInExam(ctx context.Context, examID uuid.UUID) ([]model.FieldTestItemGroup, error)
	Update(ctx context.Context, groups ...model.FieldTestItemGroup) error
}

// CompletionPublisher announces that an exam has entered the completion saga.
type CompletionPublisher interface {
	PublishExamCompleted(ctx context.Context, examID string) error
}

// Outbox is a CompletionPublisher that buffers publishes until the enclosing
// transaction commits. The commit path drains it to the real bus afterwards,
// so a rolled-back transition never announces completion and a slow bus never
// blocks the commit.
type Outbox struct {
	completed []string
}

// PublishExamCompleted records the exam id for post-commit publication.
func (o *Outbox) PublishExamCompleted(_ context.Context, examID string) error {
	o.completed = append(o.completed, examID)
	return nil
}

// Drain returns the buffered exam ids and empties the outbox.
func (o *Outbox) Drain() []string {
	out := o.completed
	o.completed = nil
	return out
}
