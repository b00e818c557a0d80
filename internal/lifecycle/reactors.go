package lifecycle

import (
	"context"
	"fmt"

	"github.com/proctorsoft/examgate/internal/model"
)

// triggered reports whether a reactor with the given trigger should act on
// the (old, updated) pair. Re-saves of the same status never trigger.
func triggered(old, updated *model.Exam, trigger model.StatusCode) bool {
	return old.Status.Code != updated.Status.Code && updated.Status.Code == trigger
}

// CompletedReactor closes out an exam entering completed: revokes segment
// permeability for good, snapshots the examinee, stamps field-test usage and
// announces completion to the downstream saga.
type CompletedReactor struct {
	segments  SegmentStore
	examinees ExamineeStore
	fieldTest FieldTestUsageStore
	bus       CompletionPublisher
}

// NewCompletedReactor wires the reactor's collaborators.
func NewCompletedReactor(segments SegmentStore, examinees ExamineeStore, fieldTest FieldTestUsageStore, bus CompletionPublisher) *CompletedReactor {
	return &CompletedReactor{segments: segments, examinees: examinees, fieldTest: fieldTest, bus: bus}
}

func (r *CompletedReactor) React(ctx context.Context, old, updated *model.Exam) error {
	if !triggered(old, updated, model.StatusCompleted) {
		return nil
	}

	// Completed exams may never be navigated again.
	segments, err := r.segments.FindSegments(ctx, updated.ID)
	if err != nil {
		return fmt.Errorf("find segments: %w", err)
	}
	var closed []model.ExamSegment
	for _, seg := range segments {
		if !seg.Permeable {
			continue
		}
		seg.Permeable = false
		closed = append(closed, seg)
	}
	if len(closed) > 0 {
		if err := r.segments.UpdateSegments(ctx, closed...); err != nil {
			return fmt.Errorf("close segments: %w", err)
		}
	}

	if err := r.examinees.InsertFinalAttributesAndRelationships(ctx, updated); err != nil {
		return fmt.Errorf("insert final examinee snapshot: %w", err)
	}

	groups, err := r.fieldTest.FindUsageInExam(ctx, updated.ID)
	if err != nil {
		return fmt.Errorf("find field test usage: %w", err)
	}
	administeredAt := updated.ChangedAt
	if updated.CompletedAt != nil {
		administeredAt = *updated.CompletedAt
	}
	var stamped []model.FieldTestItemGroup
	for _, g := range groups {
		if g.AdministeredAt != nil {
			continue
		}
		at := administeredAt
		g.AdministeredAt = &at
		stamped = append(stamped, g)
	}
	if len(stamped) > 0 {
		if err := r.fieldTest.Update(ctx, stamped...); err != nil {
			return fmt.Errorf("update field test usage: %w", err)
		}
	}

	if err := r.bus.PublishExamCompleted(ctx, updated.ID.String()); err != nil {
		return fmt.Errorf("publish exam completed: %w", err)
	}
	return nil
}

// DeniedReactor marks every accommodation of a denied exam as denied, stamped
// with the transition's timestamp.
type DeniedReactor struct {
	accommodations AccommodationStore
}

// NewDeniedReactor wires the reactor's collaborator.
func NewDeniedReactor(accommodations AccommodationStore) *DeniedReactor {
	return &DeniedReactor{accommodations: accommodations}
}

func (r *DeniedReactor) React(ctx context.Context, old, updated *model.Exam) error {
	if !triggered(old, updated, model.StatusDenied) {
		return nil
	}
	if err := r.accommodations.DenyAll(ctx, updated.ID, updated.ChangedAt); err != nil {
		return fmt.Errorf("deny accommodations: %w", err)
	}
	return nil
}

// ExpiredReactor announces an expired exam to the same downstream saga as
// completion; expiry is an alternate path into scoring and reporting.
type ExpiredReactor struct {
	bus CompletionPublisher
}

// NewExpiredReactor wires the reactor's collaborator.
func NewExpiredReactor(bus CompletionPublisher) *ExpiredReactor {
	return &ExpiredReactor{bus: bus}
}

func (r *ExpiredReactor) React(ctx context.Context, old, updated *model.Exam) error {
	if !triggered(old, updated, model.StatusExpired) {
		return nil
	}
	if err := r.bus.PublishExamCompleted(ctx, updated.ID.String()); err != nil {
		return fmt.Errorf("publish exam expired: %w", err)
	}
	return nil
}

// PausedReactor revokes permeability of the exam's current segment when its
// restore condition says a pause should close it. Anything else is a no-op.
type PausedReactor struct {
	segments SegmentStore
}

// NewPausedReactor wires the reactor's collaborator.
func NewPausedReactor(segments SegmentStore) *PausedReactor {
	return &PausedReactor{segments: segments}
}

func (r *PausedReactor) React(ctx context.Context, old, updated *model.Exam) error {
	if !triggered(old, updated, model.StatusPaused) {
		return nil
	}
	seg, err := r.segments.FindSegmentAt(ctx, updated.ID, updated.CurrentSegment)
	if err != nil {
		return fmt.Errorf("find segment at position %d: %w", updated.CurrentSegment, err)
	}
	if seg == nil || !seg.Permeable {
		return nil
	}
	if !seg.RestoresOn(model.RestoreConditionSegment) && !seg.RestoresOn(model.RestoreConditionPaused) {
		return nil
	}
	// Clearing the restore condition closes the segment for good: a later
	// entry request finds no reopening path and is rejected.
	seg.Permeable = false
	seg.RestorePermeableCondition = nil
	seg.ExitedAt = &updated.ChangedAt
	if err := r.segments.UpdateSegments(ctx, *seg); err != nil {
		return fmt.Errorf("update paused segment: %w", err)
	}
	return nil
}
