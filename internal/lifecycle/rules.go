package lifecycle

import (
	"context"
	"fmt"

	"github.com/proctorsoft/examgate/internal/model"
)

// Rule is one gate a candidate transition must pass. A non-nil
// *ValidationError is a business rejection; a non-nil error is a collaborator
// fault that aborts the whole operation.
type Rule interface {
	Validate(ctx context.Context, exam *model.Exam, candidate model.Status) (*ValidationError, error)
}

// RuleChain evaluates rules in order and stops at the first rejection.
// New gates (time limits, attempt counts) are added here without touching the
// transition table or the dispatcher.
type RuleChain struct {
	rules []Rule
}

// NewRuleChain builds a chain over the given rules, evaluated in order.
func NewRuleChain(rules ...Rule) *RuleChain {
	return &RuleChain{rules: rules}
}

// Validate runs the chain fail-fast. A nil, nil return means every rule
// passed and the transition may be committed.
func (c *RuleChain) Validate(ctx context.Context, exam *model.Exam, candidate model.Status) (*ValidationError, error) {
	for _, r := range c.rules {
		verr, err := r.Validate(ctx, exam, candidate)
		if err != nil {
			return nil, fmt.Errorf("validate transition: %w", err)
		}
		if verr != nil {
			return verr, nil
		}
	}
	return nil, nil
}

// BaseTransitionRule rejects candidates absent from the status transition
// table.
type BaseTransitionRule struct{}

func (BaseTransitionRule) Validate(_ context.Context, exam *model.Exam, candidate model.Status) (*ValidationError, error) {
	if !exam.Status.Code.CanTransitionTo(candidate.Code) {
		return NewValidationError(ErrCodeTransitionFailure,
			"Transitioning exam status from %s to %s is not allowed",
			exam.Status.Code, candidate.Code), nil
	}
	return nil, nil
}

// SegmentCompletionRule blocks entry into review or completed while any
// segment still has unanswered required items. Other candidates pass
// trivially.
type SegmentCompletionRule struct {
	segments SegmentStore
}

// NewSegmentCompletionRule builds the rule over a segment store.
func NewSegmentCompletionRule(segments SegmentStore) *SegmentCompletionRule {
	return &SegmentCompletionRule{segments: segments}
}

func (r *SegmentCompletionRule) Validate(ctx context.Context, exam *model.Exam, candidate model.Status) (*ValidationError, error) {
	if candidate.Code != model.StatusReview && candidate.Code != model.StatusCompleted {
		return nil, nil
	}
	satisfied, err := r.segments.AllSegmentsSatisfied(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("check segment satisfaction: %w", err)
	}
	if !satisfied {
		return NewValidationError(ErrCodeExamIncomplete,
			"Cannot move exam to 'review' status because some segments are incomplete"), nil
	}
	return nil, nil
}

// ValidateSegmentEntry rejects reopening a segment that was closed without a
// restore path. A segment stays enterable while it has never been closed, or
// while its restore condition names segment entry as the reopening path.
func ValidateSegmentEntry(seg *model.ExamSegment) *ValidationError {
	if seg.Permeable || seg.ExitedAt == nil {
		return nil
	}
	if seg.RestoresOn(model.RestoreConditionSegment) {
		return nil
	}
	return NewValidationError(ErrCodeSegmentClosed,
		"Segment %d is closed and cannot be reentered", seg.Position)
}
