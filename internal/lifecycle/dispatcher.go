package lifecycle

import (
	"context"
	"fmt"

	"github.com/proctorsoft/examgate/internal/model"
)

// Reactor is one unit of side-effecting logic triggered by entry into a
// specific status. Each reactor checks its own trigger condition against the
// (old, new) pair, so reactors stay independent and composable.
type Reactor interface {
	React(ctx context.Context, old, updated *model.Exam) error
}

// ChangeDispatcher invokes reactors after a committed transition. It runs
// inside the transition's transaction: a reactor failure aborts the status
// change along with every other side effect.
type ChangeDispatcher struct {
	reactors []Reactor
}

// NewChangeDispatcher builds a dispatcher over an explicit, ordered reactor
// list.
func NewChangeDispatcher(reactors ...Reactor) *ChangeDispatcher {
	return &ChangeDispatcher{reactors: reactors}
}

// Dispatch runs every reactor for a committed (old, updated) pair. An
// idempotent re-save (same status code) dispatches nothing.
func (d *ChangeDispatcher) Dispatch(ctx context.Context, old, updated *model.Exam) error {
	if old.Status.Code == updated.Status.Code {
		return nil
	}
	for _, r := range d.reactors {
		if err := r.React(ctx, old, updated); err != nil {
			return fmt.Errorf("dispatch status change to %s: %w", updated.Status.Code, err)
		}
	}
	return nil
}
