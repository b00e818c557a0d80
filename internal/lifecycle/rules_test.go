package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// satisfactionStub answers AllSegmentsSatisfied; the other SegmentStore
// methods are unused by the rules.
type satisfactionStub struct {
	SegmentStore
	satisfied bool
	err       error
	calls     int
}

func (s *satisfactionStub) AllSegmentsSatisfied(context.Context, uuid.UUID) (bool, error) {
	s.calls++
	return s.satisfied, s.err
}

func examIn(code model.StatusCode) *model.Exam {
	return &model.Exam{ID: uuid.New(), Status: model.NewStatus(code)}
}

func TestBaseTransitionRule(t *testing.T) {
	t.Run("allows legal transition", func(t *testing.T) {
		verr, err := BaseTransitionRule{}.Validate(context.Background(),
			examIn(model.StatusApproved), model.NewStatus(model.StatusStarted))
		require.NoError(t, err)
		assert.Nil(t, verr)
	})

	t.Run("rejects illegal transition with both codes in the message", func(t *testing.T) {
		verr, err := BaseTransitionRule{}.Validate(context.Background(),
			examIn(model.StatusPaused), model.NewStatus(model.StatusStarted))
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, ErrCodeTransitionFailure, verr.Code)
		assert.Equal(t, "Transitioning exam status from paused to started is not allowed", verr.Message)
	})
}

func TestSegmentCompletionRule(t *testing.T) {
	t.Run("passes trivially for non-closing candidates", func(t *testing.T) {
		stub := &satisfactionStub{satisfied: false}
		rule := NewSegmentCompletionRule(stub)

		verr, err := rule.Validate(context.Background(),
			examIn(model.StatusStarted), model.NewStatus(model.StatusPaused))
		require.NoError(t, err)
		assert.Nil(t, verr)
		assert.Zero(t, stub.calls)
	})

	t.Run("rejects review while segments are incomplete", func(t *testing.T) {
		rule := NewSegmentCompletionRule(&satisfactionStub{satisfied: false})

		verr, err := rule.Validate(context.Background(),
			examIn(model.StatusStarted), model.NewStatus(model.StatusReview))
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, ErrCodeExamIncomplete, verr.Code)
		assert.Equal(t, "Cannot move exam to 'review' status because some segments are incomplete", verr.Message)
	})

	t.Run("rejects completed while segments are incomplete", func(t *testing.T) {
		rule := NewSegmentCompletionRule(&satisfactionStub{satisfied: false})

		verr, err := rule.Validate(context.Background(),
			examIn(model.StatusStarted), model.NewStatus(model.StatusCompleted))
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, ErrCodeExamIncomplete, verr.Code)
	})

	t.Run("allows completed once segments are satisfied", func(t *testing.T) {
		rule := NewSegmentCompletionRule(&satisfactionStub{satisfied: true})

		verr, err := rule.Validate(context.Background(),
			examIn(model.StatusStarted), model.NewStatus(model.StatusCompleted))
		require.NoError(t, err)
		assert.Nil(t, verr)
	})

	t.Run("propagates store faults", func(t *testing.T) {
		rule := NewSegmentCompletionRule(&satisfactionStub{err: errors.New("connection reset")})

		verr, err := rule.Validate(context.Background(),
			examIn(model.StatusStarted), model.NewStatus(model.StatusReview))
		require.Error(t, err)
		assert.Nil(t, verr)
	})
}

func TestRuleChainFailFast(t *testing.T) {
	// The completion rule sits ahead of the table rule, so an incomplete exam
	// is rejected as incomplete even when the transition itself would also be
	// illegal.
	stub := &satisfactionStub{satisfied: false}
	chain := NewRuleChain(NewSegmentCompletionRule(stub), BaseTransitionRule{})

	verr, err := chain.Validate(context.Background(),
		examIn(model.StatusPaused), model.NewStatus(model.StatusCompleted))
	require.NoError(t, err)
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeExamIncomplete, verr.Code)
	assert.Equal(t, 1, stub.calls)
}

func TestRuleChainAllPass(t *testing.T) {
	chain := NewRuleChain(NewSegmentCompletionRule(&satisfactionStub{satisfied: true}), BaseTransitionRule{})

	verr, err := chain.Validate(context.Background(),
		examIn(model.StatusReview), model.NewStatus(model.StatusCompleted))
	require.NoError(t, err)
	assert.Nil(t, verr)
}

func TestRuleChainWrapsFaults(t *testing.T) {
	chain := NewRuleChain(NewSegmentCompletionRule(&satisfactionStub{err: errors.New("timeout")}))

	verr, err := chain.Validate(context.Background(),
		examIn(model.StatusStarted), model.NewStatus(model.StatusReview))
	require.Error(t, err)
	assert.Nil(t, verr)
	assert.Contains(t, err.Error(), "validate transition")
}

func TestValidateSegmentEntry(t *testing.T) {
	cond := model.RestoreConditionSegment
	exited := time.Now()

	t.Run("open segment passes", func(t *testing.T) {
		assert.Nil(t, ValidateSegmentEntry(&model.ExamSegment{Position: 1, Permeable: true}))
	})

	t.Run("never-closed segment passes", func(t *testing.T) {
		assert.Nil(t, ValidateSegmentEntry(&model.ExamSegment{Position: 2}))
	})

	t.Run("exited segment reopens through entry", func(t *testing.T) {
		assert.Nil(t, ValidateSegmentEntry(&model.ExamSegment{
			Position: 1, ExitedAt: &exited, RestorePermeableCondition: &cond,
		}))
	})

	t.Run("segment closed without a restore path is rejected", func(t *testing.T) {
		// This is the state a pause leaves behind: permeability revoked and
		// the restore condition cleared.
		verr := ValidateSegmentEntry(&model.ExamSegment{Position: 3, ExitedAt: &exited})
		require.NotNil(t, verr)
		assert.Equal(t, ErrCodeSegmentClosed, verr.Code)
		assert.Equal(t, "Segment 3 is closed and cannot be reentered", verr.Message)
	})
}
