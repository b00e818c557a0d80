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

// ─── In-package fakes ───────────────────────────────────────────────

type fakeSegmentStore struct {
	segments map[int]*model.ExamSegment
	updated  []model.ExamSegment
	findErr  error
}

func newFakeSegmentStore(segments ...model.ExamSegment) *fakeSegmentStore {
	f := &fakeSegmentStore{segments: make(map[int]*model.ExamSegment)}
	for i := range segments {
		s := segments[i]
		f.segments[s.Position] = &s
	}
	return f
}

func (f *fakeSegmentStore) FindSegments(context.Context, uuid.UUID) ([]model.ExamSegment, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.ExamSegment
	for _, s := range f.segments {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSegmentStore) FindSegmentAt(_ context.Context, _ uuid.UUID, position int) (*model.ExamSegment, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.segments[position]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSegmentStore) UpdateSegments(_ context.Context, segments ...model.ExamSegment) error {
	for _, s := range segments {
		f.updated = append(f.updated, s)
		cp := s
		f.segments[s.Position] = &cp
	}
	return nil
}

func (f *fakeSegmentStore) AllSegmentsSatisfied(context.Context, uuid.UUID) (bool, error) {
	for _, s := range f.segments {
		if !s.Satisfied {
			return false, nil
		}
	}
	return true, nil
}

type fakeAccommodationStore struct {
	deniedExam uuid.UUID
	deniedAt   time.Time
	calls      int
}

func (f *fakeAccommodationStore) DenyAll(_ context.Context, examID uuid.UUID, deniedAt time.Time) error {
	f.calls++
	f.deniedExam = examID
	f.deniedAt = deniedAt
	return nil
}

type fakeExamineeStore struct {
	snapshots []uuid.UUID
	err       error
}

func (f *fakeExamineeStore) InsertFinalAttributesAndRelationships(_ context.Context, exam *model.Exam) error {
	if f.err != nil {
		return f.err
	}
	f.snapshots = append(f.snapshots, exam.ID)
	return nil
}

type fakeFieldTestStore struct {
	groups  []model.FieldTestItemGroup
	updated []model.FieldTestItemGroup
}

func (f *fakeFieldTestStore) FindUsageInExam(context.Context, uuid.UUID) ([]model.FieldTestItemGroup, error) {
	return f.groups, nil
}

func (f *fakeFieldTestStore) Update(_ context.Context, groups ...model.FieldTestItemGroup) error {
	f.updated = append(f.updated, groups...)
	return nil
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishExamCompleted(_ context.Context, examID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, examID)
	return nil
}

func transitionPair(from, to model.StatusCode) (*model.Exam, *model.Exam) {
	old := &model.Exam{
		ID:             uuid.New(),
		SessionID:      uuid.New(),
		Status:         model.NewStatus(from),
		CurrentSegment: 1,
		ChangedAt:      time.Now().Add(-time.Minute),
	}
	updated := *old
	updated.Status = model.NewStatus(to)
	updated.ChangedAt = time.Now()
	return old, &updated
}

// ─── Dispatcher ─────────────────────────────────────────────────────

type recordingReactor struct {
	fired int
	err   error
}

func (r *recordingReactor) React(context.Context, *model.Exam, *model.Exam) error {
	r.fired++
	return r.err
}

func TestDispatchSkipsSameCodeSaves(t *testing.T) {
	r := &recordingReactor{}
	d := NewChangeDispatcher(r)

	old, updated := transitionPair(model.StatusStarted, model.StatusStarted)
	require.NoError(t, d.Dispatch(context.Background(), old, updated))
	assert.Zero(t, r.fired)
}

func TestDispatchRunsReactorsInOrder(t *testing.T) {
	first, second := &recordingReactor{}, &recordingReactor{}
	d := NewChangeDispatcher(first, second)

	old, updated := transitionPair(model.StatusStarted, model.StatusPaused)
	require.NoError(t, d.Dispatch(context.Background(), old, updated))
	assert.Equal(t, 1, first.fired)
	assert.Equal(t, 1, second.fired)
}

func TestDispatchAbortsOnReactorError(t *testing.T) {
	boom := &recordingReactor{err: errors.New("segment write failed")}
	after := &recordingReactor{}
	d := NewChangeDispatcher(boom, after)

	old, updated := transitionPair(model.StatusStarted, model.StatusCompleted)
	err := d.Dispatch(context.Background(), old, updated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch status change to completed")
	assert.Zero(t, after.fired)
}

// ─── CompletedReactor ───────────────────────────────────────────────

func TestCompletedReactor(t *testing.T) {
	newReactor := func() (*CompletedReactor, *fakeSegmentStore, *fakeExamineeStore, *fakeFieldTestStore, *fakePublisher) {
		segments := newFakeSegmentStore(
			model.ExamSegment{Position: 1, SegmentKey: "sect-a", Permeable: true},
			model.ExamSegment{Position: 2, SegmentKey: "sect-b", Permeable: false},
		)
		examinees := &fakeExamineeStore{}
		fieldTest := &fakeFieldTestStore{}
		bus := &fakePublisher{}
		return NewCompletedReactor(segments, examinees, fieldTest, bus), segments, examinees, fieldTest, bus
	}

	t.Run("closes permeable segments, snapshots and publishes once", func(t *testing.T) {
		r, segments, examinees, _, bus := newReactor()
		old, updated := transitionPair(model.StatusReview, model.StatusCompleted)

		require.NoError(t, r.React(context.Background(), old, updated))

		require.Len(t, segments.updated, 1)
		assert.Equal(t, 1, segments.updated[0].Position)
		assert.False(t, segments.updated[0].Permeable)

		require.Len(t, examinees.snapshots, 1)
		assert.Equal(t, updated.ID, examinees.snapshots[0])

		require.Len(t, bus.published, 1)
		assert.Equal(t, updated.ID.String(), bus.published[0])
	})

	t.Run("stamps unadministered field test groups with the completion time", func(t *testing.T) {
		r, _, _, fieldTest, _ := newReactor()
		already := time.Now().Add(-time.Hour)
		fieldTest.groups = []model.FieldTestItemGroup{
			{ID: uuid.New(), GroupKey: "ft-1"},
			{ID: uuid.New(), GroupKey: "ft-2", AdministeredAt: &already},
		}

		old, updated := transitionPair(model.StatusReview, model.StatusCompleted)
		completedAt := time.Now().Add(-time.Second)
		updated.CompletedAt = &completedAt

		require.NoError(t, r.React(context.Background(), old, updated))

		require.Len(t, fieldTest.updated, 1)
		assert.Equal(t, "ft-1", fieldTest.updated[0].GroupKey)
		require.NotNil(t, fieldTest.updated[0].AdministeredAt)
		assert.Equal(t, completedAt, *fieldTest.updated[0].AdministeredAt)
	})

	t.Run("ignores other transitions", func(t *testing.T) {
		r, segments, examinees, _, bus := newReactor()
		old, updated := transitionPair(model.StatusStarted, model.StatusPaused)

		require.NoError(t, r.React(context.Background(), old, updated))
		assert.Empty(t, segments.updated)
		assert.Empty(t, examinees.snapshots)
		assert.Empty(t, bus.published)
	})

	t.Run("fails when the snapshot cannot be written", func(t *testing.T) {
		r, _, examinees, _, bus := newReactor()
		examinees.err = errors.New("snapshot conflict")

		old, updated := transitionPair(model.StatusReview, model.StatusCompleted)
		require.Error(t, r.React(context.Background(), old, updated))
		assert.Empty(t, bus.published)
	})
}

// ─── DeniedReactor ──────────────────────────────────────────────────

func TestDeniedReactor(t *testing.T) {
	t.Run("denies all accommodations at the transition time", func(t *testing.T) {
		store := &fakeAccommodationStore{}
		r := NewDeniedReactor(store)

		old, updated := transitionPair(model.StatusPending, model.StatusDenied)
		require.NoError(t, r.React(context.Background(), old, updated))

		assert.Equal(t, 1, store.calls)
		assert.Equal(t, updated.ID, store.deniedExam)
		assert.Equal(t, updated.ChangedAt, store.deniedAt)
	})

	t.Run("ignores other transitions", func(t *testing.T) {
		store := &fakeAccommodationStore{}
		r := NewDeniedReactor(store)

		old, updated := transitionPair(model.StatusStarted, model.StatusPaused)
		require.NoError(t, r.React(context.Background(), old, updated))
		assert.Zero(t, store.calls)
	})
}

// ─── ExpiredReactor ─────────────────────────────────────────────────

func TestExpiredReactor(t *testing.T) {
	t.Run("publishes the exam into the completion saga", func(t *testing.T) {
		bus := &fakePublisher{}
		r := NewExpiredReactor(bus)

		old, updated := transitionPair(model.StatusPaused, model.StatusExpired)
		require.NoError(t, r.React(context.Background(), old, updated))
		require.Len(t, bus.published, 1)
		assert.Equal(t, updated.ID.String(), bus.published[0])
	})

	t.Run("ignores other transitions", func(t *testing.T) {
		bus := &fakePublisher{}
		r := NewExpiredReactor(bus)

		old, updated := transitionPair(model.StatusStarted, model.StatusCompleted)
		require.NoError(t, r.React(context.Background(), old, updated))
		assert.Empty(t, bus.published)
	})
}

// ─── PausedReactor ──────────────────────────────────────────────────

func TestPausedReactor(t *testing.T) {
	cond := model.RestoreConditionSegment

	t.Run("closes the current segment when its restore condition matches", func(t *testing.T) {
		segments := newFakeSegmentStore(model.ExamSegment{
			Position: 2, Permeable: true, RestorePermeableCondition: &cond,
		})
		r := NewPausedReactor(segments)

		old, updated := transitionPair(model.StatusStarted, model.StatusPaused)
		updated.CurrentSegment = 2

		require.NoError(t, r.React(context.Background(), old, updated))
		require.Len(t, segments.updated, 1)
		assert.False(t, segments.updated[0].Permeable)
		assert.Nil(t, segments.updated[0].RestorePermeableCondition)
		require.NotNil(t, segments.updated[0].ExitedAt)
		assert.Equal(t, updated.ChangedAt, *segments.updated[0].ExitedAt)
	})

	t.Run("leaves segments without a matching condition alone", func(t *testing.T) {
		segments := newFakeSegmentStore(model.ExamSegment{Position: 1, Permeable: true})
		r := NewPausedReactor(segments)

		old, updated := transitionPair(model.StatusStarted, model.StatusPaused)
		require.NoError(t, r.React(context.Background(), old, updated))
		assert.Empty(t, segments.updated)
	})

	t.Run("no-ops when the exam has no segment at the current position", func(t *testing.T) {
		r := NewPausedReactor(newFakeSegmentStore())

		old, updated := transitionPair(model.StatusStarted, model.StatusPaused)
		require.NoError(t, r.React(context.Background(), old, updated))
	})

	t.Run("never touches accommodations or the bus", func(t *testing.T) {
		// Reactor exclusivity: a pause fires only the paused reactor's
		// collaborators even when dispatched alongside the others.
		segments := newFakeSegmentStore(model.ExamSegment{
			Position: 1, Permeable: true, RestorePermeableCondition: &cond,
		})
		accommodations := &fakeAccommodationStore{}
		bus := &fakePublisher{}
		d := NewChangeDispatcher(
			NewCompletedReactor(segments, &fakeExamineeStore{}, &fakeFieldTestStore{}, bus),
			NewDeniedReactor(accommodations),
			NewExpiredReactor(bus),
			NewPausedReactor(segments),
		)

		old, updated := transitionPair(model.StatusStarted, model.StatusPaused)
		require.NoError(t, d.Dispatch(context.Background(), old, updated))

		assert.Zero(t, accommodations.calls)
		assert.Empty(t, bus.published)
		require.Len(t, segments.updated, 1)
	})
}

// ─── Outbox ─────────────────────────────────────────────────────────

func TestOutboxBuffersUntilDrained(t *testing.T) {
	outbox := &Outbox{}
	require.NoError(t, outbox.PublishExamCompleted(context.Background(), "a"))
	require.NoError(t, outbox.PublishExamCompleted(context.Background(), "b"))

	assert.Equal(t, []string{"a", "b"}, outbox.Drain())
	assert.Empty(t, outbox.Drain())
}
