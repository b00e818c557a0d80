package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/lifecycle"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExamReader struct {
	exam *model.Exam
	err  error
}

func (f *fakeExamReader) GetByID(context.Context, uuid.UUID) (*model.Exam, error) {
	return f.exam, f.err
}

type fakeSessionReader struct {
	session *model.Session
	err     error
}

func (f *fakeSessionReader) GetByID(context.Context, uuid.UUID) (*model.Session, error) {
	return f.session, f.err
}

type approvalFixture struct {
	exam     *model.Exam
	session  *model.Session
	identity model.ApprovalIdentity
}

func newApprovalFixture(code model.StatusCode) *approvalFixture {
	examID, sessionID, browserID := uuid.New(), uuid.New(), uuid.New()
	proctorID := 7
	visited := time.Now().Add(-time.Minute)
	return &approvalFixture{
		exam: &model.Exam{
			ID:        examID,
			SessionID: sessionID,
			BrowserID: browserID,
			Status:    model.NewStatus(code),
		},
		session: &model.Session{
			ID:          sessionID,
			ProctorID:   &proctorID,
			Open:        true,
			DateVisited: &visited,
		},
		identity: model.ApprovalIdentity{
			ExamID:     examID,
			SessionID:  sessionID,
			BrowserID:  browserID,
			ClientName: "secure-browser",
		},
	}
}

func (f *approvalFixture) service(bypassOpenSession bool) *ApprovalService {
	return NewApprovalService(
		&fakeExamReader{exam: f.exam},
		&fakeSessionReader{session: f.session},
		20*time.Minute,
		bypassOpenSession,
	)
}

func TestGetApprovalProjections(t *testing.T) {
	tests := []struct {
		code model.StatusCode
		want model.ApprovalStatus
	}{
		{model.StatusApproved, model.ApprovalApproved},
		{model.StatusDenied, model.ApprovalDenied},
		{model.StatusPaused, model.ApprovalLogout},
		{model.StatusPending, model.ApprovalWaiting},
		{model.StatusStarted, model.ApprovalWaiting},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			f := newApprovalFixture(tt.code)
			approval, verr, err := f.service(false).GetApproval(context.Background(), f.identity)
			require.NoError(t, err)
			require.Nil(t, verr)
			assert.Equal(t, tt.want, approval.ApprovalStatus)
			assert.Equal(t, f.exam.ID, approval.ExamID)
		})
	}
}

func TestGetApprovalCarriesReason(t *testing.T) {
	f := newApprovalFixture(model.StatusDenied)
	reason := "Identification could not be verified"
	f.exam.StatusChangeReason = &reason

	approval, verr, err := f.service(false).GetApproval(context.Background(), f.identity)
	require.NoError(t, err)
	require.Nil(t, verr)
	require.NotNil(t, approval.StatusChangeReason)
	assert.Equal(t, reason, *approval.StatusChangeReason)
}

func TestGetApprovalExamNotFound(t *testing.T) {
	svc := NewApprovalService(
		&fakeExamReader{err: pgx.ErrNoRows},
		&fakeSessionReader{},
		20*time.Minute,
		false,
	)

	approval, verr, err := svc.GetApproval(context.Background(), model.ApprovalIdentity{ExamID: uuid.New()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
	assert.Nil(t, approval)
	assert.Nil(t, verr)
}

func TestVerifyAccessIdentityMismatch(t *testing.T) {
	t.Run("browser mismatch is fatal regardless of status", func(t *testing.T) {
		for _, code := range []model.StatusCode{model.StatusApproved, model.StatusPending, model.StatusDenied} {
			f := newApprovalFixture(code)
			f.identity.BrowserID = uuid.New()

			verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
			require.NoError(t, err)
			require.NotNil(t, verr)
			assert.Equal(t, lifecycle.ErrCodeBrowserMismatch, verr.Code)
		}
	})

	t.Run("session mismatch", func(t *testing.T) {
		f := newApprovalFixture(model.StatusApproved)
		f.identity.SessionID = uuid.New()

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeSessionMismatch, verr.Code)
	})

	t.Run("browser check wins when both ids mismatch", func(t *testing.T) {
		f := newApprovalFixture(model.StatusApproved)
		f.identity.BrowserID = uuid.New()
		f.identity.SessionID = uuid.New()

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeBrowserMismatch, verr.Code)
	})
}

func TestVerifyAccessGuestSession(t *testing.T) {
	t.Run("open guest session admits", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		f.session.ProctorID = nil
		f.session.DateVisited = nil // no proctor, no check-in requirement

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		assert.Nil(t, verr)
	})

	t.Run("closed guest session rejects", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		f.session.ProctorID = nil
		f.session.Open = false

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeSessionClosed, verr.Code)
	})
}

func TestVerifyAccessProctoredSession(t *testing.T) {
	t.Run("open session with recent check-in admits", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		assert.Nil(t, verr)
	})

	t.Run("closed session rejects", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		f.session.Open = false

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeSessionClosed, verr.Code)
	})

	t.Run("closed session admits under bypass", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		f.session.Open = false

		verr, err := f.service(true).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		assert.Nil(t, verr)
	})

	t.Run("stale check-in rejects", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		stale := time.Now().Add(-time.Hour)
		f.session.DateVisited = &stale

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeCheckinTimeout, verr.Code)
	})

	t.Run("never-visited session rejects", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		f.session.DateVisited = nil

		verr, err := f.service(false).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeCheckinTimeout, verr.Code)
	})

	t.Run("check-in window still applies under bypass", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		f.session.Open = false
		stale := time.Now().Add(-time.Hour)
		f.session.DateVisited = &stale

		verr, err := f.service(true).VerifyAccess(context.Background(), f.identity, f.exam)
		require.NoError(t, err)
		require.NotNil(t, verr)
		assert.Equal(t, lifecycle.ErrCodeCheckinTimeout, verr.Code)
	})

	t.Run("session resolution fault propagates", func(t *testing.T) {
		f := newApprovalFixture(model.StatusPending)
		svc := NewApprovalService(
			&fakeExamReader{exam: f.exam},
			&fakeSessionReader{err: errors.New("connection refused")},
			20*time.Minute,
			false,
		)

		verr, err := svc.VerifyAccess(context.Background(), f.identity, f.exam)
		require.Error(t, err)
		assert.Nil(t, verr)
	})
}
