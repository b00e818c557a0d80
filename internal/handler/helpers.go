package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/lifecycle"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/response"
)

// failLifecycle maps a business rejection onto the HTTP surface. Identity
// mismatches are fatal to the caller (403); everything else is a recoverable
// conflict the client may retry or keep polling on (409).
func failLifecycle(c *gin.Context, verr *lifecycle.ValidationError) {
	status := http.StatusConflict
	switch verr.Code {
	case lifecycle.ErrCodeBrowserMismatch, lifecycle.ErrCodeSessionMismatch:
		status = http.StatusForbidden
	}
	response.FailWithMessage(c, status, response.ErrCode(verr.Code), verr.Message)
}

// failResolve maps a resolution error: a missing row is 404, anything else is
// a system fault.
func failResolve(c *gin.Context, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// queryIdentity assembles the caller's exam identity from query parameters.
// Used by the approval poll and the WebSocket stream, where there is no body.
func queryIdentity(c *gin.Context, examID uuid.UUID) (model.ApprovalIdentity, bool) {
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		return model.ApprovalIdentity{}, false
	}
	browserID, err := uuid.Parse(c.Query("browser_id"))
	if err != nil {
		return model.ApprovalIdentity{}, false
	}
	return model.ApprovalIdentity{
		ExamID:     examID,
		SessionID:  sessionID,
		BrowserID:  browserID,
		ClientName: c.Query("client_name"),
	}, true
}
