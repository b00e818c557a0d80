package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorsoft/examgate/internal/response"
	"github.com/proctorsoft/examgate/internal/service"
)

// ApprovalHandler serves the approval polling endpoint.
type ApprovalHandler struct {
	approvalService *service.ApprovalService
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvalService *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// GetApproval godoc
// GET /api/v1/exams/:exam_id/approval
// Projects the exam's current status into an approval answer for the polling
// client. Reading never mutates state, so clients may poll freely within the
// rate limit.
func (h *ApprovalHandler) GetApproval(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	identity, ok := queryIdentity(c, examID)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	approval, verr, err := h.approvalService.GetApproval(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	response.Success(c, http.StatusOK, approval)
}
