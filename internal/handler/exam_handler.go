package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/response"
	"github.com/proctorsoft/examgate/internal/service"
	"github.com/proctorsoft/examgate/internal/validator"
)

// ExamHandler serves exam lifecycle endpoints for students and proctors.
type ExamHandler struct {
	examService     *service.ExamService
	statusService   *service.ExamStatusService
	approvalService *service.ApprovalService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	examService *service.ExamService,
	statusService *service.ExamStatusService,
	approvalService *service.ApprovalService,
) *ExamHandler {
	return &ExamHandler{
		examService:     examService,
		statusService:   statusService,
		approvalService: approvalService,
	}
}

// OpenExam godoc
// POST /api/v1/exams
// Opens a new exam in pending status together with its segments and
// accommodations.
func (h *ExamHandler) OpenExam(c *gin.Context) {
	var req model.OpenExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Open(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, exam)
}

// ChangeStatus godoc
// PUT /api/v1/exams/:exam_id/status
// Requests a status transition on behalf of the examinee. The caller's
// identity is re-verified against the exam before the engine runs.
func (h *ExamHandler) ChangeStatus(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ChangeStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.SessionID == nil || req.BrowserID == nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	candidate, ok := model.ParseStatusCode(req.Status)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidStatus)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failResolve(c, err)
		return
	}

	identity := model.ApprovalIdentity{
		ExamID:    examID,
		SessionID: *req.SessionID,
		BrowserID: *req.BrowserID,
	}
	verr, err := h.approvalService.VerifyAccess(c.Request.Context(), identity, exam)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	updated, verr, err := h.statusService.RequestStatusChange(c.Request.Context(), examID, candidate, req.Reason)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

// ProctorChangeStatus godoc
// PUT /api/v1/proctor/exams/:exam_id/status
// Requests a status transition on behalf of an authenticated proctor. No
// identity triple is needed; the JWT establishes authority over the session.
func (h *ExamHandler) ProctorChangeStatus(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ChangeStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, ok := model.ParseStatusCode(req.Status)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidStatus)
		return
	}

	updated, verr, err := h.statusService.RequestStatusChange(c.Request.Context(), examID, candidate, req.Reason)
	if err != nil {
		failResolve(c, err)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

// ListSegments godoc
// GET /api/v1/exams/:exam_id/segments
// Lists the exam's segments ordered by position, after re-verifying the
// caller's identity.
func (h *ExamHandler) ListSegments(c *gin.Context) {
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

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failResolve(c, err)
		return
	}

	verr, err := h.approvalService.VerifyAccess(c.Request.Context(), identity, exam)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	segments, err := h.examService.ListSegments(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"segments": segments})
}

// EnterSegment godoc
// POST /api/v1/exams/:exam_id/segments/:position/entry
// Drives the exam through a segmentEntry transition and reopens the segment.
func (h *ExamHandler) EnterSegment(c *gin.Context) {
	h.moveSegment(c, h.statusService.EnterSegment)
}

// ExitSegment godoc
// POST /api/v1/exams/:exam_id/segments/:position/exit
// Drives the exam through a segmentExit transition and closes the segment.
func (h *ExamHandler) ExitSegment(c *gin.Context) {
	h.moveSegment(c, h.statusService.ExitSegment)
}

func (h *ExamHandler) moveSegment(c *gin.Context, move service.SegmentMoveFunc) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil || position < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SegmentMoveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failResolve(c, err)
		return
	}

	identity := model.ApprovalIdentity{
		ExamID:    examID,
		SessionID: req.SessionID,
		BrowserID: req.BrowserID,
	}
	verr, err := h.approvalService.VerifyAccess(c.Request.Context(), identity, exam)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	updated, verr, err := move(c.Request.Context(), examID, position, req.Reason)
	if err != nil {
		failResolve(c, err)
		return
	}
	if verr != nil {
		failLifecycle(c, verr)
		return
	}

	response.Success(c, http.StatusOK, updated)
}
