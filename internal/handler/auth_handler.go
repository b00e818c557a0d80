package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/response"
	"github.com/proctorsoft/examgate/internal/service"
	"github.com/proctorsoft/examgate/internal/validator"
)

// AuthHandler handles proctor authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	proctorService *service.ProctorService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, proctorService *service.ProctorService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		proctorService: proctorService,
	}
}

// ProctorLogin godoc
// POST /api/v1/auth/proctor/login
// Validates email + password, returns JWT.
func (h *AuthHandler) ProctorLogin(c *gin.Context) {
	var req model.ProctorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	proctor, err := h.proctorService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(proctor.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateProctorToken(proctor.ID, proctor.Name)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"proctor": gin.H{
			"id":    proctor.ID,
			"email": proctor.Email,
			"name":  proctor.Name,
		},
	})
}
