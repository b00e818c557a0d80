package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorsoft/examgate/internal/config"
	"github.com/proctorsoft/examgate/internal/middleware"
	"github.com/proctorsoft/examgate/internal/response"
	"github.com/proctorsoft/examgate/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams committed status changes of a session's exams to the
// attached proctor over SSE.
type MonitorHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	sessionService *service.SessionService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		examService:    examService,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorSessionSSE godoc
// GET /api/v1/proctor/sessions/:session_id/monitor
// Sends an initial snapshot of the session's exams, then forwards every
// committed status change published for the session. An attached proctor
// counts as checked in, so the stream also refreshes the check-in stamp.
func (h *MonitorHandler) MonitorSessionSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		failResolve(c, err)
		return
	}

	reqCtx := c.Request.Context()

	if err := h.sessionService.Checkin(reqCtx, session.ID); err != nil {
		h.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Check-in stamp failed")
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendInitialSnapshot(c, sessionID)

	channelName := config.CacheKey.SessionMonitorChannel(sessionID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().
		Int("proctor_id", claims.ProctorID).
		Str("session_id", sessionID.String()).
		Msg("Proctor attached to session monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("session_id", sessionID.String()).Msg("Proctor disconnected from session monitor SSE")
			return

		case msg := <-ch:
			// Forward the committed status event verbatim.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

			// The proctor is still watching; keep the check-in window open.
			if err := h.sessionService.Checkin(reqCtx, sessionID); err != nil {
				h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Check-in refresh failed")
			}
		}
	}
}

// sendInitialSnapshot writes the first SSE event: every exam in the session
// with its current status.
func (h *MonitorHandler) sendInitialSnapshot(c *gin.Context, sessionID uuid.UUID) {
	exams, err := h.examService.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Snapshot query failed")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"session_id": sessionID.String(),
			"exams":      exams,
		},
	})
	c.Writer.Flush()
}
