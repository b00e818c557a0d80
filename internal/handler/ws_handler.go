package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/proctorsoft/examgate/internal/config"
	"github.com/proctorsoft/examgate/internal/response"
	"github.com/proctorsoft/examgate/internal/service"
	ws "github.com/proctorsoft/examgate/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams committed status changes of one exam to its examinee, as
// a push alternative to approval polling.
type WSHandler struct {
	rdb             *redis.Client
	examService     *service.ExamService
	approvalService *service.ApprovalService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	approvalService *service.ApprovalService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:             rdb,
		examService:     examService,
		approvalService: approvalService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// ExamStatusStream godoc
// WS /ws/v1/exams/:exam_id/stream
// Verifies the caller's identity, then forwards every committed status change
// for the exam. The client may send ping frames; everything else is an error.
func (h *WSHandler) ExamStatusStream(c *gin.Context) {
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

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	// ws.Conn serializes writes: pong replies come from the read goroutine
	// while status pushes come from this one.
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("exam_id", examID.String()).Logger()
	wsLog.Info().Msg("Examinee connected to status stream")

	reqCtx := c.Request.Context()

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamStatusChannel(examID.String()))
	defer pubsub.Close()

	// Reader loop: pings and close detection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}

			switch msg.Action {
			case ws.ActionPing:
				conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			default:
				wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
				conn.WriteError("unknown action: " + string(msg.Action))
			}
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-reqCtx.Done():
			return
		case <-done:
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if err := conn.WriteTyped(ws.StatusPush{Event: ws.EventStatus, Payload: msg.Payload}); err != nil {
				wsLog.Debug().Err(err).Msg("Status push write failed")
				return
			}
		}
	}
}
