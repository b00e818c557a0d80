package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/proctorsoft/examgate/internal/config"
	"github.com/proctorsoft/examgate/internal/handler"
	"github.com/proctorsoft/examgate/internal/middleware"
	"github.com/proctorsoft/examgate/internal/response"
	"github.com/proctorsoft/examgate/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Exam     *handler.ExamHandler
	Approval *handler.ApprovalHandler
	Monitor  *handler.MonitorHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Approval polling is cheap but clients hammer it; 60 polls per minute
	// per IP is well above any sane poll interval.
	approvalLimiter := middleware.NewRateLimiter(60, time.Minute)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/proctor/login", handlers.Auth.ProctorLogin)
	}

	// ─── 2. Exam Group (Identity-Verified, No JWT) ─────────────────────
	// Students authenticate per request with the session/browser id pair
	// checked against the exam row; there is no student login.
	exams := router.Group("/api/v1/exams")
	{
		exams.POST("", handlers.Exam.OpenExam)
		exams.GET("/:exam_id/approval", approvalLimiter.Middleware(), handlers.Approval.GetApproval)
		exams.PUT("/:exam_id/status", handlers.Exam.ChangeStatus)
		exams.GET("/:exam_id/segments", handlers.Exam.ListSegments)
		exams.POST("/:exam_id/segments/:position/entry", handlers.Exam.EnterSegment)
		exams.POST("/:exam_id/segments/:position/exit", handlers.Exam.ExitSegment)
	}

	// ─── 3. WebSocket Group (Identity in Query) ────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.ExamStatusStream)
	}

	// ─── 4. Proctor Group (JWT) ────────────────────────────────────────
	proctorAPI := router.Group("/api/v1/proctor")
	proctorAPI.Use(middleware.RequireProctorJWT(authService))
	{
		proctorAPI.PUT("/exams/:exam_id/status", handlers.Exam.ProctorChangeStatus)
		proctorAPI.GET("/sessions/:session_id/monitor", handlers.Monitor.MonitorSessionSSE)
	}

	return router
}
