package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proctorsoft/examgate/internal/config"
	"github.com/proctorsoft/examgate/internal/database"
	"github.com/proctorsoft/examgate/internal/handler"
	"github.com/proctorsoft/examgate/internal/logger"
	"github.com/proctorsoft/examgate/internal/messaging"
	"github.com/proctorsoft/examgate/internal/repository"
	"github.com/proctorsoft/examgate/internal/router"
	"github.com/proctorsoft/examgate/internal/service"
	"github.com/proctorsoft/examgate/internal/validator"
	"github.com/proctorsoft/examgate/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamGate")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	segmentRepo := repository.NewExamSegmentRepository(pool)
	accommodationRepo := repository.NewAccommodationRepository(pool)
	examineeRepo := repository.NewExamineeRepository(pool)
	fieldTestRepo := repository.NewFieldTestRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	proctorRepo := repository.NewProctorRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	bus := messaging.NewPublisher(rdb, log)
	authService := service.NewAuthService(cfg)
	proctorService := service.NewProctorService(proctorRepo)
	sessionService := service.NewSessionService(sessionRepo)
	examService := service.NewExamService(pool, examRepo, segmentRepo, accommodationRepo, log)
	statusService := service.NewExamStatusService(
		pool, examRepo, segmentRepo, accommodationRepo, examineeRepo, fieldTestRepo, bus, log)
	approvalService := service.NewApprovalService(
		examRepo, sessionRepo, cfg.TACheckinWindow, cfg.BypassOpenSession())

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, proctorService),
		Exam:     handler.NewExamHandler(examService, statusService, approvalService),
		Approval: handler.NewApprovalHandler(approvalService),
		Monitor:  handler.NewMonitorHandler(rdb, examService, sessionService, log),
		WS:       handler.NewWSHandler(rdb, examService, approvalService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	expirationWorker := worker.NewExpirationWorker(
		examRepo, statusService, cfg.ExamExpireAfter, cfg.ExpireSweepEvery, log)
	go expirationWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the expiration sweep mid-cycle if needed.
	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
