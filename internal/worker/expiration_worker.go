package worker

import (
	"context"
	"time"

	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/repository"
	"github.com/proctorsoft/examgate/internal/service"
	"github.com/rs/zerolog"
)

const ExpireBatchSize = 100

// ExpirationWorker sweeps for exams that have sat in an expirable status past
// the configured deadline and drives each through an expired transition. The
// sweep goes through the engine like any other caller, so expiry triggers the
// same validation and reactors.
type ExpirationWorker struct {
	examRepo      *repository.ExamRepository
	statusService *service.ExamStatusService
	expireAfter   time.Duration
	sweepEvery    time.Duration
	log           zerolog.Logger
}

// NewExpirationWorker creates an ExpirationWorker.
func NewExpirationWorker(
	examRepo *repository.ExamRepository,
	statusService *service.ExamStatusService,
	expireAfter time.Duration,
	sweepEvery time.Duration,
	log zerolog.Logger,
) *ExpirationWorker {
	return &ExpirationWorker{
		examRepo:      examRepo,
		statusService: statusService,
		expireAfter:   expireAfter,
		sweepEvery:    sweepEvery,
		log:           log.With().Str("component", "expiration_worker").Logger(),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *ExpirationWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("expire_after", w.expireAfter).
		Dur("sweep_every", w.sweepEvery).
		Msg("ExpirationWorker started")

	ticker := time.NewTicker(w.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpirationWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirationWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.expireAfter)

	ids, err := w.examRepo.ListExpirable(ctx, cutoff, ExpireBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("Expirable scan failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	reason := "Exam inactivity deadline elapsed"
	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}

		_, verr, err := w.statusService.RequestStatusChange(ctx, id, model.StatusExpired, &reason)
		if err != nil {
			w.log.Error().Err(err).Str("exam_id", id.String()).Msg("Expire transition failed")
			continue
		}
		if verr != nil {
			// The exam moved on between the scan and the lock; leave it be.
			w.log.Debug().
				Str("exam_id", id.String()).
				Str("code", string(verr.Code)).
				Msg("Expire transition rejected")
			continue
		}
		expired++
	}

	w.log.Info().Int("scanned", len(ids)).Int("expired", expired).Msg("Expiration sweep done")
}
