package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/proctorsoft/examgate/internal/config"
	"github.com/proctorsoft/examgate/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// Publisher delivers exam completion events to the downstream scoring and
// reporting saga over Redis. Delivery is at-least-once from the bus's
// perspective; consumers must be idempotent on exam id.
type Publisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(rdb *redis.Client, log zerolog.Logger) *Publisher {
	return &Publisher{
		rdb: rdb,
		log: log.With().Str("component", "messaging").Logger(),
	}
}

type examCompletedPayload struct {
	ExamID      string    `json:"exam_id"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishExamCompleted pushes the exam id onto the exam.completed queue.
// Callers fire-and-forget after their transaction commits; an error here is
// logged by the caller, never used to roll the transition back.
func (p *Publisher) PublishExamCompleted(ctx context.Context, examID string) error {
	raw, err := json.Marshal(examCompletedPayload{ExamID: examID, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal exam completed payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.rdb.RPush(ctx, config.WorkerKey.ExamCompletedQueue, raw).Err(); err != nil {
		return fmt.Errorf("push exam completed event: %w", err)
	}

	p.log.Info().Str("exam_id", examID).Msg("Exam completion event published")
	return nil
}

// StatusEvent is the committed-transition notification fanned out to live
// observers over PubSub.
type StatusEvent struct {
	ExamID    string           `json:"exam_id"`
	SessionID string           `json:"session_id"`
	Status    model.StatusCode `json:"status"`
	Stage     model.Stage      `json:"stage"`
	Reason    *string          `json:"reason,omitempty"`
	ChangedAt time.Time        `json:"changed_at"`
}

// PublishStatusEvent broadcasts a committed status change to the exam's
// stream channel and the owning session's monitor channel.
func (p *Publisher) PublishStatusEvent(ctx context.Context, ev StatusEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, config.CacheKey.ExamStatusChannel(ev.ExamID), raw).Err(); err != nil {
		return fmt.Errorf("publish exam status event: %w", err)
	}
	if err := p.rdb.Publish(ctx, config.CacheKey.SessionMonitorChannel(ev.SessionID), raw).Err(); err != nil {
		return fmt.Errorf("publish session monitor event: %w", err)
	}
	return nil
}
