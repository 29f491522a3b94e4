package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSubmissionSubject is the NATS subject graded submissions are announced on.
const DefaultSubmissionSubject = "submission.graded"

// SubmissionGradedEvent is published after a submission has been persisted.
type SubmissionGradedEvent struct {
	SubmissionID   string    `json:"submission_id"`
	UserID         string    `json:"user_id"`
	ContentID      string    `json:"content_id"`
	ContentType    string    `json:"content_type"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	TimeSpent      int       `json:"time_spent"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SubmissionEventPublisher announces graded submissions to other services.
type SubmissionEventPublisher interface {
	PublishGraded(ctx context.Context, event SubmissionGradedEvent) error
}

type natsSubmissionPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewSubmissionEventPublisher publishes events over NATS. A nil connection
// yields a publisher that drops events.
func NewSubmissionEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) SubmissionEventPublisher {
	if subject == "" {
		subject = DefaultSubmissionSubject
	}
	return &natsSubmissionPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "submission_events").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/submission_events"),
	}
}

func (p *natsSubmissionPublisher) PublishGraded(ctx context.Context, event SubmissionGradedEvent) error {
	if p.conn == nil {
		return nil
	}

	_, span := p.tracer.Start(ctx, "submissions.publish", trace.WithAttributes(
		attribute.String("messaging.destination", p.subject),
		attribute.String("submission.id", event.SubmissionID),
	))
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		span.RecordError(err)
		return err
	}

	p.logger.Debug().Str("submission_id", event.SubmissionID).Str("subject", p.subject).Msg("submission event published")
	return nil
}
