package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain events consumed by the notification collaborator.
const (
	EventAssignmentDispatched   = "assignment.dispatched"
	EventAssignmentUndispatched = "assignment.undispatched"
	EventSubmissionFinalized    = "submission.finalized"
	EventSubmissionGraded       = "submission.graded"
)

// DomainEvent is the payload published for assignment and submission changes.
type DomainEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Source       string    `json:"source"`
	AssignmentID uint      `json:"assignment_id"`
	SubmissionID *uint     `json:"submission_id,omitempty"`
	StudentID    *uint     `json:"student_id,omitempty"`
	ActorID      *uint     `json:"actor_id,omitempty"`
	Grade        *float64  `json:"grade,omitempty"`
	Recipients   []uint    `json:"recipients,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventPublisher fans domain events out to the message brokers.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

type brokerEventPublisher struct {
	nats        *nats.Conn
	redis       *redis.Client
	subjectBase string
	channelBase string
	nodeID      string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEventPublisher builds a publisher that writes to NATS subjects
// "<base>.<event type>" and to the Redis channel "<base>:events". Either
// broker may be nil.
func NewEventPublisher(natsConn *nats.Conn, redisClient *redis.Client, base string, logger zerolog.Logger) EventPublisher {
	base = strings.Trim(strings.TrimSpace(base), ".:")
	if base == "" {
		base = "gema.assessment"
	}

	return &brokerEventPublisher{
		nats:        natsConn,
		redis:       redisClient,
		subjectBase: strings.ReplaceAll(base, ":", "."),
		channelBase: strings.ReplaceAll(base, ".", ":"),
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "event_publisher").Logger(),
		now:         time.Now,
	}
}

func (p *brokerEventPublisher) Publish(ctx context.Context, event DomainEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	event.Source = p.nodeID

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.nats != nil {
		msg := nats.NewMsg(p.subjectBase + "." + event.Type)
		msg.Header.Set(nats.MsgIdHdr, event.ID)
		msg.Data = payload
		if err := p.nats.PublishMsg(msg); err != nil {
			return err
		}
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.channelBase+":events", payload).Err(); err != nil {
			return err
		}
	}

	return nil
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger zerolog.Logger, event DomainEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event", event.Type).Uint("assignment_id", event.AssignmentID).Msg("failed to publish domain event")
	}
}
