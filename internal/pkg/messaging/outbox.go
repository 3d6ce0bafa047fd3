package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// OutboxEvent is a domain event waiting to be published. It is written in the
// same transaction as the state change that produced it.
type OutboxEvent struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
	Status        string
	RetryCount    int
	NextRetryAt   *time.Time
	ErrorMessage  *string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

type OutboxRepository interface {
	// Create joins the transaction carried on ctx, if any.
	Create(ctx context.Context, event OutboxEvent) error
	// ListPending returns pending and failed events whose retry time has come, oldest first.
	ListPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	// MarkFailed bumps the retry count and pushes the next attempt back.
	MarkFailed(ctx context.Context, id string, reason string) error
}

func ValidateOutboxEvent(event OutboxEvent) error {
	if event.ID == "" {
		return errors.New("outbox id is required")
	}
	if event.Topic == "" {
		return errors.New("outbox topic is required")
	}
	if len(event.Payload) == 0 {
		return errors.New("outbox payload is required")
	}
	switch event.Status {
	case OutboxStatusPending, OutboxStatusSent, OutboxStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid outbox status: %s", event.Status)
	}
}
