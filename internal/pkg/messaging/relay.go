package messaging

import (
	"context"
	"log/slog"
)

const defaultBatchSize = 50

// Relay moves pending outbox rows to the broker. ProcessPending is meant to be
// run on a schedule; a failed publish is retried on a later run.
type Relay struct {
	repo      OutboxRepository
	publisher Publisher
	batchSize int
	logger    *slog.Logger
}

func NewRelay(repo OutboxRepository, publisher Publisher, batchSize int, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logger.With("component", "outbox.relay"),
	}
}

// ProcessPending publishes one batch and returns how many events were sent.
func (r *Relay) ProcessPending(ctx context.Context) (int, error) {
	events, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	r.logger.Debug("processing pending outbox events", "count", len(events))

	sent := 0
	for _, event := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Error("publish outbox event failed",
				"outbox_id", event.ID,
				"event_type", event.EventType,
				"topic", event.Topic,
				"retry_count", event.RetryCount,
				"error", err,
			)
			if markErr := r.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				r.logger.Error("mark outbox failed failed", "outbox_id", event.ID, "error", markErr)
			}
			continue
		}

		if err := r.repo.MarkSent(ctx, event.ID); err != nil {
			r.logger.Error("mark outbox sent failed", "outbox_id", event.ID, "error", err)
			continue
		}
		sent++
	}

	r.logger.Info("outbox batch relayed", "sent", sent, "total", len(events))
	return sent, nil
}

// Job adapts ProcessPending to the scheduler's job signature.
func (r *Relay) Job(ctx context.Context) error {
	_, err := r.ProcessPending(ctx)
	return err
}
