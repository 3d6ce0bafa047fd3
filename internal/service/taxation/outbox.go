package taxation

import (
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/messaging"
)

func toOutboxEvent(e taxation.Event) (messaging.OutboxEvent, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return messaging.OutboxEvent{}, fmt.Errorf("encode %s event: %w", e.EventType(), err)
	}
	meta := e.Meta()
	return messaging.OutboxEvent{
		ID:            meta.EventID,
		AggregateType: taxation.AggregateType,
		AggregateID:   meta.AggregateKey(),
		EventType:     meta.Type,
		Topic:         taxation.EventsTopic,
		Payload:       payload,
		Status:        messaging.OutboxStatusPending,
		CreatedAt:     meta.OccurredAt,
	}, nil
}
