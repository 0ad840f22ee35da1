// Package registry knows which outbox event types may be published, on which
// topic, and what their data decodes to.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		newPayload:    func() any { return new(T) },
	}
}

var catalog = []EventDescriptor{
	describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder),
	describe[payloads.OrderUpdatedEvent](enums.EventOrderUpdated, enums.AggregateOrder),
	describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder),
	describe[payloads.OrderDeletedEvent](enums.EventOrderDeleted, enums.AggregateOrder),
	describe[payloads.PaymentRecordedEvent](enums.EventPaymentRecorded, enums.AggregatePayment),
	describe[payloads.PaymentUpdatedEvent](enums.EventPaymentUpdated, enums.AggregatePayment),
	describe[payloads.PaymentDeletedEvent](enums.EventPaymentDeleted, enums.AggregatePayment),
	describe[payloads.LowStockEvent](enums.EventLowStock, enums.AggregateProduct),
}

// ResolvedEvent is an outbox row that passed validation, with its data
// decoded into the registered payload type.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never publish as stored. The
// dispatcher dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox event"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// NewEventRegistry routes every event type to the orders topic; all domain
// events share one stream and consumers filter on the event_type attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(catalog))}
	for _, desc := range catalog {
		desc.Topic = cfg.OrdersTopic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the envelope.
// Every failure is a NonRetryableError: retrying cannot fix a stored row.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanent("%s belongs to %s aggregates, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("%s row without aggregate_id", event.EventType)
	}

	env, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, NonRetryableError{Err: fmt.Errorf("%s: %w", event.EventType, err)}
	}
	if event.ID != uuid.Nil && env.EventID != event.ID {
		return nil, permanent("envelope event id %s does not match row %s", env.EventID, event.ID)
	}
	payload := desc.newPayload()
	if err := env.Decode(payload); err != nil {
		return nil, NonRetryableError{Err: err}
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
