package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateProduct OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateProduct,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderUpdated       OutboxEventType = "order.updated"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderDeleted       OutboxEventType = "order.deleted"
	EventPaymentRecorded    OutboxEventType = "payment.recorded"
	EventPaymentUpdated     OutboxEventType = "payment.updated"
	EventPaymentDeleted     OutboxEventType = "payment.deleted"
	EventLowStock           OutboxEventType = "inventory.low_stock"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderStatusChanged,
	EventOrderDeleted,
	EventPaymentRecorded,
	EventPaymentUpdated,
	EventPaymentDeleted,
	EventLowStock,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the publisher gave up on a row.
type OutboxDLQErrorReason string

const (
	// retries exhausted on a transient failure
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// the row can never publish (unknown type, bad payload, rejected by the broker)
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}
