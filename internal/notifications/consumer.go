package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/outbox/payloads"
)

const consumerName = "notification-inbox"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns order, payment and stock events into inbox rows.
type Consumer struct {
	repo         Repository
	subscription receiver
	claims       claimer
	logg         *logger.Logger
}

func NewConsumer(repo Repository, subscription receiver, claims claimer, logg *logger.Logger) (*Consumer, error) {
	switch {
	case repo == nil:
		return nil, errors.New("notifications repository required")
	case subscription == nil:
		return nil, errors.New("notification subscription required")
	case claims == nil:
		return nil, errors.New("idempotency manager required")
	case logg == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{repo: repo, subscription: subscription, claims: claims, logg: logg}, nil
}

// Run receives until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Undecodable messages
// are acked so they do not redeliver forever; storage failures release the
// claim and nack.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !handles(eventType) {
		c.logg.Debug(logCtx, "notification.skipped")
		return true
	}

	envelope, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID := envelope.EventID
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	claimed, err := c.claims.Claim(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency claim failed", err)
		return false
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	rows, err := c.build(ctx, eventType, eventID, envelope.Data)
	if err == nil {
		err = c.repo.CreateBatch(ctx, rows)
	}
	var bad payloadError
	switch {
	case errors.As(err, &bad):
		c.logg.Error(logCtx, "failed to parse payload", err)
		return true
	case err != nil:
		c.logg.Error(logCtx, "notification handling failed", err)
		if relErr := c.claims.Release(ctx, consumerName, eventID); relErr != nil {
			c.logg.Error(logCtx, "idempotency release failed", relErr)
		}
		return false
	}

	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(rows)), "notification.recorded")
	return true
}

type payloadError struct{ err error }

func (e payloadError) Error() string { return "decode payload: " + e.err.Error() }
func (e payloadError) Unwrap() error { return e.err }

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return payloadError{err: err}
	}
	return nil
}

func handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderCreated, enums.EventOrderStatusChanged, enums.EventPaymentRecorded, enums.EventLowStock:
		return true
	}
	return false
}

func (c *Consumer) build(ctx context.Context, eventType enums.OutboxEventType, eventID uuid.UUID, data []byte) ([]models.Notification, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := decode(data, &payload); err != nil {
			return nil, err
		}
		orderID := payload.OrderID
		return fanOut(eventID, suppliers(payload.DistributorID, payload.SubDistributorID), models.Notification{
			Type:    enums.NotificationTypeOrder,
			Title:   "New order received",
			Message: fmt.Sprintf("Order %s was placed for %s %s.", payload.OrderNumber, payload.GrandTotal, payload.Currency),
			OrderID: &orderID,
		}), nil

	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := decode(data, &payload); err != nil {
			return nil, err
		}
		order, err := c.findOrder(ctx, payload.OrderID)
		if err != nil || order == nil {
			return nil, err
		}
		recipients := []uuid.UUID{order.PlacedBy}
		if payload.To == enums.OrderStatusCancelled || payload.To == enums.OrderStatusReturned {
			recipients = append(recipients, suppliers(order.DistributorID, order.SubDistributorID)...)
		}
		message := fmt.Sprintf("Order %s moved from %s to %s.", payload.OrderNumber, payload.From, payload.To)
		if payload.Reason != "" {
			message += " Reason: " + payload.Reason
		}
		return fanOut(eventID, recipients, models.Notification{
			Type:    enums.NotificationTypeOrder,
			Title:   "Order " + string(payload.To),
			Message: message,
			OrderID: &order.ID,
		}), nil

	case enums.EventPaymentRecorded:
		var payload payloads.PaymentRecordedEvent
		if err := decode(data, &payload); err != nil {
			return nil, err
		}
		order, err := c.findOrder(ctx, payload.OrderID)
		if err != nil || order == nil {
			return nil, err
		}
		return fanOut(eventID, []uuid.UUID{order.PlacedBy}, models.Notification{
			Type:  enums.NotificationTypePayment,
			Title: "Payment recorded",
			Message: fmt.Sprintf("%s payment of %s (%s) recorded against order %s. Remaining %s.",
				payload.Method, payload.Amount, payload.Status, order.OrderNumber, payload.Remaining),
			OrderID: &order.ID,
		}), nil

	case enums.EventLowStock:
		var payload payloads.LowStockEvent
		if err := decode(data, &payload); err != nil {
			return nil, err
		}
		productID := payload.ProductID
		row := models.Notification{
			Type:      enums.NotificationTypeStock,
			Title:     "Low stock",
			Message:   fmt.Sprintf("%s is down to %d (alert at %d).", payload.Name, payload.Stock, payload.MinStockAlert),
			ProductID: &productID,
		}
		if payload.OwnerID == nil {
			// catalog stock belongs to the admin inbox
			row.ID = uuid.New()
			row.EventID = eventID
			return []models.Notification{row}, nil
		}
		return fanOut(eventID, []uuid.UUID{*payload.OwnerID}, row), nil
	}
	return nil, nil
}

// findOrder returns nil without error when the order has since been deleted.
func (c *Consumer) findOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := c.repo.FindOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return order, err
}

func suppliers(ids ...*uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != nil && *id != uuid.Nil {
			out = append(out, *id)
		}
	}
	return out
}

// fanOut copies the template once per distinct recipient.
func fanOut(eventID uuid.UUID, recipients []uuid.UUID, template models.Notification) []models.Notification {
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	rows := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient == uuid.Nil {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		row := template
		row.ID = uuid.New()
		row.EventID = eventID
		row.RecipientID = &recipient
		rows = append(rows, row)
	}
	return rows
}
