package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
)

const envelopeVersion = 1

// DomainEvent is what a service hands to Emit. Data is marshalled into the
// envelope as-is.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	if !e.EventType.IsValid() {
		return fmt.Errorf("unknown outbox event type %q", e.EventType)
	}
	if !e.AggregateType.IsValid() {
		return fmt.Errorf("unknown outbox aggregate type %q", e.AggregateType)
	}
	if e.AggregateID == uuid.Nil {
		return fmt.Errorf("%s event without aggregate id", e.EventType)
	}
	return nil
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit writes the event inside tx, so it commits or rolls back with the
// state change it describes. The row id doubles as the envelope event id.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := event.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	version := event.Version
	if version == 0 {
		version = envelopeVersion
	}

	id := uuid.New()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    id,
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return err
	}

	if s.logg != nil && ctx != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       id.String(),
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// EmitIfNotPending is Emit for periodic scans: nothing is written while an
// unpublished event of the same type for the same aggregate is queued.
func (s *Service) EmitIfNotPending(ctx context.Context, tx *gorm.DB, event DomainEvent) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	pending, err := s.repo.PendingExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || pending {
		return false, err
	}
	if err := s.Emit(ctx, tx, event); err != nil {
		return false, err
	}
	return true, nil
}
