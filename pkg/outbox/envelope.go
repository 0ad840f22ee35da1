package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	Role   enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// verbatim. EventID equals the outbox row id, so consumers can dedupe on it.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    uuid.UUID       `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var ErrEmptyPayload = errors.New("envelope has no data")

// ParseEnvelope decodes raw and rejects envelopes without an id or data.
func ParseEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == uuid.Nil {
		return PayloadEnvelope{}, errors.New("envelope missing eventId")
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, ErrEmptyPayload
	}
	return env, nil
}

// Decode unmarshals the event data into dst.
func (e PayloadEnvelope) Decode(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode event %s data: %w", e.EventID, err)
	}
	return nil
}
