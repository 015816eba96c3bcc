package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

const (
	eventSource   = "ivrdata"
	schemaVersion = "v1"
)

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.  An empty payload leaves
// target untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// ToMessage encodes the envelope keyed by key.
func (e *EventEnvelope) ToMessage(key string) (Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}
	return Message{
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// ParseEventEnvelope decodes a published message value.
func ParseEventEnvelope(value []byte) (*EventEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	return &env, nil
}

// PublishEvent wraps payload in an envelope and publishes it under key.
func (p *Producer) PublishEvent(ctx context.Context, key, eventType string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(key)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}
