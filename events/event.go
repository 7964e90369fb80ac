package events

import (
	"fmt"
	"time"

	"github.com/casualjim/tidings/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var eventJSON = []byte(`{"type":"event"}`)

// Event is one unit of payload delivered to the subscribers of a topic.
type Event[T any] struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Payload   T               `json:"payload"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

// New wraps payload in an event for topic, stamped with a fresh id and the current time.
func New[T any](topic string, payload T) Event[T] {
	return Event[T]{
		ID:        uuidx.New(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: strfmt.DateTime(time.Now().UTC()),
	}
}

// WithMeta returns a copy of e carrying the given raw JSON object as metadata.
func (e Event[T]) WithMeta(raw string) Event[T] {
	e.Meta = gjson.Parse(raw)
	return e
}

// MarshalJSON implements custom JSON marshaling for Event[T]
func (e Event[T]) MarshalJSON() ([]byte, error) {
	result := eventJSON

	var err error
	result, err = sjson.SetBytes(result, "id", e.ID.String())
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "topic", e.Topic)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	result, err = sjson.SetRawBytes(result, "payload", payload)
	if err != nil {
		return nil, err
	}

	if !e.Timestamp.IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", e.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	if e.Meta.Exists() {
		result, err = sjson.SetRawBytes(result, "meta", []byte(e.Meta.Raw))
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Event[T]
func (e *Event[T]) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "event" {
		return fmt.Errorf("missing or invalid type, expected 'event'")
	}

	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return fmt.Errorf("missing required field 'id'")
	}
	if err := e.ID.UnmarshalText([]byte(id.String())); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}

	topic := gjson.GetBytes(data, "topic")
	if !topic.Exists() {
		return fmt.Errorf("missing required field 'topic'")
	}
	e.Topic = topic.String()

	payload := gjson.GetBytes(data, "payload")
	if !payload.Exists() {
		return fmt.Errorf("missing required field 'payload'")
	}
	if err := json.Unmarshal([]byte(payload.Raw), &e.Payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := e.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	if meta := gjson.GetBytes(data, "meta"); meta.Exists() {
		e.Meta = meta
	}

	return nil
}
