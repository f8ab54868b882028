package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one append-only entry on a polling channel.
type Event struct {
	EventID    string
	EventType  EventType
	Action     Action
	EntityID   string
	EntityType string
	Metadata   Metadata
	Timestamp  time.Time
	TTL        int64
}

// ExpiresAt is the instant after which the event is no longer served.
func (e Event) ExpiresAt() time.Time {
	return e.Timestamp.Add(time.Duration(e.TTL) * time.Second)
}

type wireEvent struct {
	EventID    string          `json:"eventId"`
	EventType  EventType       `json:"eventType"`
	Action     Action          `json:"action"`
	EntityID   string          `json:"entityId"`
	EntityType string          `json:"entityType"`
	Metadata   json.RawMessage `json:"metadata"`
	Timestamp  time.Time       `json:"timestamp"`
	TTL        int64           `json:"ttl"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{
		EventID:    e.EventID,
		EventType:  e.EventType,
		Action:     e.Action,
		EntityID:   e.EntityID,
		EntityType: e.EntityType,
		Metadata:   meta,
		Timestamp:  e.Timestamp,
		TTL:        e.TTL,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	meta, err := unmarshalMetadata(w.EventType, w.Metadata)
	if err != nil {
		return fmt.Errorf("event %s metadata: %w", w.EventID, err)
	}
	*e = Event{
		EventID:    w.EventID,
		EventType:  w.EventType,
		Action:     w.Action,
		EntityID:   w.EntityID,
		EntityType: w.EntityType,
		Metadata:   meta,
		Timestamp:  w.Timestamp,
		TTL:        w.TTL,
	}
	return nil
}

func marshalMetadata(m Metadata) (json.RawMessage, error) {
	switch v := m.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case OrderUpdateMetadata:
		flat := make(map[string]any, len(v.Details)+2)
		for k, val := range v.Details {
			flat[k] = val
		}
		flat["orderId"] = v.OrderID
		flat["updateType"] = v.UpdateType
		return json.Marshal(flat)
	case *OrderUpdateMetadata:
		return marshalMetadata(*v)
	default:
		return json.Marshal(v)
	}
}

func unmarshalMetadata(t EventType, raw json.RawMessage) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	switch t {
	case CustomerOrderStatus:
		var m OrderStatusMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case AdminNewOrder:
		var m NewOrderMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case AdminOrderUpdate:
		var flat map[string]any
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, err
		}
		m := OrderUpdateMetadata{Details: map[string]any{}}
		for k, v := range flat {
			switch k {
			case "orderId":
				m.OrderID, _ = v.(string)
			case "updateType":
				m.UpdateType, _ = v.(string)
			default:
				m.Details[k] = v
			}
		}
		return m, nil
	default:
		var m GenericMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// MetadataFromMap converts a loosely typed payload into the variant that
// matches t.
func MetadataFromMap(t EventType, m map[string]any) (Metadata, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return unmarshalMetadata(t, raw)
}
