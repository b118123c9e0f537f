package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for everything the coordinator, session and flow
// publish to UI layers.
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	Topic     string          `json:"topic"`     // Cart ID, or "" for session-wide events
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of event
type EventType string

const (
	EventTypeTimerTick            EventType = "TimerTick"
	EventTypeReservationStarted   EventType = "ReservationStarted"
	EventTypeReservationExpired   EventType = "ReservationExpired"
	EventTypeReservationCancelled EventType = "ReservationCancelled"
	EventTypeReservationCompleted EventType = "ReservationCompleted"
	EventTypeLeaveRequested       EventType = "LeaveRequested"
	EventTypeResumeOffered        EventType = "ResumeOffered"
	EventTypeNotification         EventType = "Notification"
	EventTypeAuthRequired         EventType = "AuthRequired"
	EventTypeSessionChanged       EventType = "SessionChanged"
)

// Lifecycle reports whether the event type marks a reservation state change.
// Ticks, prompts and notifications are UI traffic only.
func (t EventType) Lifecycle() bool {
	switch t {
	case EventTypeReservationStarted, EventTypeReservationExpired,
		EventTypeReservationCancelled, EventTypeReservationCompleted:
		return true
	}
	return false
}

// New builds an event with a fresh id and the given payload
func New(eventType EventType, topic string, at time.Time, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.New().String(),
		Topic:     topic,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Decode unmarshals the event data into out
func (e *Event) Decode(out any) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *Event) (interface{}, error) {
	switch event.Type {
	case EventTypeTimerTick:
		var payload TimerTickPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReservationStarted:
		var payload ReservationStartedPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReservationExpired:
		var payload ReservationExpiredPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReservationCancelled:
		var payload ReservationCancelledPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReservationCompleted:
		var payload ReservationCompletedPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeLeaveRequested:
		var payload LeaveRequestedPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeResumeOffered:
		var payload ResumeOfferedPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeNotification:
		var payload NotificationPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuthRequired:
		var payload AuthRequiredPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionChanged:
		var payload SessionChangedPayload
		if err := event.Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
