package gateway

import (
	"encoding/json"
	"time"

	"github.com/tmoller/turnclock/go/internal/events"
)

// SessionEvent represents the base structure for all session events
// delivered to WebSocket clients.
type SessionEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of session event
type EventType string

const (
	EventTypeSessionStarted   EventType = "SessionStarted"
	EventTypeTurnEnded        EventType = "TurnEnded"
	EventTypeSessionPaused    EventType = "SessionPaused"
	EventTypeSessionResumed   EventType = "SessionResumed"
	EventTypeSessionCompleted EventType = "SessionCompleted"
	EventTypeSessionReset     EventType = "SessionReset"
	EventTypeTimerTick        EventType = "TimerTick"
)

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *SessionEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeSessionStarted:
		var payload events.SessionStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTurnEnded:
		var payload events.TurnEndedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionPaused:
		var payload events.SessionPausedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionResumed:
		var payload events.SessionResumedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionCompleted:
		var payload events.SessionCompletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionReset:
		var payload events.SessionResetPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTimerTick:
		var payload events.TimerTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
