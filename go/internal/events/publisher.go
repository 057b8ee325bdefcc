package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event type names carried on the wire.
const (
	TypeSessionStarted   = "SessionStarted"
	TypeTurnEnded        = "TurnEnded"
	TypeSessionPaused    = "SessionPaused"
	TypeSessionResumed   = "SessionResumed"
	TypeSessionCompleted = "SessionCompleted"
	TypeSessionReset     = "SessionReset"
	TypeTimerTick        = "TimerTick"
)

// SessionEvent is a lifecycle event emitted by the session engine.
type SessionEvent struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Publisher delivers session events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event SessionEvent) error
}

// LogPublisher writes events to the log only. Used in development and
// whenever no event bus is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event SessionEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("session_id", event.SessionID.String()).
		Msg("publishing event")
	return nil
}
