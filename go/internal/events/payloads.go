package events

import (
	"time"

	"github.com/tmoller/turnclock/go/internal/models"
)

// Event payload types shared between the session and gateway packages.

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	SessionID    string               `json:"session_id"`
	StartedAt    time.Time            `json:"started_at"`
	Participants []models.RosterEntry `json:"participants"`
}

// TurnEndedPayload is the payload for a TurnEnded event
type TurnEndedPayload struct {
	SessionID       string    `json:"session_id"`
	ParticipantID   int       `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	ElapsedMillis   int64     `json:"elapsed_millis"`
	NextIndex       int       `json:"next_index"`
	EndedAt         time.Time `json:"ended_at"`
}

// SessionPausedPayload is the payload for a SessionPaused event
type SessionPausedPayload struct {
	SessionID string    `json:"session_id"`
	PausedAt  time.Time `json:"paused_at"`
}

// SessionResumedPayload is the payload for a SessionResumed event
type SessionResumedPayload struct {
	SessionID string    `json:"session_id"`
	ResumedAt time.Time `json:"resumed_at"`
}

// ParticipantTotal is one line of a final session summary.
type ParticipantTotal struct {
	ParticipantID int    `json:"participant_id"`
	Name          string `json:"name"`
	ElapsedMillis int64  `json:"elapsed_millis"`
	Display       string `json:"display"`
}

// SessionCompletedPayload is the payload for a SessionCompleted event
type SessionCompletedPayload struct {
	SessionID  string             `json:"session_id"`
	FinishedAt time.Time          `json:"finished_at"`
	Duration   string             `json:"duration"`
	Totals     []ParticipantTotal `json:"totals"`
}

// SessionResetPayload is the payload for a SessionReset event
type SessionResetPayload struct {
	SessionID string    `json:"session_id"`
	ResetAt   time.Time `json:"reset_at"`
}

// TimerTickPayload contains periodic live timer updates for the active
// participant. Ticks are fanned out to local subscribers only, never
// published to the event bus.
type TimerTickPayload struct {
	SessionID     string    `json:"session_id"`
	ParticipantID int       `json:"participant_id"`
	ElapsedMillis int64     `json:"elapsed_millis"`
	Display       string    `json:"display"`
	TickedAt      time.Time `json:"ticked_at"`
}
