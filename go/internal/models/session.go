package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase defines the lifecycle stage of a session.
type Phase string

const (
	PhaseSetup    Phase = "SETUP"
	PhasePlaying  Phase = "PLAYING"
	PhasePaused   Phase = "PAUSED"
	PhaseFinished Phase = "FINISHED"
)

// MaxParticipants caps the roster size while in SETUP.
const MaxParticipants = 5

// MinParticipants is the roster size required to leave SETUP.
const MinParticipants = 2

// SessionState is a consistent read-only snapshot of a session.
// For the active participant while PLAYING, ElapsedMillis carries the
// live value (stored total plus the current running stretch).
type SessionState struct {
	SessionID    uuid.UUID     `json:"session_id"`
	Phase        Phase         `json:"phase"`
	ActiveIndex  int           `json:"active_index"`
	Participants []Participant `json:"participants"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// Active returns the active participant of the snapshot, or nil when
// the phase has no meaningful active index.
func (s *SessionState) Active() *Participant {
	if s.Phase != PhasePlaying && s.Phase != PhasePaused {
		return nil
	}
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Participants) {
		return nil
	}
	return &s.Participants[s.ActiveIndex]
}
