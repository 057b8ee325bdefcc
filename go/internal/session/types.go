package session

import (
	"github.com/tmoller/turnclock/go/internal/models"
)

// AddParticipantRequest represents a request to append a roster member
type AddParticipantRequest struct {
	Name string `json:"name"`
}

// MoveParticipantRequest represents a request to reorder the roster
type MoveParticipantRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ChangeColorRequest represents a request to recolor a participant
type ChangeColorRequest struct {
	ParticipantID int          `json:"participant_id"`
	Color         models.Color `json:"color"`
}

// CommandResponse carries the command outcome and the resulting state.
// OK is false when the engine rejected the command (wrong phase,
// invalid argument, duplicate color, roster full).
type CommandResponse struct {
	OK    bool                `json:"ok"`
	State models.SessionState `json:"state"`
}

// SummaryLine is one row of a finished session summary.
type SummaryLine struct {
	Name          string       `json:"name"`
	Color         models.Color `json:"color"`
	ElapsedMillis int64        `json:"elapsed_millis"`
	Display       string       `json:"display"`
}

// Summary renders the per-participant totals of a state snapshot.
func Summary(state models.SessionState) []SummaryLine {
	lines := make([]SummaryLine, 0, len(state.Participants))
	for _, p := range state.Participants {
		lines = append(lines, SummaryLine{
			Name:          p.Name,
			Color:         p.Color,
			ElapsedMillis: p.ElapsedMillis,
			Display:       FormatMillis(p.ElapsedMillis),
		})
	}
	return lines
}
