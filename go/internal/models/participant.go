package models

// Participant represents one member of a session roster.
// IDs are assigned monotonically per session and never reused,
// even after a participant is removed.
type Participant struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Color         Color  `json:"color"`
	ElapsedMillis int64  `json:"elapsed_millis"`
}

// RosterEntry is the persisted shape of a participant: name and color
// only. Elapsed time and ids are never persisted.
type RosterEntry struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}
