package roster

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmoller/turnclock/go/internal/models"
)

// Encode serializes an ordered roster snapshot as a JSON list of
// {name, color} entries.
func Encode(entries []models.RosterEntry) ([]byte, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roster snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a persisted roster snapshot. Two formats are accepted:
// the current list of {name, color} objects, and the legacy list of
// plain name strings, which gets colors assigned by palette index
// (cycling when there are more legacy names than palette entries).
// Malformed data is treated as absence: Decode returns an empty roster
// rather than an error, logging what it skipped.
func Decode(data []byte) []models.RosterEntry {
	if len(data) == 0 {
		return nil
	}

	var entries []models.RosterEntry
	if err := json.Unmarshal(data, &entries); err == nil && validEntries(entries) {
		return entries
	}

	// Legacy format: ["Alice", "Bob"]
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		entries = make([]models.RosterEntry, 0, len(names))
		for i, name := range names {
			entries = append(entries, models.RosterEntry{
				Name:  name,
				Color: models.ColorByIndex(i),
			})
		}
		return entries
	}

	log.Warn().Int("bytes", len(data)).Msg("malformed roster snapshot - falling back to empty roster")
	return nil
}

// validEntries rejects object lists whose fields did not actually
// populate, e.g. a legacy string list that unmarshalled into zero
// values would not land here, but partial garbage can.
func validEntries(entries []models.RosterEntry) bool {
	for _, e := range entries {
		if e.Name == "" {
			return false
		}
	}
	return true
}
