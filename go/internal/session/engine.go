package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/tmoller/turnclock/go/internal/events"
	"github.com/tmoller/turnclock/go/internal/models"
	"github.com/tmoller/turnclock/go/internal/roster"
)

// Listener receives a consistent session snapshot after every
// state-changing command and on every timer tick.
type Listener func(models.SessionState)

// Config holds per-engine settings.
type Config struct {
	// SnapshotKey is the store key the roster snapshot lives under.
	SnapshotKey string
	// TickInterval is how often the live elapsed value is republished
	// while PLAYING. Correctness does not depend on it; only how
	// smooth the republished value looks.
	TickInterval time.Duration
	// Clock is the time source. Defaults to the real clock.
	Clock clockwork.Clock
}

// DefaultConfig returns default engine settings.
func DefaultConfig() Config {
	return Config{
		SnapshotKey:  "roster",
		TickInterval: 100 * time.Millisecond,
		Clock:        clockwork.NewRealClock(),
	}
}

// Engine is the session state container. It owns the ordered roster,
// the lifecycle phase and the turn-timing bookkeeping, and exposes
// commands plus read-only observation.
//
// All commands are total over the current state: a command issued in a
// phase that does not permit it is a no-op (or returns false) and never
// panics. Every command and the tick handler run under one mutex, so a
// multi-threaded host is safe.
type Engine struct {
	id        uuid.UUID
	store     roster.Store
	publisher events.Publisher
	clock     clockwork.Clock

	snapshotKey  string
	tickInterval time.Duration

	mu           sync.Mutex
	participants []models.Participant
	phase        models.Phase
	activeIndex  int
	// turnStart marks when the current active stretch began accruing.
	turnStart time.Time
	// accumulated is the millis the active participant had before the
	// current stretch. Live elapsed is accumulated + (now - turnStart),
	// so irregular tick timing cannot drift the total.
	accumulated int64
	nextID      int
	startedAt   *time.Time
	finishedAt  *time.Time

	listeners  map[int]Listener
	nextListen int

	tickCancel context.CancelFunc
}

// NewEngine creates an engine in SETUP and loads the persisted roster
// snapshot, if any. Absent or malformed data means an empty roster.
func NewEngine(ctx context.Context, id uuid.UUID, store roster.Store, publisher events.Publisher, cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = "roster"
	}

	e := &Engine{
		id:           id,
		store:        store,
		publisher:    publisher,
		clock:        cfg.Clock,
		snapshotKey:  cfg.SnapshotKey,
		tickInterval: cfg.TickInterval,
		phase:        models.PhaseSetup,
		listeners:    make(map[int]Listener),
	}
	e.rebuildFromSnapshot(ctx)
	return e
}

// ID returns the session id.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Subscribe registers a listener and returns its unsubscribe func.
func (e *Engine) Subscribe(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextListen
	e.nextListen++
	e.listeners[id] = l
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// State returns a read-only snapshot. While PLAYING, the active
// participant carries the live elapsed value.
func (e *Engine) State() models.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// CanStart reports whether the roster is large enough to leave SETUP.
func (e *Engine) CanStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == models.PhaseSetup && len(e.participants) >= models.MinParticipants
}

// AddParticipant appends a participant with a fresh id and the
// lowest-indexed palette color not in use. Returns false when the
// trimmed name is empty, the roster is full, or the session has left
// SETUP.
func (e *Engine) AddParticipant(name string) bool {
	e.mu.Lock()
	name = strings.TrimSpace(name)
	if e.phase != models.PhaseSetup || name == "" || len(e.participants) >= models.MaxParticipants {
		e.mu.Unlock()
		return false
	}

	p := models.Participant{
		ID:    e.nextID,
		Name:  name,
		Color: e.freeColorLocked(),
	}
	e.nextID++
	e.participants = append(e.participants, p)
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	notify(state, listeners)
	return true
}

// RemoveParticipant removes the participant with the given id. No-op
// when the id is absent or the session has left SETUP. Ids and colors
// of the remaining participants are untouched.
func (e *Engine) RemoveParticipant(id int) {
	e.mu.Lock()
	if e.phase != models.PhaseSetup {
		e.mu.Unlock()
		return
	}
	idx := e.indexOfLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	e.participants = append(e.participants[:idx], e.participants[idx+1:]...)
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	notify(state, listeners)
}

// MoveParticipant relocates the participant at from to position to,
// shifting the ones in between. No-op when either index is out of
// bounds or the session has left SETUP. Only position changes; id,
// color and elapsed time ride along untouched.
func (e *Engine) MoveParticipant(from, to int) {
	e.mu.Lock()
	n := len(e.participants)
	if e.phase != models.PhaseSetup || from < 0 || from >= n || to < 0 || to >= n || from == to {
		e.mu.Unlock()
		return
	}
	p := e.participants[from]
	e.participants = append(e.participants[:from], e.participants[from+1:]...)
	e.participants = append(e.participants[:to], append([]models.Participant{p}, e.participants[to:]...)...)
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	notify(state, listeners)
}

// ChangeColor assigns newColor to the participant with the given id.
// Returns false when another participant already holds that color, the
// color is not a palette entry, the id is absent, or the session has
// left SETUP. Changing to one's own current color is a trivial success.
func (e *Engine) ChangeColor(id int, newColor models.Color) bool {
	e.mu.Lock()
	if e.phase != models.PhaseSetup || !models.IsPaletteColor(newColor) {
		e.mu.Unlock()
		return false
	}
	idx := e.indexOfLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	for i, p := range e.participants {
		if i != idx && p.Color == newColor {
			e.mu.Unlock()
			return false
		}
	}
	if e.participants[idx].Color == newColor {
		e.mu.Unlock()
		return true
	}
	e.participants[idx].Color = newColor
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	notify(state, listeners)
	return true
}

// StartGame moves SETUP to PLAYING, persists the roster snapshot and
// puts the first participant on the clock. No-op with fewer than two
// participants or outside SETUP. The snapshot write is best-effort:
// a store failure is logged and never blocks the transition.
func (e *Engine) StartGame(ctx context.Context) {
	e.mu.Lock()
	if e.phase != models.PhaseSetup || len(e.participants) < models.MinParticipants {
		e.mu.Unlock()
		return
	}

	entries := e.entriesLocked()
	now := e.clock.Now()
	e.phase = models.PhasePlaying
	e.activeIndex = 0
	e.turnStart = now
	e.accumulated = 0
	e.startedAt = &now
	e.finishedAt = nil
	e.startTickLocked()
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	e.saveSnapshot(ctx, entries)
	e.publish(ctx, events.TypeSessionStarted, events.SessionStartedPayload{
		SessionID:    e.id.String(),
		StartedAt:    now,
		Participants: entries,
	})
	notify(state, listeners)
}

// EndTurn freezes the active participant's elapsed time and puts the
// next participant on the clock, wrapping past the end of the roster.
// No-op outside PLAYING.
func (e *Engine) EndTurn(ctx context.Context) {
	e.mu.Lock()
	if e.phase != models.PhasePlaying {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	ended := e.freezeActiveLocked(now)
	e.activeIndex = (e.activeIndex + 1) % len(e.participants)
	e.turnStart = now
	// The next participant resumes from their prior cumulative total.
	e.accumulated = e.participants[e.activeIndex].ElapsedMillis
	nextIndex := e.activeIndex
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	e.publish(ctx, events.TypeTurnEnded, events.TurnEndedPayload{
		SessionID:       e.id.String(),
		ParticipantID:   ended.ID,
		ParticipantName: ended.Name,
		ElapsedMillis:   ended.ElapsedMillis,
		NextIndex:       nextIndex,
		EndedAt:         now,
	})
	notify(state, listeners)
}

// PauseGame freezes the active participant's elapsed time without
// advancing the turn and stops the tick task. No-op outside PLAYING.
func (e *Engine) PauseGame(ctx context.Context) {
	e.mu.Lock()
	if e.phase != models.PhasePlaying {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	frozen := e.freezeActiveLocked(now)
	// Carry the frozen total so resume rebases on it and the paused
	// interval is never counted.
	e.accumulated = frozen.ElapsedMillis
	e.phase = models.PhasePaused
	e.stopTickLocked()
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	e.publish(ctx, events.TypeSessionPaused, events.SessionPausedPayload{
		SessionID: e.id.String(),
		PausedAt:  now,
	})
	notify(state, listeners)
}

// ResumeGame restarts the clock for the active participant from their
// frozen total. No-op outside PAUSED.
func (e *Engine) ResumeGame(ctx context.Context) {
	e.mu.Lock()
	if e.phase != models.PhasePaused {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	e.phase = models.PhasePlaying
	e.turnStart = now
	e.startTickLocked()
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	e.publish(ctx, events.TypeSessionResumed, events.SessionResumedPayload{
		SessionID: e.id.String(),
		ResumedAt: now,
	})
	notify(state, listeners)
}

// EndGame moves PLAYING or PAUSED to FINISHED. From PLAYING the active
// participant's elapsed time is frozen first; from PAUSED it already
// was at pause time. After this no roster or timer mutation is
// permitted until ResetGame.
func (e *Engine) EndGame(ctx context.Context) {
	e.mu.Lock()
	if e.phase != models.PhasePlaying && e.phase != models.PhasePaused {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	if e.phase == models.PhasePlaying {
		e.freezeActiveLocked(now)
		e.stopTickLocked()
	}
	e.phase = models.PhaseFinished
	e.finishedAt = &now

	totals := make([]events.ParticipantTotal, 0, len(e.participants))
	for _, p := range e.participants {
		totals = append(totals, events.ParticipantTotal{
			ParticipantID: p.ID,
			Name:          p.Name,
			ElapsedMillis: p.ElapsedMillis,
			Display:       FormatMillis(p.ElapsedMillis),
		})
	}
	var duration string
	if e.startedAt != nil {
		duration = now.Sub(*e.startedAt).String()
	}
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	e.publish(ctx, events.TypeSessionCompleted, events.SessionCompletedPayload{
		SessionID:  e.id.String(),
		FinishedAt: now,
		Duration:   duration,
		Totals:     totals,
	})
	notify(state, listeners)
}

// ResetGame moves FINISHED back to SETUP. The roster is rebuilt from
// the snapshot persisted at StartGame time, with fresh ids starting at
// zero and all elapsed times discarded. No-op outside FINISHED.
func (e *Engine) ResetGame(ctx context.Context) {
	e.mu.Lock()
	if e.phase != models.PhaseFinished {
		e.mu.Unlock()
		return
	}

	e.rebuildFromSnapshotLocked(ctx)
	now := e.clock.Now()
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	e.publish(ctx, events.TypeSessionReset, events.SessionResetPayload{
		SessionID: e.id.String(),
		ResetAt:   now,
	})
	notify(state, listeners)
}

// Close stops the tick task. The engine stays readable.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickLocked()
}

// freezeActiveLocked stores the active participant's elapsed time as
// accumulated + (now - turnStart) and returns a copy. A negative delta
// or an elapsed decrease should be unreachable given the phase guards;
// both are clamped rather than allowed to corrupt the roster.
func (e *Engine) freezeActiveLocked(now time.Time) models.Participant {
	if e.activeIndex < 0 || e.activeIndex >= len(e.participants) {
		log.Error().
			Str("session_id", e.id.String()).
			Int("active_index", e.activeIndex).
			Int("roster_size", len(e.participants)).
			Msg("active index out of range - clamping to 0")
		e.activeIndex = 0
	}
	delta := now.Sub(e.turnStart).Milliseconds()
	if delta < 0 {
		delta = 0
	}
	elapsed := e.accumulated + delta
	p := &e.participants[e.activeIndex]
	if elapsed < p.ElapsedMillis {
		log.Error().
			Str("session_id", e.id.String()).
			Int("participant_id", p.ID).
			Int64("stored", p.ElapsedMillis).
			Int64("computed", elapsed).
			Msg("elapsed time would decrease - keeping stored value")
		elapsed = p.ElapsedMillis
	}
	p.ElapsedMillis = elapsed
	return *p
}

// freeColorLocked returns the lowest-indexed palette color not held by
// any present participant, falling back to the first palette entry.
// The fallback is unreachable with the five-participant cap; it exists
// so a full palette degrades to duplicates instead of failing.
func (e *Engine) freeColorLocked() models.Color {
	for _, c := range models.Palette {
		inUse := false
		for _, p := range e.participants {
			if p.Color == c {
				inUse = true
				break
			}
		}
		if !inUse {
			return c
		}
	}
	return models.Palette[0]
}

func (e *Engine) indexOfLocked(id int) int {
	for i, p := range e.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) entriesLocked() []models.RosterEntry {
	entries := make([]models.RosterEntry, 0, len(e.participants))
	for _, p := range e.participants {
		entries = append(entries, models.RosterEntry{Name: p.Name, Color: p.Color})
	}
	return entries
}

// snapshotLocked builds the observable state. The active participant's
// elapsed value is the live computation while PLAYING.
func (e *Engine) snapshotLocked() models.SessionState {
	parts := make([]models.Participant, len(e.participants))
	copy(parts, e.participants)
	if e.phase == models.PhasePlaying && e.activeIndex >= 0 && e.activeIndex < len(parts) {
		delta := e.clock.Now().Sub(e.turnStart).Milliseconds()
		if delta < 0 {
			delta = 0
		}
		live := e.accumulated + delta
		if live > parts[e.activeIndex].ElapsedMillis {
			parts[e.activeIndex].ElapsedMillis = live
		}
	}
	return models.SessionState{
		SessionID:    e.id,
		Phase:        e.phase,
		ActiveIndex:  e.activeIndex,
		Participants: parts,
		StartedAt:    e.startedAt,
		FinishedAt:   e.finishedAt,
	}
}

// changedLocked captures the snapshot and the listener set so callers
// can notify outside the lock.
func (e *Engine) changedLocked() (models.SessionState, []Listener) {
	state := e.snapshotLocked()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	return state, listeners
}

func notify(state models.SessionState, listeners []Listener) {
	for _, l := range listeners {
		l(state)
	}
}

// rebuildFromSnapshot reloads the roster from the store, replacing all
// engine state with a fresh SETUP session.
func (e *Engine) rebuildFromSnapshot(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebuildFromSnapshotLocked(ctx)
}

func (e *Engine) rebuildFromSnapshotLocked(ctx context.Context) {
	var entries []models.RosterEntry
	if e.store != nil {
		data, ok, err := e.store.Get(ctx, e.snapshotKey)
		if err != nil {
			log.Error().Err(err).
				Str("session_id", e.id.String()).
				Str("key", e.snapshotKey).
				Msg("failed to load roster snapshot - starting with empty roster")
		} else if ok {
			entries = roster.Decode(data)
		}
	}

	e.participants = e.participants[:0]
	e.nextID = 0
	for _, entry := range entries {
		e.participants = append(e.participants, models.Participant{
			ID:    e.nextID,
			Name:  entry.Name,
			Color: entry.Color,
		})
		e.nextID++
	}
	e.phase = models.PhaseSetup
	e.activeIndex = 0
	e.turnStart = time.Time{}
	e.accumulated = 0
	e.startedAt = nil
	e.finishedAt = nil
	e.stopTickLocked()
}

// saveSnapshot persists the roster entries, best-effort.
func (e *Engine) saveSnapshot(ctx context.Context, entries []models.RosterEntry) {
	if e.store == nil {
		return
	}
	data, err := roster.Encode(entries)
	if err != nil {
		log.Error().Err(err).Str("session_id", e.id.String()).Msg("failed to encode roster snapshot")
		return
	}
	if err := e.store.Set(ctx, e.snapshotKey, data); err != nil {
		log.Error().Err(err).
			Str("session_id", e.id.String()).
			Str("key", e.snapshotKey).
			Msg("failed to save roster snapshot")
	}
}

// publish emits a lifecycle event, best-effort.
func (e *Engine) publish(ctx context.Context, eventType string, payload interface{}) {
	if e.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}
	event := events.SessionEvent{
		ID:        uuid.New(),
		SessionID: e.id,
		EventType: eventType,
		Payload:   data,
		CreatedAt: e.clock.Now(),
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("session_id", e.id.String()).
			Msg("failed to publish event")
	}
}
