package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/tmoller/turnclock/go/internal/events"
	"github.com/tmoller/turnclock/go/internal/models"
	"github.com/tmoller/turnclock/go/internal/roster"
)

// App hosts independent session engines keyed by session id.
type App struct {
	store        roster.Store
	publisher    events.Publisher
	clock        clockwork.Clock
	tickInterval time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Engine
	onCreate func(*Engine)
}

// NewApp creates a session App backed by the given snapshot store and
// event publisher.
func NewApp(store roster.Store, publisher events.Publisher) *App {
	return &App{
		store:        store,
		publisher:    publisher,
		clock:        clockwork.NewRealClock(),
		tickInterval: 100 * time.Millisecond,
		sessions:     make(map[uuid.UUID]*Engine),
	}
}

// SetTickInterval overrides the tick interval for sessions created
// after the call. Only how often the live value republishes changes;
// accumulation stays wall-clock based.
func (a *App) SetTickInterval(d time.Duration) {
	if d > 0 {
		a.tickInterval = d
	}
}

// snapshotKey namespaces each session's persisted roster.
func snapshotKey(id uuid.UUID) string {
	return fmt.Sprintf("roster:%s", id)
}

// CreateSession builds a new engine in SETUP and registers it.
func (a *App) CreateSession(ctx context.Context) *Engine {
	id := uuid.New()
	engine := NewEngine(ctx, id, a.store, a.publisher, Config{
		SnapshotKey:  snapshotKey(id),
		TickInterval: a.tickInterval,
		Clock:        a.clock,
	})

	a.mu.Lock()
	a.sessions[id] = engine
	hook := a.onCreate
	a.mu.Unlock()

	if hook != nil {
		hook(engine)
	}

	log.Info().Str("session_id", id.String()).Msg("created session")
	return engine
}

// SetOnCreate registers a hook invoked for every session the app
// creates. The gateway uses it to attach its tick broadcaster.
func (a *App) SetOnCreate(fn func(*Engine)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onCreate = fn
}

// GetSession returns the engine for id, if registered.
func (a *App) GetSession(id uuid.UUID) (*Engine, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	engine, ok := a.sessions[id]
	return engine, ok
}

// ListSessions returns a snapshot of every registered session.
func (a *App) ListSessions() []models.SessionState {
	a.mu.RLock()
	engines := make([]*Engine, 0, len(a.sessions))
	for _, e := range a.sessions {
		engines = append(engines, e)
	}
	a.mu.RUnlock()

	states := make([]models.SessionState, 0, len(engines))
	for _, e := range engines {
		states = append(states, e.State())
	}
	return states
}

// RemoveSession stops and unregisters a session. No-op for unknown ids.
func (a *App) RemoveSession(id uuid.UUID) {
	a.mu.Lock()
	engine, ok := a.sessions[id]
	if ok {
		delete(a.sessions, id)
	}
	a.mu.Unlock()

	if ok {
		engine.Close()
		log.Info().Str("session_id", id.String()).Msg("removed session")
	}
}

// Shutdown stops the tick tasks of every session.
func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.sessions {
		e.Close()
	}
}
