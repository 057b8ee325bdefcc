package session

import (
	"context"
	"time"

	"github.com/tmoller/turnclock/go/internal/models"
)

// The tick task republishes the active participant's live elapsed value
// while the session is PLAYING. It is bound to the phase: started on
// entering PLAYING, cancelled on leaving it. Cancellation is instant
// and idempotent; the handler re-checks the phase under the engine
// mutex, so a tick that raced a phase change mutates nothing. A single
// goroutine drives the loop, so ticks never overlap.

// startTickLocked starts the tick task. Caller holds e.mu.
func (e *Engine) startTickLocked() {
	if e.tickCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.tickCancel = cancel
	go e.runTick(ctx, e.tickInterval)
}

// stopTickLocked cancels the tick task. Caller holds e.mu.
func (e *Engine) stopTickLocked() {
	if e.tickCancel != nil {
		e.tickCancel()
		e.tickCancel = nil
	}
}

func (e *Engine) runTick(ctx context.Context, interval time.Duration) {
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.handleTick(ctx)
		}
	}
}

func (e *Engine) handleTick(ctx context.Context) {
	e.mu.Lock()
	if ctx.Err() != nil || e.phase != models.PhasePlaying {
		e.mu.Unlock()
		return
	}
	state, listeners := e.changedLocked()
	e.mu.Unlock()

	notify(state, listeners)
}
