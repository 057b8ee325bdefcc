package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmoller/turnclock/go/internal/models"
	"github.com/tmoller/turnclock/go/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *clockwork.FakeClock, *storage.MemoryStore) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := storage.NewMemoryStore()
	engine := NewEngine(context.Background(), uuid.New(), store, nil, Config{
		SnapshotKey:  "roster",
		TickInterval: 100 * time.Millisecond,
		Clock:        clock,
	})
	t.Cleanup(engine.Close)
	return engine, clock, store
}

func addAll(t *testing.T, e *Engine, names ...string) {
	t.Helper()
	for _, name := range names {
		require.True(t, e.AddParticipant(name))
	}
}

func TestAddParticipant(t *testing.T) {
	t.Run("appends with fresh id and unused color", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "Alice", "Bob")

		state := engine.State()
		require.Len(t, state.Participants, 2)
		assert.Equal(t, 0, state.Participants[0].ID)
		assert.Equal(t, 1, state.Participants[1].ID)
		assert.Equal(t, "Bob", state.Participants[1].Name)
		assert.NotEqual(t, state.Participants[0].Color, state.Participants[1].Color)
	})

	t.Run("trims the name", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		require.True(t, engine.AddParticipant("  Alice  "))
		assert.Equal(t, "Alice", engine.State().Participants[0].Name)
	})

	t.Run("rejects empty or blank names", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		assert.False(t, engine.AddParticipant(""))
		assert.False(t, engine.AddParticipant("   "))
		assert.Empty(t, engine.State().Participants)
	})

	t.Run("rejects a sixth participant", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b", "c", "d", "e")
		assert.False(t, engine.AddParticipant("f"))
		assert.Len(t, engine.State().Participants, 5)
	})

	t.Run("picks the lowest free palette color", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b", "c")
		state := engine.State()
		assert.Equal(t, models.Palette[0], state.Participants[0].Color)
		assert.Equal(t, models.Palette[1], state.Participants[1].Color)
		assert.Equal(t, models.Palette[2], state.Participants[2].Color)

		// Removing the middle one frees its color for the next add
		engine.RemoveParticipant(state.Participants[1].ID)
		require.True(t, engine.AddParticipant("d"))
		got := engine.State()
		assert.Equal(t, models.Palette[1], got.Participants[2].Color)
	})

	t.Run("id is never reused after removal", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		engine.RemoveParticipant(1)
		require.True(t, engine.AddParticipant("c"))
		state := engine.State()
		assert.Equal(t, 2, state.Participants[1].ID)
	})

	t.Run("rejected outside SETUP", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		engine.StartGame(context.Background())
		assert.False(t, engine.AddParticipant("c"))
		assert.Len(t, engine.State().Participants, 2)
	})
}

func TestRemoveParticipant(t *testing.T) {
	t.Run("removes by id", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b", "c")
		engine.RemoveParticipant(1)

		state := engine.State()
		require.Len(t, state.Participants, 2)
		assert.Equal(t, 0, state.Participants[0].ID)
		assert.Equal(t, 2, state.Participants[1].ID)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		engine.RemoveParticipant(99)
		assert.Len(t, engine.State().Participants, 2)
	})

	t.Run("no-op outside SETUP", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		engine.StartGame(context.Background())
		engine.RemoveParticipant(0)
		assert.Len(t, engine.State().Participants, 2)
	})
}

func TestMoveParticipant(t *testing.T) {
	t.Run("relocates preserving id color and elapsed", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b", "c")
		before := engine.State().Participants

		engine.MoveParticipant(0, 2)

		after := engine.State().Participants
		require.Len(t, after, 3)
		assert.Equal(t, before[1], after[0])
		assert.Equal(t, before[2], after[1])
		assert.Equal(t, before[0], after[2])
	})

	t.Run("moves toward the front", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b", "c")

		engine.MoveParticipant(2, 0)

		after := engine.State().Participants
		assert.Equal(t, "c", after[0].Name)
		assert.Equal(t, "a", after[1].Name)
		assert.Equal(t, "b", after[2].Name)
	})

	t.Run("out of bounds is a no-op", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		before := engine.State().Participants

		engine.MoveParticipant(-1, 0)
		engine.MoveParticipant(0, 2)
		engine.MoveParticipant(5, 1)

		assert.Equal(t, before, engine.State().Participants)
	})
}

func TestChangeColor(t *testing.T) {
	t.Run("unused color succeeds", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		assert.True(t, engine.ChangeColor(0, models.ColorTeal))
		assert.Equal(t, models.ColorTeal, engine.State().Participants[0].Color)
	})

	t.Run("color held by another participant fails", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		state := engine.State()
		taken := state.Participants[1].Color

		assert.False(t, engine.ChangeColor(0, taken))

		after := engine.State()
		assert.Equal(t, state.Participants[0].Color, after.Participants[0].Color)
		assert.Equal(t, taken, after.Participants[1].Color)
	})

	t.Run("own current color is a trivial success", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		own := engine.State().Participants[0].Color
		assert.True(t, engine.ChangeColor(0, own))
	})

	t.Run("unknown id or non-palette color fails", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		assert.False(t, engine.ChangeColor(42, models.ColorTeal))
		assert.False(t, engine.ChangeColor(0, models.Color("MAUVE")))
	})
}

func TestStartGame(t *testing.T) {
	t.Run("needs at least two participants", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "solo")

		assert.False(t, engine.CanStart())
		engine.StartGame(context.Background())
		assert.Equal(t, models.PhaseSetup, engine.State().Phase)
	})

	t.Run("moves to PLAYING with first participant on the clock", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")

		assert.True(t, engine.CanStart())
		engine.StartGame(context.Background())

		state := engine.State()
		assert.Equal(t, models.PhasePlaying, state.Phase)
		assert.Equal(t, 0, state.ActiveIndex)
	})

	t.Run("persists the roster snapshot", func(t *testing.T) {
		engine, _, store := newTestEngine(t)
		addAll(t, engine, "Alice", "Bob")
		engine.StartGame(context.Background())

		data, ok, err := store.Get(context.Background(), "roster")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `[{"name":"Alice","color":"RED"},{"name":"Bob","color":"BLUE"}]`, string(data))
	})

	t.Run("no-op outside SETUP", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		engine.StartGame(context.Background())
		engine.EndTurn(context.Background())
		before := engine.State()

		engine.StartGame(context.Background())

		after := engine.State()
		assert.Equal(t, before.ActiveIndex, after.ActiveIndex)
		assert.Equal(t, models.PhasePlaying, after.Phase)
	})
}

func TestEndTurnCycling(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	addAll(t, engine, "A", "B", "C")
	ctx := context.Background()
	engine.StartGame(ctx)

	clock.Advance(2 * time.Second)
	engine.EndTurn(ctx)
	state := engine.State()
	assert.Equal(t, 1, state.ActiveIndex)
	assert.Equal(t, int64(2000), state.Participants[0].ElapsedMillis)

	clock.Advance(1 * time.Second)
	engine.EndTurn(ctx)
	assert.Equal(t, 2, engine.State().ActiveIndex)

	clock.Advance(4 * time.Second)
	engine.EndTurn(ctx)
	// Three endTurns on a three-member roster wrap back to the start
	state = engine.State()
	assert.Equal(t, 0, state.ActiveIndex)
	assert.Equal(t, int64(1000), state.Participants[1].ElapsedMillis)
	assert.Equal(t, int64(4000), state.Participants[2].ElapsedMillis)

	// Second round: A resumes from its prior cumulative total
	clock.Advance(3 * time.Second)
	engine.EndTurn(ctx)
	state = engine.State()
	assert.Equal(t, 1, state.ActiveIndex)
	assert.Equal(t, int64(5000), state.Participants[0].ElapsedMillis)
}

func TestEndTurnOutsidePlayingIsNoop(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	addAll(t, engine, "a", "b")
	ctx := context.Background()

	engine.EndTurn(ctx)
	assert.Equal(t, models.PhaseSetup, engine.State().Phase)

	engine.StartGame(ctx)
	engine.PauseGame(ctx)
	clock.Advance(time.Second)
	engine.EndTurn(ctx)

	state := engine.State()
	assert.Equal(t, models.PhasePaused, state.Phase)
	assert.Equal(t, 0, state.ActiveIndex)
	assert.Equal(t, int64(0), state.Participants[0].ElapsedMillis)
}

func TestPauseResume(t *testing.T) {
	t.Run("pause freezes without advancing the turn", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()
		engine.StartGame(ctx)

		clock.Advance(1500 * time.Millisecond)
		engine.PauseGame(ctx)

		state := engine.State()
		assert.Equal(t, models.PhasePaused, state.Phase)
		assert.Equal(t, 0, state.ActiveIndex)
		assert.Equal(t, int64(1500), state.Participants[0].ElapsedMillis)
	})

	t.Run("immediate resume leaves elapsed unchanged", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()
		engine.StartGame(ctx)

		clock.Advance(time.Second)
		engine.PauseGame(ctx)
		engine.ResumeGame(ctx)
		engine.PauseGame(ctx)

		assert.Equal(t, int64(1000), engine.State().Participants[0].ElapsedMillis)
	})

	t.Run("the paused interval is never counted", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()
		engine.StartGame(ctx)

		clock.Advance(2 * time.Second) // active
		engine.PauseGame(ctx)
		clock.Advance(30 * time.Second) // paused, must not count
		engine.ResumeGame(ctx)
		clock.Advance(2 * time.Second) // active again
		engine.EndTurn(ctx)

		assert.Equal(t, int64(4000), engine.State().Participants[0].ElapsedMillis)
	})

	t.Run("resume outside PAUSED is a no-op", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()

		engine.ResumeGame(ctx)
		assert.Equal(t, models.PhaseSetup, engine.State().Phase)

		engine.StartGame(ctx)
		engine.ResumeGame(ctx)
		assert.Equal(t, models.PhasePlaying, engine.State().Phase)
	})
}

func TestEndGame(t *testing.T) {
	t.Run("from PLAYING freezes the active participant", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "Alice", "Bob")
		ctx := context.Background()
		engine.StartGame(ctx)

		clock.Advance(5 * time.Second)
		engine.EndTurn(ctx)
		clock.Advance(3 * time.Second)
		engine.EndGame(ctx)

		state := engine.State()
		assert.Equal(t, models.PhaseFinished, state.Phase)
		assert.Equal(t, int64(5000), state.Participants[0].ElapsedMillis)
		assert.Equal(t, int64(3000), state.Participants[1].ElapsedMillis)
		assert.Equal(t, "00:05", FormatMillis(state.Participants[0].ElapsedMillis))
		assert.Equal(t, "00:03", FormatMillis(state.Participants[1].ElapsedMillis))
	})

	t.Run("from PAUSED does not refreeze", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()
		engine.StartGame(ctx)

		clock.Advance(time.Second)
		engine.PauseGame(ctx)
		clock.Advance(10 * time.Second) // must not leak into the total
		engine.EndGame(ctx)

		state := engine.State()
		assert.Equal(t, models.PhaseFinished, state.Phase)
		assert.Equal(t, int64(1000), state.Participants[0].ElapsedMillis)
	})

	t.Run("totals stay frozen afterwards", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()
		engine.StartGame(ctx)
		clock.Advance(time.Second)
		engine.EndGame(ctx)

		clock.Advance(time.Minute)
		engine.EndTurn(ctx)
		engine.PauseGame(ctx)

		state := engine.State()
		assert.Equal(t, models.PhaseFinished, state.Phase)
		assert.Equal(t, int64(1000), state.Participants[0].ElapsedMillis)
	})
}

func TestResetGame(t *testing.T) {
	t.Run("rebuilds from the snapshot taken at start", func(t *testing.T) {
		engine, clock, _ := newTestEngine(t)
		addAll(t, engine, "Alice", "Bob")
		ctx := context.Background()
		engine.StartGame(ctx)
		clock.Advance(5 * time.Second)
		engine.EndGame(ctx)

		engine.ResetGame(ctx)

		state := engine.State()
		assert.Equal(t, models.PhaseSetup, state.Phase)
		assert.Equal(t, 0, state.ActiveIndex)
		require.Len(t, state.Participants, 2)
		assert.Equal(t, "Alice", state.Participants[0].Name)
		assert.Equal(t, "Bob", state.Participants[1].Name)
		// Fresh ids from zero, elapsed discarded
		assert.Equal(t, 0, state.Participants[0].ID)
		assert.Equal(t, 1, state.Participants[1].ID)
		assert.Equal(t, int64(0), state.Participants[0].ElapsedMillis)
		assert.Equal(t, int64(0), state.Participants[1].ElapsedMillis)
	})

	t.Run("no-op outside FINISHED", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		addAll(t, engine, "a", "b")
		ctx := context.Background()

		engine.ResetGame(ctx)
		assert.Len(t, engine.State().Participants, 2)

		engine.StartGame(ctx)
		engine.ResetGame(ctx)
		assert.Equal(t, models.PhasePlaying, engine.State().Phase)
	})
}

func TestNewEngineLoadsPersistedRoster(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "roster", []byte(`[{"name":"Alice","color":"RED"},{"name":"Bob","color":"BLUE"}]`)))

	engine := NewEngine(ctx, uuid.New(), store, nil, Config{
		SnapshotKey: "roster",
		Clock:       clockwork.NewFakeClock(),
	})
	t.Cleanup(engine.Close)

	state := engine.State()
	assert.Equal(t, models.PhaseSetup, state.Phase)
	require.Len(t, state.Participants, 2)
	assert.Equal(t, "Alice", state.Participants[0].Name)
	assert.Equal(t, models.ColorRed, state.Participants[0].Color)
	assert.Equal(t, "Bob", state.Participants[1].Name)
	assert.Equal(t, models.ColorBlue, state.Participants[1].Color)
	assert.Equal(t, 0, state.Participants[0].ID)
	assert.Equal(t, 1, state.Participants[1].ID)
	assert.Equal(t, int64(0), state.Participants[0].ElapsedMillis)
}

func TestNewEngineWithMalformedSnapshot(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "roster", []byte(`not json at all`)))

	engine := NewEngine(ctx, uuid.New(), store, nil, Config{
		SnapshotKey: "roster",
		Clock:       clockwork.NewFakeClock(),
	})
	t.Cleanup(engine.Close)

	state := engine.State()
	assert.Equal(t, models.PhaseSetup, state.Phase)
	assert.Empty(t, state.Participants)
}

func TestLiveElapsedWhilePlaying(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	addAll(t, engine, "a", "b")
	ctx := context.Background()
	engine.StartGame(ctx)

	clock.Advance(2500 * time.Millisecond)

	// The snapshot shows the running value without freezing it
	state := engine.State()
	assert.Equal(t, int64(2500), state.Participants[0].ElapsedMillis)
	assert.Equal(t, int64(0), state.Participants[1].ElapsedMillis)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, int64(3000), engine.State().Participants[0].ElapsedMillis)
}

func TestSubscribeNotify(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	var got []models.SessionState
	unsubscribe := engine.Subscribe(func(state models.SessionState) {
		got = append(got, state)
	})

	require.True(t, engine.AddParticipant("a"))
	require.Len(t, got, 1)
	assert.Len(t, got[0].Participants, 1)

	unsubscribe()
	require.True(t, engine.AddParticipant("b"))
	assert.Len(t, got, 1)
}
