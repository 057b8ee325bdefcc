package session

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tmoller/turnclock/go/internal/models"
)

// Service exposes the session command surface over HTTP JSON.
type Service struct {
	app *App
}

// NewService creates a new session HTTP service
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the session HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", s.handleCollection)
	mux.HandleFunc("/api/sessions/", s.handleSession)
	log.Info().Msg("session routes registered")
}

// handleCollection handles POST /api/sessions and GET /api/sessions
func (s *Service) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		engine := s.app.CreateSession(r.Context())
		writeJSON(w, http.StatusCreated, engine.State())
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.app.ListSessions())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSession routes /api/sessions/{id}/... to the engine commands.
func (s *Service) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}

	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	engine, ok := s.app.GetSession(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "state" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, engine.State())

	case len(parts) == 2 && parts[1] == "summary" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, Summary(engine.State()))

	case len(parts) == 2 && parts[1] == "participants" && r.Method == http.MethodPost:
		var req AddParticipantRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ok := engine.AddParticipant(req.Name)
		writeJSON(w, http.StatusOK, CommandResponse{OK: ok, State: engine.State()})

	case len(parts) == 3 && parts[1] == "participants" && r.Method == http.MethodDelete:
		pid, err := strconv.Atoi(parts[2])
		if err != nil {
			http.Error(w, "invalid participant id", http.StatusBadRequest)
			return
		}
		engine.RemoveParticipant(pid)
		writeJSON(w, http.StatusOK, CommandResponse{OK: true, State: engine.State()})

	case len(parts) == 2 && parts[1] == "move" && r.Method == http.MethodPost:
		var req MoveParticipantRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		engine.MoveParticipant(req.From, req.To)
		writeJSON(w, http.StatusOK, CommandResponse{OK: true, State: engine.State()})

	case len(parts) == 2 && parts[1] == "color" && r.Method == http.MethodPost:
		var req ChangeColorRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ok := engine.ChangeColor(req.ParticipantID, req.Color)
		writeJSON(w, http.StatusOK, CommandResponse{OK: ok, State: engine.State()})

	case len(parts) == 2 && r.Method == http.MethodPost:
		s.handleLifecycle(w, r, engine, parts[1])

	default:
		http.NotFound(w, r)
	}
}

// handleLifecycle dispatches the phase-transition commands. Commands
// issued in a phase that does not permit them leave the state
// untouched; the caller sees that in the returned snapshot.
func (s *Service) handleLifecycle(w http.ResponseWriter, r *http.Request, engine *Engine, command string) {
	ctx := r.Context()
	before := engine.State().Phase

	switch command {
	case "start":
		engine.StartGame(ctx)
	case "turn":
		engine.EndTurn(ctx)
	case "pause":
		engine.PauseGame(ctx)
	case "resume":
		engine.ResumeGame(ctx)
	case "end":
		engine.EndGame(ctx)
	case "reset":
		engine.ResetGame(ctx)
	default:
		http.NotFound(w, r)
		return
	}

	state := engine.State()
	// EndTurn is a self-loop; every other lifecycle command moves the
	// phase when accepted.
	ok := state.Phase != before
	if command == "turn" {
		ok = before == models.PhasePlaying
	}
	writeJSON(w, http.StatusOK, CommandResponse{OK: ok, State: state})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
