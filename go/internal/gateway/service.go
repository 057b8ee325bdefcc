package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tmoller/turnclock/go/internal/events"
	"github.com/tmoller/turnclock/go/internal/models"
	"github.com/tmoller/turnclock/go/internal/session"
)

// Service is the session gateway: it fans session events and live
// timer ticks out to WebSocket viewers.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the session gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// DisableJetStream skips the bus consumer; engine ticks are still
	// broadcast through WatchSession.
	DisableJetStream bool
}

// DefaultConfig returns default configuration for the session gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new session gateway service
func NewService(config Config) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	wsHandler := NewWebSocketHandler(connectionManager)

	var eventConsumer *EventConsumer
	if !config.DisableJetStream {
		var err error
		eventConsumer, err = NewEventConsumer(connectionManager, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
	}

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
	}, nil
}

// Start begins the gateway service and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("session gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}

	log.Info().Msg("session gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("session gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "session_gateway"
	stats["status"] = "running"
	return stats
}

// WatchSession subscribes the gateway to an engine so viewers get a
// TimerTick for the active participant on every republish. Lifecycle
// events reach viewers through the bus consumer; ticks are local-only
// visual feedback, so they bypass the bus. Returns the unsubscribe func.
func (s *Service) WatchSession(engine *session.Engine) func() {
	return engine.Subscribe(func(state models.SessionState) {
		if state.Phase != models.PhasePlaying {
			return
		}
		active := state.Active()
		if active == nil {
			return
		}

		payload := events.TimerTickPayload{
			SessionID:     state.SessionID.String(),
			ParticipantID: active.ID,
			ElapsedMillis: active.ElapsedMillis,
			Display:       session.FormatMillis(active.ElapsedMillis),
			TickedAt:      time.Now(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal timer tick")
			return
		}

		s.connectionManager.BroadcastToSession(state.SessionID, &SessionEvent{
			ID:        uuid.New().String(),
			SessionID: state.SessionID.String(),
			Type:      EventTypeTimerTick,
			Timestamp: payload.TickedAt,
			Data:      data,
		})
	})
}

// BroadcastEvent allows manual event broadcasting (useful for testing)
func (s *Service) BroadcastEvent(sessionID uuid.UUID, event *SessionEvent) {
	s.connectionManager.BroadcastToSession(sessionID, event)
}
