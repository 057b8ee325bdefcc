package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tmoller/turnclock/go/internal/events"
	"github.com/tmoller/turnclock/go/internal/gateway"
	"github.com/tmoller/turnclock/go/internal/roster"
	"github.com/tmoller/turnclock/go/internal/session"
	"github.com/tmoller/turnclock/go/internal/storage"
)

type Services struct {
	SessionApp     *session.App
	SessionService *session.Service
	Gateway        *gateway.Service
}

func setupServices(ctx context.Context, config *Config, pool *pgxpool.Pool) (*Services, error) {
	// Snapshot store
	var store roster.Store
	if config.Storage.Driver == "postgres" {
		pgStore, err := storage.NewPostgresStore(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		store = pgStore
	} else {
		store = storage.NewMemoryStore()
		log.Info().Msg("using in-memory snapshot store")
	}

	// Event publisher
	var publisher events.Publisher
	if config.Nats.Enabled {
		jsConfig := events.DefaultJetStreamConfig()
		jsConfig.URL = config.Nats.URL
		jsPublisher, err := events.NewJetStreamPublisher(jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		publisher = jsPublisher
	} else {
		publisher = events.NewLogPublisher()
		log.Info().Msg("event bus disabled - logging events only")
	}

	// Session app + HTTP service
	sessionApp := session.NewApp(store, publisher)
	sessionApp.SetTickInterval(config.tickInterval())
	sessionService := session.NewService(sessionApp)

	// Gateway
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = config.Nats.URL
	gatewayConfig.DisableJetStream = !config.Nats.Enabled
	sessionGateway, err := gateway.NewService(gatewayConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create session gateway: %w", err)
	}

	// Every new session streams its timer ticks through the gateway
	sessionApp.SetOnCreate(func(engine *session.Engine) {
		sessionGateway.WatchSession(engine)
	})

	return &Services{
		SessionApp:     sessionApp,
		SessionService: sessionService,
		Gateway:        sessionGateway,
	}, nil
}
