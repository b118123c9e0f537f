package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/rs/zerolog/log"
)

// Service hosts reservation countdowns for browser clients and streams
// their events over WebSocket
type Service struct {
	bus               *events.Bus
	registry          *Registry
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	restHandler       *ReservationHandler
}

type Config struct {
	ConnectionConfig ConnectionConfig
	Registry         RegistryConfig
	// JWTSecret verifies bearer tokens when set
	JWTSecret string
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Registry: RegistryConfig{
			Reservation: reservation.DefaultConfig(),
		},
	}
}

func NewService(cfg Config, clock clockwork.Clock, store storage.Store, backends BackendFactory, bus *events.Bus) *Service {
	registry := NewRegistry(cfg.Registry, clock, store, backends, bus)
	auth := NewAuthenticator(cfg.JWTSecret, clock)
	cm := NewConnectionManager(cfg.ConnectionConfig, registryCommands{registry: registry})

	return &Service{
		bus:               bus,
		registry:          registry,
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, auth, registry),
		restHandler:       NewReservationHandler(auth, registry),
	}
}

// Start runs the broadcaster and the bus bridge until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting reservation gateway service")

	sub := s.bus.Subscribe("")
	defer sub.Close()

	go s.connectionManager.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reservation gateway service shutting down")
			return s.Stop()
		case ev, ok := <-sub.C:
			if !ok {
				return s.Stop()
			}
			s.forward(ev)
		}
	}
}

// forward routes a bus event to the sockets watching its cart. Untopiced
// events concern the terminal client only.
func (s *Service) forward(ev *events.Event) {
	if ev.Topic == "" {
		return
	}
	s.connectionManager.BroadcastToCart(ev.Topic, ev)
}

// Stop halts every hosted countdown
func (s *Service) Stop() error {
	s.registry.Shutdown()
	log.Info().Msg("reservation gateway service stopped")
	return nil
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.restHandler.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.GetStats())
	})
	log.Info().Msg("reservation gateway routes registered")
}

// Stats summarizes the gateway
type Stats struct {
	Service      string `json:"service"`
	Status       string `json:"status"`
	Reservations int    `json:"reservations"`
	ConnectionStats
}

func (s *Service) GetStats() Stats {
	return Stats{
		Service:         "reservation_gateway",
		Status:          "running",
		Reservations:    s.registry.Count(),
		ConnectionStats: s.connectionManager.GetConnectionStats(),
	}
}

func (s *Service) Registry() *Registry {
	return s.registry
}
