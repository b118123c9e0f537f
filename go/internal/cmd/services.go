package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/clients/ticketbox_client"
	"github.com/mcdev12/boxoffice/go/internal/checkout"
	"github.com/mcdev12/boxoffice/go/internal/config"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/session"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Store    *storage.FileStore
	Bus      *events.Bus
	Session  *session.Manager
	Client   *ticketbox_client.TicketboxClient
	Checkout *checkout.App
}

func setupServices(ctx context.Context, cfg *config.Config, profile string) (*Services, error) {
	// Profile store → session → API client → checkout flow

	store, err := storage.OpenFileStore(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}

	clock := clockwork.NewRealClock()
	bus := events.NewBus(events.DefaultBufferSize)

	sessions := session.NewManager(store, bus, clock)
	client := ticketbox_client.NewTicketboxClient(cfg.API.BaseURL, sessions, bus)
	client.SetTimeout(cfg.API.Timeout)
	sessions.SetBackend(client)

	if ok, err := sessions.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("stored session discarded")
	} else if ok {
		user, _ := sessions.User()
		log.Info().Str("user_id", user.ID.String()).Msg("session restored")
	}

	deadlines := reservation.NewDeadlineStore(store)
	app := checkout.NewApp(cfg.ReservationConfig(), clock, client, sessions, deadlines, bus)

	log.Info().
		Str("profile", store.Path()).
		Str("api_base_url", cfg.API.BaseURL).
		Dur("window", cfg.Reservation.Window).
		Msg("services ready")

	return &Services{
		Store:    store,
		Bus:      bus,
		Session:  sessions,
		Client:   client,
		Checkout: app,
	}, nil
}

func (s *Services) Close() {
	s.Bus.Close()
}

func login(ctx context.Context, s *Services, emailOrPhone, password string) error {
	if password == "" {
		return fmt.Errorf("--password (or BOXOFFICE_PASSWORD) is required with --login")
	}
	token, err := s.Client.Login(ctx, emailOrPhone, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	user, err := s.Session.Login(ctx, token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	log.Info().Str("user_id", user.ID.String()).Msg("logged in")
	return nil
}
