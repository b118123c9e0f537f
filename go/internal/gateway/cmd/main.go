package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/clients"
	"github.com/mcdev12/boxoffice/go/clients/ticketbox_client"
	"github.com/mcdev12/boxoffice/go/internal/config"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/gateway"
	"github.com/mcdev12/boxoffice/go/internal/relay"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := pflag.String("config", os.Getenv("BOXOFFICE_CONFIG"), "path to the YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	store := storage.NewRedisStore(rdb, storage.RedisOptions{Prefix: cfg.Redis.Prefix, TTL: cfg.Redis.TTL})
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to ping redis")
	}
	pingCancel()

	log.Info().
		Str("redis_addr", cfg.Redis.Addr).
		Str("api_base_url", cfg.API.BaseURL).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Str("port", cfg.Gateway.Port).
		Dur("window", cfg.Reservation.Window).
		Msg("starting reservation gateway")

	bus := events.NewBus(256)
	defer bus.Close()

	if cfg.NATS.Enabled {
		startRelay(ctx, cfg, bus)
	}

	backends := func(token string) gateway.CartBackend {
		client := ticketbox_client.NewTicketboxClient(cfg.API.BaseURL, clients.BearerToken(token), bus)
		client.SetTimeout(cfg.API.Timeout)
		return client
	}

	service := gateway.NewService(cfg.GatewayConfig(), clockwork.NewRealClock(), store, backends, bus)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)

	server := gateway.NewHTTPServer(fmt.Sprintf(":%s", cfg.Gateway.Port), mux, cfg.Gateway.AllowedOrigins)
	server.ReadTimeout = 10 * time.Second
	server.IdleTimeout = 120 * time.Second

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := service.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
	}

	log.Info().Msg("reservation gateway shutdown complete")
}

// startRelay forwards lifecycle events to JetStream. A NATS outage at
// startup degrades to local-only operation.
func startRelay(ctx context.Context, cfg *config.Config, bus *events.Bus) {
	publisher, err := relay.NewJetStreamPublisher(ctx, cfg.JetStreamConfig())
	if err != nil {
		log.Error().Err(err).Str("nats_url", cfg.NATS.URL).Msg("relay disabled: failed to connect to JetStream")
		return
	}

	r := relay.NewRelay(bus, publisher, cfg.RelayConfig(), nil)
	go func() {
		defer publisher.Close()
		if err := r.Run(ctx); err != nil {
			log.Error().Err(err).Msg("relay stopped")
		}
	}()
}
