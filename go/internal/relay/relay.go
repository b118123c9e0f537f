package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/rs/zerolog/log"
)

// EventPublisher delivers one event to the outside world
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

type Config struct {
	MaxRetries int
	RetryDelay time.Duration // multiplied by the attempt number
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Relay forwards reservation lifecycle events from the bus. Countdown ticks
// and UI prompts stay in process.
type Relay struct {
	bus       *events.Bus
	publisher EventPublisher
	cfg       Config
	clock     clockwork.Clock
}

func NewRelay(bus *events.Bus, publisher EventPublisher, cfg Config, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{bus: bus, publisher: publisher, cfg: cfg, clock: clock}
}

// Lifecycle lists the event types the relay forwards
func Lifecycle() []events.EventType {
	return []events.EventType{
		events.EventTypeReservationStarted,
		events.EventTypeReservationExpired,
		events.EventTypeReservationCancelled,
		events.EventTypeReservationCompleted,
	}
}

// Run forwards events until ctx is cancelled or the bus is closed
func (r *Relay) Run(ctx context.Context) error {
	sub := r.bus.Subscribe("", Lifecycle()...)
	defer sub.Close()

	log.Info().Msg("reservation event relay started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reservation event relay stopped")
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := r.publishWithRetry(ctx, ev); err != nil {
				log.Error().
					Err(err).
					Str("event_id", ev.ID).
					Str("event_type", string(ev.Type)).
					Str("cart_id", ev.Topic).
					Msg("dropping reservation event")
			}
		}
	}
}

// publishWithRetry attempts to publish an event with linear backoff
func (r *Relay) publishWithRetry(ctx context.Context, event *events.Event) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(delay):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID).
				Msg("failed to publish, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
