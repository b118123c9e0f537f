package reservation

import (
	"context"
	"time"

	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/rs/zerolog/log"
)

const cleanupFailedMessage = "Could not cancel your previous booking. It will be released when it expires."

// cleaner is the single path that tears down an abandoned reservation:
// cancel the backend cart, then forget the local deadline and cart id.
type cleaner struct {
	canceller CartCanceller
	deadlines *DeadlineStore
	publisher events.Publisher
	clock     interface{ Now() time.Time }
	timeout   time.Duration
}

// run is detached from the caller's cancellation and bounded by timeout.
// Failures are logged and published as a notification, never returned.
func (c *cleaner) run(ctx context.Context, cartID, reason string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	logger := log.With().Str("cart_id", cartID).Str("reason", reason).Logger()

	if c.canceller != nil {
		if err := c.canceller.DeleteCart(cctx); err != nil {
			logger.Error().Err(err).Msg("failed to cancel cart")
			c.notify(cartID, events.NotificationError, cleanupFailedMessage)
		} else {
			logger.Info().Msg("cart cancelled")
		}
	}

	if err := c.deadlines.Clear(cctx, cartID); err != nil {
		logger.Error().Err(err).Msg("failed to clear local reservation state")
	}
}

func (c *cleaner) notify(cartID string, level events.NotificationLevel, message string) {
	publish(c.publisher, events.EventTypeNotification, cartID, c.clock.Now(), events.NotificationPayload{
		Level:   level,
		Message: message,
	})
}

func publish(p events.Publisher, typ events.EventType, topic string, at time.Time, payload any) {
	if p == nil {
		return
	}
	ev, err := events.New(typ, topic, at, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to build event")
		return
	}
	p.Publish(ev)
}
