package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/routes"
	"github.com/rs/zerolog/log"
)

const (
	expiredTitle   = "Session expired"
	expiredMessage = "Your booking session has expired. Please select your tickets again."
)

// Coordinator runs the countdown for one cart's reservation and performs
// cleanup exactly once when the deadline passes or the user leaves.
type Coordinator struct {
	cfg       Config
	clock     clockwork.Clock
	deadlines *DeadlineStore
	publisher events.Publisher
	cleaner   *cleaner

	mu       sync.Mutex
	state    State
	eventID  string
	cartID   string
	deadline time.Time
	source   Source

	done     chan struct{}
	doneOnce sync.Once
}

// Snapshot is a point-in-time view of a coordinator
type Snapshot struct {
	CartID    string        `json:"cart_id"`
	EventID   string        `json:"event_id"`
	State     State         `json:"state"`
	Deadline  time.Time     `json:"deadline"`
	Remaining time.Duration `json:"-"`
	Display   string        `json:"display"`
	Source    Source        `json:"source"`
}

func NewCoordinator(cfg Config, clock clockwork.Clock, deadlines *DeadlineStore, canceller CartCanceller, publisher events.Publisher) *Coordinator {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		cfg:       cfg,
		clock:     clock,
		deadlines: deadlines,
		publisher: publisher,
		cleaner: &cleaner{
			canceller: canceller,
			deadlines: deadlines,
			publisher: publisher,
			clock:     clock,
			timeout:   cfg.CleanupTimeout,
		},
		done: make(chan struct{}),
	}
}

// Start resolves the deadline for cartID and moves to Running. A deadline
// that has already passed expires immediately.
func (c *Coordinator) Start(ctx context.Context, eventID, cartID string, carried *time.Time) error {
	if cartID == "" {
		return fmt.Errorf("cart id is required")
	}

	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	now := c.clock.Now()
	deadline, source := c.deadlines.Resolve(ctx, cartID, carried, now, c.cfg.Window)
	c.eventID = eventID
	c.cartID = cartID
	c.deadline = deadline
	c.source = source
	c.state = StateRunning
	c.mu.Unlock()

	log.Info().
		Str("cart_id", cartID).
		Str("event_id", eventID).
		Time("deadline", deadline).
		Str("source", string(source)).
		Dur("remaining", Remaining(deadline, now)).
		Msg("reservation started")

	publish(c.publisher, events.EventTypeReservationStarted, cartID, now, events.ReservationStartedPayload{
		CartID:    cartID,
		EventID:   eventID,
		Deadline:  deadline,
		Source:    string(source),
		StartedAt: now,
	})

	c.evaluate(ctx)
	return nil
}

// Run re-evaluates the countdown every TickInterval until the reservation
// reaches a terminal state or ctx is cancelled. Cancelling ctx stops the
// ticker without cleanup.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.State() == StateUninitialized {
		return ErrNotRunning
	}

	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("cart_id", c.CartID()).Msg("countdown stopped")
			return nil
		case <-c.done:
			return nil
		case <-ticker.Chan():
			c.evaluate(ctx)
		}
	}
}

// Resume recomputes the remaining time right away, typically after the
// client regained visibility. It expires the reservation if the deadline
// passed in the meantime.
func (c *Coordinator) Resume(ctx context.Context) State {
	c.evaluate(ctx)
	return c.State()
}

// evaluate publishes a tick or, once the deadline is reached, expires the
// reservation. The Running to Expired transition happens under the lock so
// concurrent callers expire at most once.
func (c *Coordinator) evaluate(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	remaining := Remaining(c.deadline, now)
	cartID, eventID, deadline := c.cartID, c.eventID, c.deadline
	if remaining == 0 {
		c.state = StateExpired
	}
	c.mu.Unlock()

	publish(c.publisher, events.EventTypeTimerTick, cartID, now, events.TimerTickPayload{
		CartID:           cartID,
		Deadline:         deadline,
		TimeRemainingSec: RemainingSeconds(remaining),
		Display:          FormatRemaining(remaining),
		TickedAt:         now,
	})

	if remaining > 0 {
		return
	}

	log.Info().
		Str("cart_id", cartID).
		Time("deadline", deadline).
		Msg("reservation expired")

	c.cleaner.run(ctx, cartID, "expired")

	publish(c.publisher, events.EventTypeReservationExpired, cartID, now, events.ReservationExpiredPayload{
		CartID:    cartID,
		EventID:   eventID,
		Deadline:  deadline,
		ExpiredAt: now,
		Title:     expiredTitle,
		Message:   expiredMessage,
		Action:    string(routes.SelectTicket(eventID)),
	})
	c.finish()
}

// RequestLeave asks the UI to confirm leaving the flow
func (c *Coordinator) RequestLeave() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	cartID := c.cartID
	remaining := Remaining(c.deadline, c.clock.Now())
	c.mu.Unlock()

	publish(c.publisher, events.EventTypeLeaveRequested, cartID, c.clock.Now(), events.LeaveRequestedPayload{
		CartID:   cartID,
		Title:    "Leave booking?",
		Question: "Are you sure you want to leave?",
		Details: []string{
			"Your selected tickets will be released.",
			"You will have to select your tickets again.",
		},
		ConfirmText:      "Leave",
		CancelText:       "Stay",
		TimeRemainingSec: RemainingSeconds(remaining),
	})
	return nil
}

// ConfirmLeave cancels the reservation and routes back to ticket
// selection. Navigation always proceeds, even if cleanup failed or the
// reservation had already ended.
func (c *Coordinator) ConfirmLeave(ctx context.Context) routes.Navigation {
	c.mu.Lock()
	wasRunning := c.state == StateRunning
	if wasRunning {
		c.state = StateCancelled
	}
	cartID, eventID := c.cartID, c.eventID
	c.mu.Unlock()

	if wasRunning {
		log.Info().Str("cart_id", cartID).Msg("reservation cancelled by user")
		c.cleaner.run(ctx, cartID, "left")

		now := c.clock.Now()
		publish(c.publisher, events.EventTypeReservationCancelled, cartID, now, events.ReservationCancelledPayload{
			CartID:      cartID,
			EventID:     eventID,
			Reason:      "left",
			CancelledAt: now,
		})
		c.finish()
	}

	return routes.To(routes.SelectTicket(eventID))
}

// DeclineLeave keeps the user where they are; the countdown is untouched
func (c *Coordinator) DeclineLeave() routes.Navigation {
	return routes.Stay()
}

// Complete ends the reservation after the order was placed. The cart
// belongs to the order now, so only the local deadline is cleared.
func (c *Coordinator) Complete(ctx context.Context, orderID string) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.state = StateCompleted
	cartID, eventID := c.cartID, c.eventID
	c.mu.Unlock()

	if err := c.deadlines.Clear(ctx, cartID); err != nil {
		log.Warn().Err(err).Str("cart_id", cartID).Msg("failed to clear completed reservation")
	}

	now := c.clock.Now()
	publish(c.publisher, events.EventTypeReservationCompleted, cartID, now, events.ReservationCompletedPayload{
		CartID:      cartID,
		EventID:     eventID,
		OrderID:     orderID,
		CompletedAt: now,
	})
	c.finish()

	log.Info().Str("cart_id", cartID).Str("order_id", orderID).Msg("reservation completed")
	return nil
}

func (c *Coordinator) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Done is closed once the reservation reaches a terminal state
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) CartID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cartID
}

func (c *Coordinator) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// Remaining returns the time left, zero once the reservation ended
func (c *Coordinator) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return 0
	}
	return Remaining(c.deadline, c.clock.Now())
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var remaining time.Duration
	if c.state == StateRunning {
		remaining = Remaining(c.deadline, c.clock.Now())
	}
	return Snapshot{
		CartID:    c.cartID,
		EventID:   c.eventID,
		State:     c.state,
		Deadline:  c.deadline,
		Remaining: remaining,
		Display:   FormatRemaining(remaining),
		Source:    c.source,
	}
}
