package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/routes"
	"github.com/rs/zerolog/log"
)

// CartService is the slice of the backend the resume check needs
type CartService interface {
	CartCanceller
	GetCart(ctx context.Context) (*models.Cart, error)
}

// Resumer looks for an unfinished booking when the user lands on an
// event page
type Resumer struct {
	cfg       Config
	clock     clockwork.Clock
	deadlines *DeadlineStore
	carts     CartService
	publisher events.Publisher
}

func NewResumer(cfg Config, clock clockwork.Clock, deadlines *DeadlineStore, carts CartService, publisher events.Publisher) *Resumer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Resumer{
		cfg:       cfg.withDefaults(),
		clock:     clock,
		deadlines: deadlines,
		carts:     carts,
		publisher: publisher,
	}
}

// Check returns an offer when a cached cart has an unexpired deadline and
// still holds tickets on the backend, or nil when there is nothing to
// resume. Stale local state is cleared along the way.
func (r *Resumer) Check(ctx context.Context, eventID string) (*ResumeOffer, error) {
	cartID, ok, err := r.deadlines.CachedCartID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	deadline, ok, err := r.deadlines.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	now := r.clock.Now()
	if !ok {
		return nil, nil
	}
	if !deadline.After(now) {
		log.Debug().Str("cart_id", cartID).Time("deadline", deadline).Msg("discarding stale reservation")
		if err := r.deadlines.ClearDeadline(ctx, cartID); err != nil {
			log.Warn().Err(err).Str("cart_id", cartID).Msg("failed to clear stale deadline")
		}
		return nil, nil
	}

	cart, err := r.carts.GetCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, nil
	}

	offer := &ResumeOffer{
		EventID:  eventID,
		CartID:   cartID,
		Deadline: deadline,
		Cart:     cart,
		clock:    r.clock,
		interval: r.cfg.TickInterval,
		cleaner: &cleaner{
			canceller: r.carts,
			deadlines: r.deadlines,
			publisher: r.publisher,
			clock:     r.clock,
			timeout:   r.cfg.CleanupTimeout,
		},
		publisher: r.publisher,
		done:      make(chan struct{}),
	}

	remaining := Remaining(deadline, now)
	publish(r.publisher, events.EventTypeResumeOffered, cartID, now, events.ResumeOfferedPayload{
		CartID:           cartID,
		EventID:          eventID,
		Deadline:         deadline,
		TimeRemainingSec: RemainingSeconds(remaining),
		Items:            cart.TotalQuantity(),
	})

	log.Info().
		Str("cart_id", cartID).
		Str("event_id", eventID).
		Dur("remaining", remaining).
		Msg("offering to resume booking")

	return offer, nil
}

// OfferOutcome is how a resume offer was resolved
type OfferOutcome int

const (
	OfferPending OfferOutcome = iota
	OfferAccepted
	OfferDiscarded
	OfferExpired
)

func (o OfferOutcome) String() string {
	switch o {
	case OfferPending:
		return "pending"
	case OfferAccepted:
		return "accepted"
	case OfferDiscarded:
		return "discarded"
	case OfferExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ResumeOffer is a pending "continue your booking?" prompt. It counts down
// to the existing deadline and resolves exactly once.
type ResumeOffer struct {
	EventID  string
	CartID   string
	Deadline time.Time
	Cart     *models.Cart

	clock     clockwork.Clock
	interval  time.Duration
	cleaner   *cleaner
	publisher events.Publisher

	mu       sync.Mutex
	outcome  OfferOutcome
	done     chan struct{}
	doneOnce sync.Once
}

func (o *ResumeOffer) Remaining() time.Duration {
	return Remaining(o.Deadline, o.clock.Now())
}

func (o *ResumeOffer) Outcome() OfferOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// Done is closed once the offer is resolved
func (o *ResumeOffer) Done() <-chan struct{} {
	return o.done
}

// Run ticks the offer's countdown and discards the booking when it runs
// out. It returns when the offer is resolved or ctx is cancelled.
func (o *ResumeOffer) Run(ctx context.Context) {
	ticker := o.clock.NewTicker(o.interval)
	defer ticker.Stop()

	o.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case <-ticker.Chan():
			o.tick(ctx)
		}
	}
}

func (o *ResumeOffer) tick(ctx context.Context) {
	now := o.clock.Now()
	remaining := Remaining(o.Deadline, now)
	if remaining > 0 {
		if o.Outcome() == OfferPending {
			publish(o.publisher, events.EventTypeTimerTick, o.CartID, now, events.TimerTickPayload{
				CartID:           o.CartID,
				Deadline:         o.Deadline,
				TimeRemainingSec: RemainingSeconds(remaining),
				Display:          FormatRemaining(remaining),
				TickedAt:         now,
			})
		}
		return
	}

	if !o.resolve(OfferExpired) {
		return
	}
	log.Info().Str("cart_id", o.CartID).Msg("resume offer expired")
	o.cleaner.run(ctx, o.CartID, "offer expired")
	publish(o.publisher, events.EventTypeReservationExpired, o.CartID, now, events.ReservationExpiredPayload{
		CartID:    o.CartID,
		EventID:   o.EventID,
		Deadline:  o.Deadline,
		ExpiredAt: now,
		Title:     expiredTitle,
		Message:   expiredMessage,
		Action:    string(routes.SelectTicket(o.EventID)),
	})
}

// Accept continues the booking on the booking form with the existing
// deadline carried along
func (o *ResumeOffer) Accept() (routes.Navigation, error) {
	if Remaining(o.Deadline, o.clock.Now()) == 0 {
		return routes.Stay(), ErrOfferResolved
	}
	if !o.resolve(OfferAccepted) {
		return routes.Stay(), ErrOfferResolved
	}
	deadline := o.Deadline
	return routes.ToWith(routes.BookingForm(o.EventID), &routes.Carried{Deadline: &deadline}), nil
}

// Discard cancels the old cart and starts over at ticket selection
func (o *ResumeOffer) Discard(ctx context.Context) routes.Navigation {
	if o.resolve(OfferDiscarded) {
		o.cleaner.run(ctx, o.CartID, "discarded")
		now := o.clock.Now()
		publish(o.publisher, events.EventTypeReservationCancelled, o.CartID, now, events.ReservationCancelledPayload{
			CartID:      o.CartID,
			EventID:     o.EventID,
			Reason:      "discarded",
			CancelledAt: now,
		})
	}
	return routes.To(routes.SelectTicket(o.EventID))
}

func (o *ResumeOffer) resolve(outcome OfferOutcome) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcome != OfferPending {
		return false
	}
	o.outcome = outcome
	o.doneOnce.Do(func() { close(o.done) })
	return true
}
