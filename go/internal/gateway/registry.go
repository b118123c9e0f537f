package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/rs/zerolog/log"
)

var ErrEmptyCart = errors.New("cart is empty")

// CartBackend is the backend as seen by one user
type CartBackend interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	DeleteCart(ctx context.Context) error
}

// BackendFactory returns a backend that calls the API with token
type BackendFactory func(token string) CartBackend

// Reservation is a coordinator hosted for one browser user
type Reservation struct {
	Coordinator *reservation.Coordinator
	OwnerID     string
	cancel      context.CancelFunc
}

// Registry hosts one coordinator per cart. Coordinators keep running when
// the browser disconnects; a reconnect picks up the same countdown.
type Registry struct {
	cfg       reservation.Config
	clock     clockwork.Clock
	store     storage.Store
	backends  BackendFactory
	publisher events.Publisher
	retention time.Duration

	root       context.Context
	cancelRoot context.CancelFunc

	mu           sync.Mutex
	reservations map[string]*Reservation
	offers       map[string]*hostedOffer // by user id
	starting     map[string]chan struct{}
}

type hostedOffer struct {
	offer  *reservation.ResumeOffer
	cancel context.CancelFunc
}

type RegistryConfig struct {
	Reservation reservation.Config
	// Retention is how long a finished reservation stays queryable
	Retention time.Duration
}

func NewRegistry(cfg RegistryConfig, clock clockwork.Clock, store storage.Store, backends BackendFactory, publisher events.Publisher) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	root, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:          cfg.Reservation,
		clock:        clock,
		store:        store,
		backends:     backends,
		publisher:    publisher,
		retention:    cfg.Retention,
		root:         root,
		cancelRoot:   cancel,
		reservations: make(map[string]*Reservation),
		offers:       make(map[string]*hostedOffer),
		starting:     make(map[string]chan struct{}),
	}
}

// userStore namespaces persisted keys per user inside the shared store
func (r *Registry) userStore(userID string) storage.Store {
	return storage.Scoped(r.store, "user:"+userID)
}

func (r *Registry) deadlines(userID string) *reservation.DeadlineStore {
	return reservation.NewDeadlineStore(r.userStore(userID))
}

// Start fetches the caller's cart and starts its countdown, or returns the
// countdown already running for it. created reports which.
func (r *Registry) Start(ctx context.Context, p *Principal, eventID string, carried *time.Time) (res *Reservation, created bool, err error) {
	backend := r.backends(p.Token)
	cart, err := backend.GetCart(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, false, ErrEmptyCart
	}
	cartID := cart.ResolvedID().String()
	if cartID == "" {
		return nil, false, fmt.Errorf("cart has no id")
	}

	existing, release, err := r.claim(ctx, cartID, p)
	if err != nil || existing != nil {
		return existing, false, err
	}
	defer release()

	// Redis writes and an immediate expiry's cart delete happen here, with
	// only this cart claimed
	deadlines := r.deadlines(p.UserID)
	if err := deadlines.RememberCart(ctx, cartID); err != nil {
		log.Warn().Err(err).Str("cart_id", cartID).Msg("cart id not cached")
	}

	coord := reservation.NewCoordinator(r.cfg, r.clock, deadlines, backend, r.publisher)
	if err := coord.Start(ctx, eventID, cartID, carried); err != nil {
		return nil, false, fmt.Errorf("failed to start reservation: %w", err)
	}

	runCtx, cancel := context.WithCancel(r.root)
	res = &Reservation{Coordinator: coord, OwnerID: p.UserID, cancel: cancel}

	r.mu.Lock()
	r.reservations[cartID] = res
	r.mu.Unlock()

	go r.run(runCtx, cartID, res)

	log.Info().
		Str("cart_id", cartID).
		Str("user_id", p.UserID).
		Str("event_id", eventID).
		Msg("hosting reservation")
	return res, true, nil
}

// claim returns the running reservation for cartID, or reserves the right
// to start one. Concurrent starts for the same cart wait for the first;
// other carts are never held up.
func (r *Registry) claim(ctx context.Context, cartID string, p *Principal) (*Reservation, func(), error) {
	for {
		r.mu.Lock()
		if existing, ok := r.reservations[cartID]; ok {
			if existing.OwnerID != p.UserID {
				r.mu.Unlock()
				return nil, nil, ErrForbidden
			}
			if existing.Coordinator.State() == reservation.StateRunning {
				r.mu.Unlock()
				return existing, nil, nil
			}
			existing.cancel()
			delete(r.reservations, cartID)
		}

		wait, busy := r.starting[cartID]
		if !busy {
			done := make(chan struct{})
			r.starting[cartID] = done
			r.mu.Unlock()
			return nil, func() {
				r.mu.Lock()
				delete(r.starting, cartID)
				r.mu.Unlock()
				close(done)
			}, nil
		}
		r.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

func (r *Registry) run(ctx context.Context, cartID string, res *Reservation) {
	if err := res.Coordinator.Run(ctx); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Msg("reservation countdown failed")
	}
	if ctx.Err() != nil {
		return
	}
	// finished: keep it around briefly so clients can read the final state
	r.clock.AfterFunc(r.retention, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.reservations[cartID]; ok && current == res {
			delete(r.reservations, cartID)
			res.cancel()
		}
	})
}

// Get returns the reservation for cartID
func (r *Registry) Get(cartID string) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[cartID]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return res, nil
}

// Owned returns the reservation for cartID if p owns it
func (r *Registry) Owned(cartID string, p *Principal) (*Reservation, error) {
	res, err := r.Get(cartID)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != p.UserID {
		return nil, ErrForbidden
	}
	return res, nil
}

// ResumeOffer checks whether p has an unfinished booking to resume. A found
// offer is hosted until it is accepted, discarded or runs out; it replaces
// any earlier pending offer for the same user.
func (r *Registry) ResumeOffer(ctx context.Context, p *Principal, eventID string) (*reservation.ResumeOffer, error) {
	resumer := reservation.NewResumer(r.cfg, r.clock, r.deadlines(p.UserID), r.backends(p.Token), r.publisher)
	offer, err := resumer.Check(ctx, eventID)
	if err != nil || offer == nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(r.root)
	hosted := &hostedOffer{offer: offer, cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.offers[p.UserID]; ok {
		prev.cancel()
	}
	r.offers[p.UserID] = hosted
	r.mu.Unlock()

	go func() {
		offer.Run(runCtx)
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.offers[p.UserID]; ok && current == hosted {
			delete(r.offers, p.UserID)
		}
		cancel()
	}()
	return offer, nil
}

// PendingOffer returns the hosted resume offer for p on eventID
func (r *Registry) PendingOffer(p *Principal, eventID string) (*reservation.ResumeOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hosted, ok := r.offers[p.UserID]
	if !ok || hosted.offer.EventID != eventID {
		return nil, reservation.ErrReservationNotFound
	}
	return hosted.offer, nil
}

// Count returns the number of hosted reservations
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reservations)
}

// Shutdown stops every countdown without cleanup; deadlines stay persisted
// so a restarted gateway resumes them
func (r *Registry) Shutdown() {
	r.cancelRoot()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, res := range r.reservations {
		res.cancel()
		delete(r.reservations, id)
	}
	for id, hosted := range r.offers {
		hosted.cancel()
		delete(r.offers, id)
	}
}
