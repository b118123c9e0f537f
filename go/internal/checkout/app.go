package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/clients"
	"github.com/mcdev12/boxoffice/go/clients/ticketbox_client"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/routes"
	"github.com/rs/zerolog/log"
)

// App drives one user's checkout: event page, ticket selection, booking
// form and payment. It owns at most one running reservation.
type App struct {
	cfg       reservation.Config
	clock     clockwork.Clock
	backend   Backend
	auth      Authenticator
	deadlines *reservation.DeadlineStore
	resumer   *reservation.Resumer
	publisher events.Publisher

	mu       sync.Mutex
	active   *reservation.Coordinator
	receiver *routes.Receiver
}

// NewApp creates a new checkout App
func NewApp(cfg reservation.Config, clock clockwork.Clock, backend Backend, auth Authenticator, deadlines *reservation.DeadlineStore, publisher events.Publisher) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		cfg:       cfg,
		clock:     clock,
		backend:   backend,
		auth:      auth,
		deadlines: deadlines,
		resumer:   reservation.NewResumer(cfg, clock, deadlines, backend, publisher),
		publisher: publisher,
	}
}

// EnterEvent loads the event page. A logged-in user with an unfinished
// booking gets a resume offer; otherwise the next step is ticket selection.
func (a *App) EnterEvent(ctx context.Context, eventID string) (*EventView, error) {
	event, err := a.backend.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	view := &EventView{Event: event, Next: routes.Stay()}

	if _, err := a.auth.RequireUser(); err != nil {
		return view, err
	}

	offer, err := a.resumer.Check(ctx, eventID)
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("resume check failed")
	}
	if offer != nil {
		view.Offer = offer
		return view, nil
	}

	view.Next = routes.To(routes.SelectTicket(eventID))
	return view, nil
}

// SelectTickets puts the chosen quantities in the cart and moves on to the
// booking form
func (a *App) SelectTickets(ctx context.Context, eventID string, quantities map[models.ID]int) (routes.Navigation, error) {
	if _, err := a.auth.RequireUser(); err != nil {
		return routes.Stay(), err
	}

	ids := make([]models.ID, 0, len(quantities))
	for id, qty := range quantities {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return routes.Stay(), ErrNoTicketsSelected
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	event, err := a.backend.GetEvent(ctx, eventID)
	if err != nil {
		return routes.Stay(), err
	}

	selections := make([]ticketbox_client.TicketSelection, 0, len(ids))
	for _, id := range ids {
		tt, ok := event.TicketType(id)
		if !ok {
			return routes.Stay(), fmt.Errorf("%w: %s", ErrUnknownTicketType, id)
		}
		qty := quantities[id]
		if tt.Quantity > 0 && qty > tt.Quantity {
			return routes.Stay(), fmt.Errorf("only %d %s tickets left", tt.Quantity, tt.Type)
		}
		selections = append(selections, ticketbox_client.TicketSelection{TicketTypeID: id, Quantity: qty})
	}

	if err := a.backend.AddMultipleToCart(ctx, selections); err != nil {
		return routes.Stay(), err
	}

	log.Info().Str("event_id", eventID).Int("lines", len(selections)).Msg("tickets added to cart")
	return routes.To(routes.BookingForm(eventID)), nil
}

// OpenBookingForm loads the cart and starts (or rejoins) its reservation
// countdown. The caller runs the returned coordinator.
func (a *App) OpenBookingForm(ctx context.Context, eventID string, carried *routes.Carried) (*BookingView, error) {
	if _, err := a.auth.RequireUser(); err != nil {
		return nil, err
	}

	event, err := a.backend.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	cart, err := a.backend.GetCart(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	coord, err := a.startReservation(ctx, eventID, cart, carried)
	if err != nil {
		return nil, err
	}

	view := &BookingView{Event: event, Cart: cart, Coordinator: coord}
	if carried != nil && carried.Receiver != nil {
		r := *carried.Receiver
		view.Receiver = &r
	}
	return view, nil
}

// OpenPayment loads the checkout cart for the payment step, keeping the
// countdown of the booking form
func (a *App) OpenPayment(ctx context.Context, eventID string, carried *routes.Carried) (*BookingView, error) {
	if _, err := a.auth.RequireUser(); err != nil {
		return nil, err
	}

	event, err := a.backend.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	cart, err := a.backend.GetCheckoutCart(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	coord, err := a.startReservation(ctx, eventID, cart, carried)
	if err != nil {
		return nil, err
	}

	view := &BookingView{Event: event, Cart: cart, Coordinator: coord}
	a.mu.Lock()
	if carried != nil && carried.Receiver != nil {
		r := *carried.Receiver
		a.receiver = &r
	}
	if a.receiver != nil {
		r := *a.receiver
		view.Receiver = &r
	}
	a.mu.Unlock()
	return view, nil
}

func (a *App) startReservation(ctx context.Context, eventID string, cart *models.Cart, carried *routes.Carried) (*reservation.Coordinator, error) {
	cartID := cart.ResolvedID().String()
	if cartID == "" {
		return nil, fmt.Errorf("cart has no id")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil && a.active.CartID() == cartID && a.active.State() == reservation.StateRunning {
		return a.active, nil
	}

	if err := a.deadlines.RememberCart(ctx, cartID); err != nil {
		log.Warn().Err(err).Str("cart_id", cartID).Msg("cart id not cached")
	}

	coord := reservation.NewCoordinator(a.cfg, a.clock, a.deadlines, a.backend, a.publisher)
	if err := coord.Start(ctx, eventID, cartID, carriedDeadline(carried)); err != nil {
		return nil, fmt.Errorf("failed to start reservation: %w", err)
	}
	a.active = coord
	return coord, nil
}

func carriedDeadline(carried *routes.Carried) *time.Time {
	if carried == nil {
		return nil
	}
	return carried.Deadline
}

// Active returns the running reservation, if any
func (a *App) Active() *reservation.Coordinator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// SubmitBookingForm validates the receiver details and prepares checkout.
// Local and backend validation failures come back as FieldErrors.
func (a *App) SubmitBookingForm(ctx context.Context, eventID string, receiver routes.Receiver) (routes.Navigation, error) {
	receiver = NormalizeReceiver(receiver)
	if errs := ValidateReceiver(receiver); errs != nil {
		return routes.Stay(), errs
	}

	coord := a.Active()
	if coord == nil || coord.State() != reservation.StateRunning {
		return routes.Stay(), ErrNoActiveReservation
	}

	cart, err := a.backend.GetCart(ctx)
	if err != nil {
		return routes.Stay(), err
	}

	lines := make([]ticketbox_client.CartLineQuantity, 0, len(cart.CartDetails))
	for _, d := range cart.CartDetails {
		lines = append(lines, ticketbox_client.CartLineQuantity{ID: d.ID, Quantity: d.Quantity})
	}

	_, err = a.backend.PrepareCheckout(ctx, ticketbox_client.PrepareCheckoutRequest{
		CartID:             models.ID(coord.CartID()),
		CurrentCartDetails: lines,
		ReceiverName:       receiver.Name,
		ReceiverPhone:      receiver.Phone,
		ReceiverEmail:      receiver.Email,
	})
	if err != nil {
		if fieldErrs := backendFieldErrors(err); fieldErrs != nil {
			return routes.Stay(), fieldErrs
		}
		return routes.Stay(), err
	}

	a.mu.Lock()
	a.receiver = &receiver
	a.mu.Unlock()

	deadline := coord.Deadline()
	return routes.ToWith(routes.Payment(eventID), &routes.Carried{
		Deadline: &deadline,
		Receiver: &receiver,
	}), nil
}

func backendFieldErrors(err error) FieldErrors {
	apiErr, ok := clients.AsAPIError(err)
	if !ok || len(apiErr.Errors) == 0 {
		return nil
	}
	errs := FieldErrors{}
	for _, fe := range apiErr.Errors {
		if fe.Path == "" {
			continue
		}
		errs[fe.Path] = fe.Message
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PlaceOrder submits the order. Online payment returns the payment page
// URL; either way the reservation is complete and its deadline forgotten.
func (a *App) PlaceOrder(ctx context.Context, method models.PaymentMethod) (*OrderResult, error) {
	coord := a.Active()
	if coord == nil || coord.State() != reservation.StateRunning {
		return nil, ErrNoActiveReservation
	}

	a.mu.Lock()
	receiver := a.receiver
	a.mu.Unlock()
	if receiver == nil {
		return nil, FieldErrors{FieldReceiverName: "Receiver details are required"}
	}

	req := ticketbox_client.PlaceOrderRequest{
		ReceiverName:  receiver.Name,
		ReceiverPhone: receiver.Phone,
		PaymentMethod: method,
	}
	if receiver.Email != "" {
		email := receiver.Email
		req.ReceiverEmail = &email
	}

	resp, err := a.backend.PlaceOrder(ctx, req)
	if err != nil {
		if errors.Is(err, ticketbox_client.ErrRejected) && resp != nil {
			return &OrderResult{Message: resp.Message, Next: routes.Stay()}, err
		}
		return nil, err
	}

	result := &OrderResult{
		OrderID:    resp.OrderID.String(),
		PaymentURL: resp.PaymentURL,
		Message:    resp.Message,
		Next:       routes.To(routes.MyTickets),
	}
	if method == models.PaymentMethodVNPay && resp.PaymentURL != "" {
		result.Next = routes.Stay()
	}

	if err := coord.Complete(ctx, result.OrderID); err != nil {
		log.Warn().Err(err).Str("order_id", result.OrderID).Msg("reservation already ended")
	}

	a.mu.Lock()
	a.receiver = nil
	a.mu.Unlock()

	log.Info().
		Str("order_id", result.OrderID).
		Str("payment_method", string(method)).
		Msg("order placed")
	return result, nil
}
