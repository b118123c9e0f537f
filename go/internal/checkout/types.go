package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mcdev12/boxoffice/go/clients/ticketbox_client"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/routes"
)

var (
	ErrNoTicketsSelected   = errors.New("select at least one ticket")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoActiveReservation = errors.New("no active reservation")
	ErrUnknownTicketType   = errors.New("unknown ticket type")
)

// Backend is the subset of the ticketbox API the flow drives
type Backend interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetCart(ctx context.Context) (*models.Cart, error)
	GetCheckoutCart(ctx context.Context) (*models.Cart, error)
	AddMultipleToCart(ctx context.Context, selections []ticketbox_client.TicketSelection) error
	DeleteCart(ctx context.Context) error
	PrepareCheckout(ctx context.Context, req ticketbox_client.PrepareCheckoutRequest) (*ticketbox_client.PrepareCheckoutResponse, error)
	PlaceOrder(ctx context.Context, req ticketbox_client.PlaceOrderRequest) (*ticketbox_client.PlaceOrderResponse, error)
}

// Authenticator gates the flow on a logged-in user
type Authenticator interface {
	RequireUser() (*models.User, error)
}

// FieldErrors maps form field names to messages
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return "invalid booking form: " + strings.Join(parts, "; ")
}

// Form field names, matching the backend's error paths
const (
	FieldReceiverName  = "receiverName"
	FieldReceiverPhone = "receiverPhone"
	FieldReceiverEmail = "receiverEmail"
)

// EventView is what the event page shows
type EventView struct {
	Event *models.Event
	// Offer is set when an unfinished booking can be resumed
	Offer *reservation.ResumeOffer
	Next  routes.Navigation
}

// BookingView backs the booking form and payment steps
type BookingView struct {
	Event       *models.Event
	Cart        *models.Cart
	Receiver    *routes.Receiver
	Coordinator *reservation.Coordinator
}

// OrderResult is the outcome of placing an order
type OrderResult struct {
	OrderID    string
	PaymentURL string
	Message    string
	Next       routes.Navigation
}
