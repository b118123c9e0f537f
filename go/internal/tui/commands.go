package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdev12/boxoffice/go/internal/checkout"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/routes"
)

// Flow is the checkout flow the screens drive. *checkout.App implements it.
type Flow interface {
	EnterEvent(ctx context.Context, eventID string) (*checkout.EventView, error)
	SelectTickets(ctx context.Context, eventID string, quantities map[models.ID]int) (routes.Navigation, error)
	OpenBookingForm(ctx context.Context, eventID string, carried *routes.Carried) (*checkout.BookingView, error)
	SubmitBookingForm(ctx context.Context, eventID string, receiver routes.Receiver) (routes.Navigation, error)
	OpenPayment(ctx context.Context, eventID string, carried *routes.Carried) (*checkout.BookingView, error)
	PlaceOrder(ctx context.Context, method models.PaymentMethod) (*checkout.OrderResult, error)
}

var _ Flow = (*checkout.App)(nil)

type eventLoadedMsg struct {
	view *checkout.EventView
	err  error
}

type navigatedMsg struct {
	nav routes.Navigation
	err error
}

type bookingLoadedMsg struct {
	payment bool
	view    *checkout.BookingView
	err     error
}

type orderPlacedMsg struct {
	result *checkout.OrderResult
	err    error
}

type busEventMsg struct {
	event *events.Event
}

// leftMsg reports a confirmed leave once cleanup finished
type leftMsg struct {
	nav routes.Navigation
}

type countdownStoppedMsg struct {
	err error
}

// listenForBusEvent blocks until the next bus event arrives
func listenForBusEvent(channel <-chan *events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return busEventMsg{event: event}
	}
}

func enterEvent(ctx context.Context, flow Flow, eventID string) tea.Cmd {
	return func() tea.Msg {
		view, err := flow.EnterEvent(ctx, eventID)
		return eventLoadedMsg{view: view, err: err}
	}
}

func selectTickets(ctx context.Context, flow Flow, eventID string, quantities map[models.ID]int) tea.Cmd {
	return func() tea.Msg {
		nav, err := flow.SelectTickets(ctx, eventID, quantities)
		return navigatedMsg{nav: nav, err: err}
	}
}

func openBooking(ctx context.Context, flow Flow, eventID string, carried *routes.Carried) tea.Cmd {
	return func() tea.Msg {
		view, err := flow.OpenBookingForm(ctx, eventID, carried)
		return bookingLoadedMsg{view: view, err: err}
	}
}

func openPayment(ctx context.Context, flow Flow, eventID string, carried *routes.Carried) tea.Cmd {
	return func() tea.Msg {
		view, err := flow.OpenPayment(ctx, eventID, carried)
		return bookingLoadedMsg{payment: true, view: view, err: err}
	}
}

func submitBooking(ctx context.Context, flow Flow, eventID string, receiver routes.Receiver) tea.Cmd {
	return func() tea.Msg {
		nav, err := flow.SubmitBookingForm(ctx, eventID, receiver)
		return navigatedMsg{nav: nav, err: err}
	}
}

func placeOrder(ctx context.Context, flow Flow, method models.PaymentMethod) tea.Cmd {
	return func() tea.Msg {
		result, err := flow.PlaceOrder(ctx, method)
		return orderPlacedMsg{result: result, err: err}
	}
}

func confirmLeave(ctx context.Context, coord *reservation.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return leftMsg{nav: coord.ConfirmLeave(ctx)}
	}
}

// resumeCountdown re-evaluates coord against its deadline, for when the
// terminal regains focus
func resumeCountdown(ctx context.Context, coord *reservation.Coordinator) tea.Cmd {
	return func() tea.Msg {
		coord.Resume(ctx)
		return nil
	}
}

func discardOffer(ctx context.Context, offer *reservation.ResumeOffer) tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg{nav: offer.Discard(ctx)}
	}
}

// runCountdown drives coord until it finishes or ctx is cancelled
func runCountdown(ctx context.Context, coord *reservation.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return countdownStoppedMsg{err: coord.Run(ctx)}
	}
}

func runOffer(ctx context.Context, offer *reservation.ResumeOffer) tea.Cmd {
	return func() tea.Msg {
		offer.Run(ctx)
		return nil
	}
}
