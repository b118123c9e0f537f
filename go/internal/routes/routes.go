package routes

import (
	"fmt"
	"time"
)

// Route is a navigation target in the checkout flow.
type Route string

const (
	Home      Route = "/"
	MyTickets Route = "/my-tickets"
	AllEvents Route = "/search"
)

// EventDetail is the event landing page
func EventDetail(eventID string) Route {
	return Route(fmt.Sprintf("/events/%s", eventID))
}

// SelectTicket is the ticket selection step
func SelectTicket(eventID string) Route {
	return Route(fmt.Sprintf("/events/%s/bookings/select-ticket", eventID))
}

// BookingForm is the receiver details step; the countdown starts here
func BookingForm(eventID string) Route {
	return Route(fmt.Sprintf("/events/%s/bookings/select-ticket/booking-form", eventID))
}

// Payment is the payment method step
func Payment(eventID string) Route {
	return Route(fmt.Sprintf("/events/%s/bookings/select-ticket/booking-form/payment", eventID))
}

// Receiver holds the contact fields entered on the booking form.
type Receiver struct {
	Name  string `json:"receiver_name"`
	Phone string `json:"receiver_phone"`
	Email string `json:"receiver_email"`
}

// Carried is the state handed from one step of the flow to the next. A
// carried deadline lets a step resume the exact countdown of the previous one.
type Carried struct {
	Deadline *time.Time `json:"deadline,omitempty"`
	Receiver *Receiver  `json:"receiver,omitempty"`
}

// Navigation tells the caller whether to move and where.
type Navigation struct {
	Proceed bool     `json:"proceed"`
	Route   Route    `json:"route,omitempty"`
	Carried *Carried `json:"carried,omitempty"`
}

// Stay suppresses navigation
func Stay() Navigation {
	return Navigation{Proceed: false}
}

// To navigates to route without carried state
func To(route Route) Navigation {
	return Navigation{Proceed: true, Route: route}
}

// ToWith navigates to route carrying state
func ToWith(route Route, carried *Carried) Navigation {
	return Navigation{Proceed: true, Route: route, Carried: carried}
}
