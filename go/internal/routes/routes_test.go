package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckoutRoutes(t *testing.T) {
	assert.Equal(t, Route("/events/7"), EventDetail("7"))
	assert.Equal(t, Route("/events/7/bookings/select-ticket"), SelectTicket("7"))
	assert.Equal(t, Route("/events/7/bookings/select-ticket/booking-form"), BookingForm("7"))
	assert.Equal(t, Route("/events/7/bookings/select-ticket/booking-form/payment"), Payment("7"))
}

func TestNavigationHelpers(t *testing.T) {
	stay := Stay()
	assert.False(t, stay.Proceed)
	assert.Empty(t, stay.Route)

	nav := To(SelectTicket("1"))
	assert.True(t, nav.Proceed)
	assert.Nil(t, nav.Carried)

	carried := &Carried{Receiver: &Receiver{Name: "An"}}
	nav = ToWith(Payment("1"), carried)
	assert.Same(t, carried, nav.Carried)
}
