package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/boxoffice/go/clients/ticketbox_client"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	events     *ticketbox_client.EventsPage
	eventQuery ticketbox_client.EventQuery
	orders     *models.OrdersPage
	pending    int
	err        error
	pendingErr error
	paymentURL string
	paid       string
}

func (f *fakeLister) ListEvents(_ context.Context, q ticketbox_client.EventQuery) (*ticketbox_client.EventsPage, error) {
	f.eventQuery = q
	return f.events, f.err
}

func (f *fakeLister) OrderHistory(context.Context, ticketbox_client.OrderHistoryQuery) (*models.OrdersPage, error) {
	return f.orders, f.err
}

func (f *fakeLister) PendingTicketsCount(context.Context) (int, error) {
	return f.pending, f.pendingErr
}

func (f *fakeLister) RetryPayment(_ context.Context, orderID string) (string, error) {
	f.paid = orderID
	return f.paymentURL, f.err
}

func TestListEvents(t *testing.T) {
	lister := &fakeLister{events: &ticketbox_client.EventsPage{
		Events: []models.Event{
			{ID: "42", Title: "Night Concert", Category: "music", StartDate: "2025-04-01", Location: "Hanoi"},
		},
		TotalPages:   1,
		TotalRecords: 1,
		CurrentPage:  1,
	}}

	var out bytes.Buffer
	require.NoError(t, listEvents(context.Background(), &out, lister, "music"))

	assert.Equal(t, "music", lister.eventQuery.Category)
	assert.Equal(t, listLimit, lister.eventQuery.Limit)
	assert.Contains(t, out.String(), "Night Concert")
	assert.Contains(t, out.String(), "Hanoi")
	assert.Contains(t, out.String(), "Page 1 of 1 (1 events)")
}

func TestListEventsEmpty(t *testing.T) {
	lister := &fakeLister{events: &ticketbox_client.EventsPage{}}

	var out bytes.Buffer
	require.NoError(t, listEvents(context.Background(), &out, lister, ""))
	assert.Equal(t, "No events found.\n", out.String())
}

func TestListEventsError(t *testing.T) {
	lister := &fakeLister{err: errors.New("boom")}

	var out bytes.Buffer
	assert.Error(t, listEvents(context.Background(), &out, lister, ""))
}

func TestListTickets(t *testing.T) {
	lister := &fakeLister{
		orders: &models.OrdersPage{Orders: []models.Order{{
			ID:     "o-1",
			Status: models.OrderStatusSuccess,
			TicketOrderDetails: []models.OrderDetail{{
				Price:    300000,
				Quantity: 2,
				TicketType: models.OrderTicketType{
					Type:  "VIP",
					Event: models.OrderEvent{Title: "Night Concert"},
				},
			}},
		}}},
		pending: 3,
	}

	var out bytes.Buffer
	require.NoError(t, listTickets(context.Background(), &out, lister))

	assert.Contains(t, out.String(), "o-1")
	assert.Contains(t, out.String(), "SUCCESS")
	assert.Contains(t, out.String(), "VIP")
	assert.Contains(t, out.String(), "600,000 ₫")
	assert.Contains(t, out.String(), "3 ticket(s) awaiting payment.")
}

func TestListTicketsPointsAtUnpaidOrders(t *testing.T) {
	lister := &fakeLister{orders: &models.OrdersPage{Orders: []models.Order{
		{ID: "o-1", Status: models.OrderStatusSuccess},
		{ID: "o-2", Status: models.OrderStatusPending},
	}}}

	var out bytes.Buffer
	require.NoError(t, listTickets(context.Background(), &out, lister))
	assert.Contains(t, out.String(), "Order #o-2 is unpaid: boxoffice --pay o-2")
	assert.NotContains(t, out.String(), "Order #o-1 is unpaid")
}

func TestPayOrder(t *testing.T) {
	lister := &fakeLister{paymentURL: "https://pay.example.test/o-2"}

	var out bytes.Buffer
	require.NoError(t, payOrder(context.Background(), &out, lister, "o-2"))
	assert.Equal(t, "o-2", lister.paid)
	assert.Contains(t, out.String(), "https://pay.example.test/o-2")
}

func TestPayOrderError(t *testing.T) {
	lister := &fakeLister{err: errors.New("order is not pending")}

	var out bytes.Buffer
	assert.Error(t, payOrder(context.Background(), &out, lister, "o-1"))
	assert.Empty(t, out.String())
}

func TestListTicketsNoOrders(t *testing.T) {
	lister := &fakeLister{orders: &models.OrdersPage{}}

	var out bytes.Buffer
	require.NoError(t, listTickets(context.Background(), &out, lister))
	assert.Equal(t, "No orders yet.\n", out.String())
}

func TestResolveProfile(t *testing.T) {
	assert.Equal(t, "/tmp/a.json", resolveProfile("/tmp/a.json", "/tmp/b.json"))
	assert.Equal(t, "/tmp/b.json", resolveProfile("", "/tmp/b.json"))
	assert.Contains(t, resolveProfile("", ""), "profile.json")
}
