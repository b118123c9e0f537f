package ticketbox_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/boxoffice/go/clients"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newBackend(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)

		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func respond(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestGetEvent(t *testing.T) {
	srv, calls := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/events/9": respond(`{"id":9,"title":"Live show","ticketTypes":[{"id":1,"type":"VIP","price":500000,"quantity":10}]}`),
	})
	c := NewTicketboxClient(srv.URL, nil, nil)

	event, err := c.GetEvent(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, models.ID("9"), event.ID)
	require.Len(t, event.TicketTypes, 1)
	assert.Equal(t, 500000.0, event.TicketTypes[0].Price)
	assert.Equal(t, "", (*calls)[0].auth)
}

func TestListEvents(t *testing.T) {
	srv, calls := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/events": respond(`{"events":[{"id":1},{"id":2}],"totalPages":3}`),
	})
	c := NewTicketboxClient(srv.URL, nil, nil)

	page, err := c.ListEvents(context.Background(), EventQuery{Page: 1, Limit: 4, Category: "Music"})
	require.NoError(t, err)
	assert.Len(t, page.Events, 2)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "category=Music&limit=4&page=1", (*calls)[0].query)
}

func TestCartOperations(t *testing.T) {
	srv, calls := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/carts":               respond(`{"cartDetails":[{"id":5,"cartId":42,"quantity":2,"price":100000,"ticketType":{"id":1,"type":"VIP"}}]}`),
		"POST /api/carts/add-multiple": respond(`{}`),
		"DELETE /api/carts":            respond(``),
		"GET /api/carts/checkout":      respond(`{"cartId":42,"cartDetails":[]}`),
	})
	c := NewTicketboxClient(srv.URL, clients.BearerToken("tok"), nil)
	ctx := context.Background()

	cart, err := c.GetCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), cart.ResolvedID())
	assert.Equal(t, 2, cart.TotalQuantity())

	require.NoError(t, c.AddMultipleToCart(ctx, []TicketSelection{{TicketTypeID: "1", Quantity: 2}}))
	require.NoError(t, c.DeleteCart(ctx))

	checkout, err := c.GetCheckoutCart(ctx)
	require.NoError(t, err)
	assert.True(t, checkout.IsEmpty())

	require.Len(t, *calls, 4)
	for _, call := range *calls {
		assert.Equal(t, "Bearer tok", call.auth)
	}
	tickets := (*calls)[1].body["tickets"].([]any)
	first := tickets[0].(map[string]any)
	assert.Equal(t, 1.0, first["ticketTypeId"])
	assert.Equal(t, 2.0, first["quantity"])
	assert.Equal(t, http.MethodDelete, (*calls)[2].method)
}

func TestPrepareCheckout(t *testing.T) {
	srv, calls := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/carts/prepare-checkout": respond(`{"success":true}`),
	})
	c := NewTicketboxClient(srv.URL, nil, nil)

	resp, err := c.PrepareCheckout(context.Background(), PrepareCheckoutRequest{
		CartID:             "42",
		CurrentCartDetails: []CartLineQuantity{{ID: "5", Quantity: 2}},
		ReceiverName:       "An Nguyen",
		ReceiverPhone:      "0912345678",
		ReceiverEmail:      "an@example.com",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	body := (*calls)[0].body
	assert.Equal(t, 42.0, body["cartId"])
	assert.Equal(t, "0912345678", body["receiverPhone"])
}

func TestPlaceOrderRejected(t *testing.T) {
	srv, _ := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/carts/place-order": respond(`{"success":false,"message":"sold out"}`),
	})
	c := NewTicketboxClient(srv.URL, nil, nil)

	resp, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{PaymentMethod: models.PaymentMethodVNPay})
	assert.ErrorIs(t, err, ErrRejected)
	require.NotNil(t, resp)
	assert.Equal(t, "sold out", resp.Message)
}

func TestPlaceOrderPaymentURL(t *testing.T) {
	srv, _ := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/carts/place-order": respond(`{"success":true,"orderId":1001,"paymentUrl":"https://pay.example/1001"}`),
	})
	c := NewTicketboxClient(srv.URL, nil, nil)

	resp, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{PaymentMethod: models.PaymentMethodVNPay})
	require.NoError(t, err)
	assert.Equal(t, models.ID("1001"), resp.OrderID)
	assert.Equal(t, "https://pay.example/1001", resp.PaymentURL)
}

func TestUnauthorizedPublishesAuthRequired(t *testing.T) {
	srv, _ := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/carts": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"token expired"}`))
		},
	})
	bus := events.NewBus(4)
	sub := bus.Subscribe("", events.EventTypeAuthRequired)
	c := NewTicketboxClient(srv.URL, clients.BearerToken("old"), bus)

	_, err := c.GetCart(context.Background())
	require.Error(t, err)
	var apiErr *clients.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "token expired", apiErr.Message)

	ev := <-sub.C
	var payload events.AuthRequiredPayload
	require.NoError(t, ev.Decode(&payload))
	assert.Equal(t, "/api/carts", payload.Path)
}

func TestAuthAndOrders(t *testing.T) {
	srv, calls := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/auth/login":                  respond(`{"token":"jwt"}`),
		"POST /api/auth/logout":                 respond(``),
		"GET /api/orders/pending-tickets-count": respond(`{"totalTickets":3}`),
		"GET /api/orders/history":               respond(`{"orders":[{"id":7,"status":"PENDING"}],"totalPages":1,"currentPage":1}`),
		"POST /api/orders/7/retry-payment":      respond(`{"paymentUrl":"https://pay.example/7"}`),
	})
	c := NewTicketboxClient(srv.URL, nil, nil)
	ctx := context.Background()

	token, err := c.Login(ctx, "an@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
	assert.Equal(t, "an@example.com", (*calls)[0].body["emailOrPhone"])

	require.NoError(t, c.Logout(ctx))

	count, err := c.PendingTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := c.OrderHistory(ctx, OrderHistoryQuery{Page: 1, Limit: 10, Status: models.OrderStatusPending, EventTime: "upcoming"})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "eventTime=upcoming&limit=10&page=1&status=PENDING", (*calls)[3].query)

	url, err := c.RetryPayment(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/7", url)
}

func TestWithAuthScopesHeaders(t *testing.T) {
	srv, calls := newBackend(t, map[string]func(http.ResponseWriter, *http.Request){
		"DELETE /api/carts": respond(``),
	})
	base := NewTicketboxClient(srv.URL, nil, nil)
	ctx := context.Background()

	require.NoError(t, base.WithAuth(clients.BearerToken("u1")).DeleteCart(ctx))
	require.NoError(t, base.DeleteCart(ctx))

	assert.Equal(t, "Bearer u1", (*calls)[0].auth)
	assert.Equal(t, "", (*calls)[1].auth)
}
