package ticketbox_client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mcdev12/boxoffice/go/internal/models"
)

// OrderHistoryQuery filters order history
type OrderHistoryQuery struct {
	Page      int
	Limit     int
	Status    models.OrderStatus
	EventTime string // "upcoming" or "past"
}

func (q OrderHistoryQuery) encode() string {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.EventTime != "" {
		v.Set("eventTime", q.EventTime)
	}
	return v.Encode()
}

type pendingCountResponse struct {
	TotalTickets int `json:"totalTickets"`
}

type retryPaymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
}

// PendingTicketsCount returns the number of tickets in unpaid orders
func (c *TicketboxClient) PendingTicketsCount(ctx context.Context) (int, error) {
	var resp pendingCountResponse
	if err := c.GetJSON(ctx, OrdersPendingCountEndpoint, &resp); err != nil {
		return 0, fmt.Errorf("failed to get pending tickets count: %w", err)
	}
	return resp.TotalTickets, nil
}

func (c *TicketboxClient) OrderHistory(ctx context.Context, query OrderHistoryQuery) (*models.OrdersPage, error) {
	endpoint := OrdersHistoryEndpoint
	if qs := query.encode(); qs != "" {
		endpoint += "?" + qs
	}

	var page models.OrdersPage
	if err := c.GetJSON(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	return &page, nil
}

// RetryPayment starts a new payment attempt for a pending order and
// returns the payment page URL
func (c *TicketboxClient) RetryPayment(ctx context.Context, orderID string) (string, error) {
	var resp retryPaymentResponse
	endpoint := fmt.Sprintf("%s/%s/retry-payment", OrdersEndpoint, url.PathEscape(orderID))
	if err := c.PostJSON(ctx, endpoint, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to retry payment for order %s: %w", orderID, err)
	}
	if resp.PaymentURL == "" {
		return "", fmt.Errorf("failed to retry payment for order %s: %w: no payment url", orderID, ErrRejected)
	}
	return resp.PaymentURL, nil
}
