package ticketbox_client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mcdev12/boxoffice/go/internal/models"
)

// EventQuery filters the event listing
type EventQuery struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

func (q EventQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v.Encode()
}

// EventsPage is one page of the event listing
type EventsPage struct {
	Events       []models.Event `json:"events"`
	TotalPages   int            `json:"totalPages"`
	TotalRecords int            `json:"totalRecords"`
	CurrentPage  int            `json:"currentPage"`
}

func (c *TicketboxClient) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	endpoint := fmt.Sprintf("%s/%s", EventsEndpoint, url.PathEscape(eventID))
	if err := c.GetJSON(ctx, endpoint, &event); err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return &event, nil
}

func (c *TicketboxClient) ListEvents(ctx context.Context, query EventQuery) (*EventsPage, error) {
	endpoint := EventsEndpoint
	if qs := query.encode(); qs != "" {
		endpoint += "?" + qs
	}

	var page EventsPage
	if err := c.GetJSON(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return &page, nil
}
