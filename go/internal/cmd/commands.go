package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mcdev12/boxoffice/go/clients/ticketbox_client"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/tui"
)

const listLimit = 20

type eventLister interface {
	ListEvents(ctx context.Context, query ticketbox_client.EventQuery) (*ticketbox_client.EventsPage, error)
}

type orderLister interface {
	OrderHistory(ctx context.Context, query ticketbox_client.OrderHistoryQuery) (*models.OrdersPage, error)
	PendingTicketsCount(ctx context.Context) (int, error)
}

type paymentRetrier interface {
	RetryPayment(ctx context.Context, orderID string) (string, error)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.DefaultTheme().Border)).
		Headers(headers...)
}

func listEvents(ctx context.Context, w io.Writer, client eventLister, category string) error {
	page, err := client.ListEvents(ctx, ticketbox_client.EventQuery{Limit: listLimit, Category: category})
	if err != nil {
		return err
	}
	if len(page.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	t := newTable("ID", "Title", "Category", "Starts", "Location")
	for _, e := range page.Events {
		t.Row(e.ID.String(), e.Title, e.Category, e.StartDate, e.Location)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "Page %d of %d (%d events)\n", page.CurrentPage, page.TotalPages, page.TotalRecords)
	return nil
}

func listTickets(ctx context.Context, w io.Writer, client orderLister) error {
	page, err := client.OrderHistory(ctx, ticketbox_client.OrderHistoryQuery{Limit: listLimit})
	if err != nil {
		return err
	}

	if len(page.Orders) == 0 {
		fmt.Fprintln(w, "No orders yet.")
	} else {
		t := newTable("Order", "Status", "Event", "Ticket", "Qty", "Price")
		var unpaid []models.ID
		for _, o := range page.Orders {
			if o.Status == models.OrderStatusPending {
				unpaid = append(unpaid, o.ID)
			}
			for _, line := range o.Lines() {
				t.Row(
					o.ID.String(),
					string(o.Status),
					line.TicketType.Event.Title,
					line.TicketType.Type,
					fmt.Sprint(line.Quantity),
					tui.FormatPrice(line.Price*float64(line.Quantity)),
				)
			}
		}
		fmt.Fprintln(w, t.String())
		for _, id := range unpaid {
			fmt.Fprintf(w, "Order #%s is unpaid: boxoffice --pay %s\n", id, id)
		}
	}

	pending, err := client.PendingTicketsCount(ctx)
	if err != nil {
		return err
	}
	if pending > 0 {
		fmt.Fprintf(w, "%d ticket(s) awaiting payment.\n", pending)
	}
	return nil
}

// payOrder opens a new payment attempt for a pending order and prints the
// payment page link
func payOrder(ctx context.Context, w io.Writer, client paymentRetrier, orderID string) error {
	link, err := client.RetryPayment(ctx, orderID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Complete payment for order #%s at:\n%s\n", orderID, link)
	return nil
}
