package models

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodVNPay PaymentMethod = "VNPAY"
	PaymentMethodCash  PaymentMethod = "CASH"
)

// OrderStatus is the backend status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusSuccess   OrderStatus = "SUCCESS"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderEvent is the event summary nested in an order line
type OrderEvent struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	Location  string `json:"location,omitempty"`
	StartDate string `json:"startDate"`
	Duration  string `json:"duration,omitempty"`
}

// OrderTicketType is the ticket type nested in an order line
type OrderTicketType struct {
	ID    ID         `json:"id"`
	Type  string     `json:"type"`
	Event OrderEvent `json:"event"`
}

// OrderDetail is a line of a placed order.
type OrderDetail struct {
	ID         ID              `json:"id"`
	Price      float64         `json:"price"`
	Quantity   int             `json:"quantity"`
	TicketType OrderTicketType `json:"ticketType"`
}

// Order represents a placed order.
type Order struct {
	ID                 ID            `json:"id"`
	Status             OrderStatus   `json:"status"`
	OrderDetails       []OrderDetail `json:"orderDetails,omitempty"`
	TicketOrderDetails []OrderDetail `json:"ticketOrderDetails,omitempty"`
}

// Lines returns the order lines regardless of which field the backend used
func (o *Order) Lines() []OrderDetail {
	if len(o.OrderDetails) > 0 {
		return o.OrderDetails
	}
	return o.TicketOrderDetails
}

// OrdersPage is one page of order history
type OrdersPage struct {
	Orders       []Order `json:"orders"`
	TotalPages   int     `json:"totalPages"`
	TotalRecords int     `json:"totalRecords"`
	CurrentPage  int     `json:"currentPage"`
}
