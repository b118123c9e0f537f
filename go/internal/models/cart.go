package models

// CartTicketType is the ticket type summary embedded in a cart line
type CartTicketType struct {
	ID   ID     `json:"id,omitempty"`
	Type string `json:"type"`
}

// CartDetail is a single line item of a cart.
type CartDetail struct {
	ID         ID             `json:"id"`
	CartID     ID             `json:"cartId,omitempty"`
	Quantity   int            `json:"quantity"`
	Price      float64        `json:"price"`
	TicketType CartTicketType `json:"ticketType"`
}

// Subtotal returns price times quantity for the line
func (d CartDetail) Subtotal() float64 {
	return d.Price * float64(d.Quantity)
}

// Cart is the backend-tracked set of ticket line items a user is purchasing.
type Cart struct {
	CartID      ID           `json:"cartId"`
	CartDetails []CartDetail `json:"cartDetails"`
}

// ResolvedID returns the cart id, falling back to the id carried on the
// first line item when the backend omits the top-level field.
func (c *Cart) ResolvedID() ID {
	if c == nil {
		return ""
	}
	if !c.CartID.IsZero() {
		return c.CartID
	}
	if len(c.CartDetails) > 0 {
		return c.CartDetails[0].CartID
	}
	return ""
}

// IsEmpty reports whether the cart holds no line items
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.CartDetails) == 0
}

// TotalQuantity returns the number of seats across all lines
func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, d := range c.CartDetails {
		total += d.Quantity
	}
	return total
}

// TotalPrice returns the cart subtotal
func (c *Cart) TotalPrice() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, d := range c.CartDetails {
		total += d.Subtotal()
	}
	return total
}
