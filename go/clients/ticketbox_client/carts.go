package ticketbox_client

import (
	"context"
	"fmt"

	"github.com/mcdev12/boxoffice/go/internal/models"
)

// TicketSelection is a requested quantity of one ticket type
type TicketSelection struct {
	TicketTypeID models.ID `json:"ticketTypeId"`
	Quantity     int       `json:"quantity"`
}

type addMultipleRequest struct {
	Tickets []TicketSelection `json:"tickets"`
}

// CartLineQuantity is a cart line the client confirms at checkout
type CartLineQuantity struct {
	ID       models.ID `json:"id"`
	Quantity int       `json:"quantity"`
}

type PrepareCheckoutRequest struct {
	CartID             models.ID          `json:"cartId"`
	CurrentCartDetails []CartLineQuantity `json:"currentCartDetails"`
	ReceiverName       string             `json:"receiverName"`
	ReceiverPhone      string             `json:"receiverPhone"`
	ReceiverEmail      string             `json:"receiverEmail"`
}

type PrepareCheckoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PlaceOrderRequest struct {
	ReceiverName  string               `json:"receiverName"`
	ReceiverPhone string               `json:"receiverPhone"`
	ReceiverEmail *string              `json:"receiverEmail"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
}

type PlaceOrderResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	OrderID    models.ID `json:"orderId"`
	PaymentURL string    `json:"paymentUrl"`
}

// GetCart fetches the caller's current cart
func (c *TicketboxClient) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.GetJSON(ctx, CartsEndpoint, &cart); err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

// AddToCart adds a single ticket type line
func (c *TicketboxClient) AddToCart(ctx context.Context, sel TicketSelection) error {
	if err := c.PostJSON(ctx, CartsEndpoint, sel, nil); err != nil {
		return fmt.Errorf("failed to add ticket type %s to cart: %w", sel.TicketTypeID, err)
	}
	return nil
}

// AddMultipleToCart replaces the cart contents with selections
func (c *TicketboxClient) AddMultipleToCart(ctx context.Context, selections []TicketSelection) error {
	if err := c.PostJSON(ctx, CartsAddMultipleEndpoint, addMultipleRequest{Tickets: selections}, nil); err != nil {
		return fmt.Errorf("failed to add tickets to cart: %w", err)
	}
	return nil
}

// DeleteCart cancels the caller's current cart
func (c *TicketboxClient) DeleteCart(ctx context.Context) error {
	if _, err := c.Delete(ctx, CartsEndpoint); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// GetCheckoutCart fetches the cart as prepared for payment
func (c *TicketboxClient) GetCheckoutCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.GetJSON(ctx, CartsCheckoutEndpoint, &cart); err != nil {
		return nil, fmt.Errorf("failed to get checkout cart: %w", err)
	}
	return &cart, nil
}

func (c *TicketboxClient) PrepareCheckout(ctx context.Context, req PrepareCheckoutRequest) (*PrepareCheckoutResponse, error) {
	var resp PrepareCheckoutResponse
	if err := c.PostJSON(ctx, CartsPrepareCheckoutEndpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to prepare checkout: %w", err)
	}
	if !resp.Success {
		return &resp, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return &resp, nil
}

func (c *TicketboxClient) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	var resp PlaceOrderResponse
	if err := c.PostJSON(ctx, CartsPlaceOrderEndpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	if !resp.Success {
		return &resp, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return &resp, nil
}
