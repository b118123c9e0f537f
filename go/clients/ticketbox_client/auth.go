package ticketbox_client

import (
	"context"
	"fmt"
)

type loginRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Password     string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token
func (c *TicketboxClient) Login(ctx context.Context, emailOrPhone, password string) (string, error) {
	var resp loginResponse
	if err := c.PostJSON(ctx, AuthLoginEndpoint, loginRequest{EmailOrPhone: emailOrPhone, Password: password}, &resp); err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("failed to log in: %w: response has no token", ErrRejected)
	}
	return resp.Token, nil
}

func (c *TicketboxClient) Logout(ctx context.Context) error {
	if err := c.PostJSON(ctx, AuthLogoutEndpoint, nil, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}
