package ticketbox_client

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/boxoffice/go/clients"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/rs/zerolog/log"
)

// ErrRejected is returned when the backend answers 2xx with success=false
var ErrRejected = errors.New("request rejected by backend")

// TicketboxClient talks to the marketplace backend REST API
type TicketboxClient struct {
	*clients.BaseClient
	publisher events.Publisher
}

// NewTicketboxClient creates a client. provider supplies per-request auth
// headers; a 401 from any endpoint is published on publisher as
// AuthRequired.
func NewTicketboxClient(baseURL string, provider clients.HeaderProvider, publisher events.Publisher) *TicketboxClient {
	client := &TicketboxClient{
		BaseClient: clients.NewBaseClient(baseURL),
		publisher:  publisher,
	}
	client.SetHeaderProvider(provider)
	client.SetUnauthorizedHandler(client.authRequired)
	return client
}

// WithAuth returns a client sharing this one's transport but sending the
// headers of provider. The gateway uses it to call the backend as the
// requesting user.
func (c *TicketboxClient) WithAuth(provider clients.HeaderProvider) *TicketboxClient {
	return &TicketboxClient{
		BaseClient: c.BaseClient.WithHeaderProvider(provider),
		publisher:  c.publisher,
	}
}

func (c *TicketboxClient) authRequired(ctx context.Context, endpoint string) {
	log.Debug().Str("endpoint", endpoint).Msg("backend rejected credentials")
	if c.publisher == nil {
		return
	}
	ev, err := events.New(events.EventTypeAuthRequired, "", time.Now(), events.AuthRequiredPayload{
		Reason: "unauthorized",
		Path:   endpoint,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build auth required event")
		return
	}
	c.publisher.Publish(ev)
}
