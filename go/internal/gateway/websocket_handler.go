package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades reservation watchers to WebSocket connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	auth              *Authenticator
	registry          *Registry
}

func NewWebSocketHandler(cm *ConnectionManager, auth *Authenticator, registry *Registry) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		auth:              auth,
		registry:          registry,
	}
}

// HandleReservationConnection streams a cart's countdown to its owner
func (h *WebSocketHandler) HandleReservationConnection(w http.ResponseWriter, r *http.Request) {
	cartID := r.URL.Query().Get("cart_id")
	if cartID == "" {
		http.Error(w, "cart_id is required", http.StatusBadRequest)
		return
	}

	p, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.registry.Owned(cartID, p); err != nil {
		writeError(w, err)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, p.UserID, cartID); err != nil {
		// the upgrader has already replied
		log.Error().
			Err(err).
			Str("cart_id", cartID).
			Str("user_id", p.UserID).
			Msg("failed to upgrade WebSocket connection")
	}
}

func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/reservation", h.HandleReservationConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}

// registryCommands executes socket commands against the hosted reservations
type registryCommands struct {
	registry *Registry
}

func (c registryCommands) HandleCommand(ctx context.Context, conn *Connection, cmd ClientCommand) CommandResult {
	result := CommandResult{Command: cmd.Type}

	res, err := c.registry.Owned(conn.CartID, &Principal{UserID: conn.UserID})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	coord := res.Coordinator

	switch cmd.Type {
	case CommandResume:
		coord.Resume(ctx)
	case CommandLeave:
		if err := coord.RequestLeave(); err != nil {
			result.Error = err.Error()
		}
	case CommandConfirmLeave:
		result.Navigation = navigation(coord.ConfirmLeave(ctx))
	case CommandDeclineLeave:
		result.Navigation = navigation(coord.DeclineLeave())
	default:
		result.Error = "unknown command"
	}

	result.State = coord.State().String()
	return result
}

var _ CommandHandler = registryCommands{}
