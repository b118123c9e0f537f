package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/routes"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans reservation events out to the WebSocket clients
// watching each cart
type ConnectionManager struct {
	cartConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	commands CommandHandler

	broadcastCh chan BroadcastMessage
}

// CommandHandler executes commands sent by a client over its socket
type CommandHandler interface {
	HandleCommand(ctx context.Context, conn *Connection, cmd ClientCommand) CommandResult
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	UserID  string
	CartID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is an event bound for the connections of one cart
type BroadcastMessage struct {
	CartID string
	Event  *events.Event
	UserID string // Optional: if set, only send to this user
}

// ClientCommand is a message a client sends over its socket
type ClientCommand struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id,omitempty"`
}

const (
	CommandResume       = "resume"
	CommandLeave        = "leave"
	CommandConfirmLeave = "confirm_leave"
	CommandDeclineLeave = "decline_leave"
)

// CommandResult is the reply to a ClientCommand
type CommandResult struct {
	Type       string             `json:"type"`
	Command    string             `json:"command"`
	Navigation *routes.Navigation `json:"navigation,omitempty"`
	State      string             `json:"state,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, commands CommandHandler) *ConnectionManager {
	return &ConnectionManager{
		cartConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		commands:    commands,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, cartID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		CartID:      cartID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: now,
		LastPing:    now,
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("cart_id", cartID).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.cartConnections[conn.CartID] == nil {
		cm.cartConnections[conn.CartID] = make(map[*Connection]bool)
	}
	cm.cartConnections[conn.CartID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("cart_id", conn.CartID).
		Int("total_connections", len(cm.cartConnections[conn.CartID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.cartConnections[conn.CartID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)

	if len(connections) == 0 {
		delete(cm.cartConnections, conn.CartID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("cart_id", conn.CartID).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	var all []*Connection
	for _, connections := range cm.cartConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.Unlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// BroadcastToCart sends an event to all connections watching a cart
func (cm *ConnectionManager) BroadcastToCart(cartID string, event *events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{CartID: cartID, Event: event}:
	default:
		log.Warn().Str("cart_id", cartID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.cartConnections[message.CartID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targetConnections []*Connection
	for conn := range connections {
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		cm.deliver(conn, eventData)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("cart_id", message.CartID).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// deliver queues data on conn, dropping the connection when it cannot keep up
func (cm *ConnectionManager) deliver(conn *Connection, data []byte) {
	cm.mu.RLock()
	_, live := cm.cartConnections[conn.CartID][conn]
	if live {
		select {
		case conn.Send <- data:
			cm.mu.RUnlock()
			return
		default:
		}
	}
	cm.mu.RUnlock()
	if !live {
		return
	}

	log.Warn().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Msg("connection send buffer full, closing connection")
	cm.unregisterConnection(conn)
	conn.Conn.Close()
}

// ConnectionStats summarizes active connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveCarts      int            `json:"active_carts"`
	CartConnections  map[string]int `json:"cart_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{CartConnections: make(map[string]int)}
	for cartID, connections := range cm.cartConnections {
		stats.TotalConnections += len(connections)
		stats.CartConnections[cartID] = len(connections)
	}
	stats.ActiveCarts = len(cm.cartConnections)
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil || cmd.Type == "" {
		log.Debug().
			Str("connection_id", c.ID).
			Msg("ignoring malformed client message")
		c.reply(CommandResult{Type: "command_result", Error: "malformed command"})
		return
	}
	if c.Manager.commands == nil {
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("user_id", c.UserID).
		Str("command", cmd.Type).
		Msg("received client command")

	c.reply(c.Manager.commands.HandleCommand(context.Background(), c, cmd))
}

func (c *Connection) reply(result CommandResult) {
	result.Type = "command_result"
	data, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal command result")
		return
	}
	c.Manager.deliver(c, data)
}
