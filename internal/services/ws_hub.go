package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"photo-exchange-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type             string `json:"type"`
	PhotoID          int64  `json:"photo_id,omitempty"`
	PhotoName        string `json:"photo_name,omitempty"`
	PartnerPhotoID   int64  `json:"partner_photo_id,omitempty"`
	PartnerPhotoName string `json:"partner_photo_name,omitempty"`
	Message          string `json:"message,omitempty"`
}

// wsConn wraps a connection with its write lock. gorilla/websocket allows at
// most one concurrent writer per connection, and two exchanges can complete
// for the same waiting user at the same time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections. A connected uploader learns in real
// time when one of their waiting photos is claimed by a new upload.
type WSHub struct {
	mu          sync.RWMutex
	connections map[int64]*wsConn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[int64]*wsConn),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}
	h.connections[userID] = &wsConn{conn: conn}

	log.Info().Int64("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[userID]; exists {
		c.conn.Close()
		delete(h.connections, userID)
		log.Info().Int64("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// IsOnline checks if a user is connected
func (h *WSHub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID int64, message WSMessage) error {
	h.mu.RLock()
	c, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %d is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// NotifyPhotoExchanged tells a user that their waiting photo was matched and
// which photo they received in return.
func (h *WSHub) NotifyPhotoExchanged(userID int64, waiting, arrived *models.Photo) error {
	return h.SendToUser(userID, WSMessage{
		Type:             "photo_exchanged",
		PhotoID:          waiting.ID,
		PhotoName:        waiting.Name,
		PartnerPhotoID:   arrived.ID,
		PartnerPhotoName: arrived.Name,
	})
}
