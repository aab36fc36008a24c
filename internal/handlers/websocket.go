package handlers

import (
	"net/http"

	"photo-exchange-backend/internal/middleware"
	"photo-exchange-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	wsHub       *services.WSHub
	userService *services.UserService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(wsHub *services.WSHub, userService *services.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		wsHub:       wsHub,
		userService: userService,
	}
}

// HandleWebSocket handles GET /ws?token=<jwt>. The connection is
// notification-only: the server pushes photo_exchanged events, the client
// sends nothing but pings.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, err := middleware.ValidateWebSocketToken(token, h.userService)
	if err != nil {
		respondError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to upgrade websocket")
		return
	}

	h.wsHub.Register(userID, conn)
	defer h.wsHub.Unregister(userID)

	// Keep the connection open until the client goes away. Incoming frames
	// are discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int64("user_id", userID).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}
