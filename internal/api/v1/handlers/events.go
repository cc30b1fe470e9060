package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskhub/internal/config"
	"taskhub/internal/models"
	ws "taskhub/internal/websocket"
	"taskhub/pkg/logger"
)

// EventsHandler upgrades a request to a socket that receives the caller's
// task events.
type EventsHandler struct {
	hub *ws.Hub
}

func NewEventsHandler(deps *config.Dependencies) *EventsHandler {
	return &EventsHandler{hub: deps.Hub}
}

func (h *EventsHandler) Stream(c *fiber.Ctx, user *models.User) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID := user.ID
	return websocket.New(func(conn *websocket.Conn) {
		client := &ws.Client{Conn: conn, UserID: userID}
		h.hub.Register(client)
		defer h.hub.Unregister(client)
		logger.SystemLogger.Info("Event socket opened", zap.String("user_id", userID))

		// Clients only listen; reading drives close detection.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})(c)
}
