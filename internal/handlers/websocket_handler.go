package handlers

import (
	"github.com/gin-gonic/gin"

	"buggydispatch/internal/models"
	"buggydispatch/internal/utils"
	"buggydispatch/pkg/logger"
	"buggydispatch/pkg/websocket"
)

type WebSocketHandler struct {
	hub    *websocket.Hub
	logger *logger.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, logger *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// Connect upgrades the request and subscribes the session to its topics.
// Admins get the hotel-wide dashboard feed; drivers get their personal topic
// for eviction and request notices.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	role := currentRole(c)
	var topics []string
	switch role {
	case string(models.UserRoleAdmin):
		topics = []string{websocket.HotelAdminTopic(hotelID)}
	case string(models.UserRoleDriver):
		topics = []string{websocket.DriverTopic(userID)}
	default:
		utils.ForbiddenResponse(c)
		return
	}

	if err := websocket.ServeClient(h.hub, h.logger, c.Writer, c.Request, userID, role, topics...); err != nil {
		h.logger.WithError(err).WithField("user_id", userID.Hex()).Warn("WebSocket upgrade failed")
	}
}
