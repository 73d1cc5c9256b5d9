package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
)

type WebSocketHandler struct {
	hub      *hub.Hub
	inbound  hub.InboundHandler
	logger   logger.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hubInstance *hub.Hub, inbound hub.InboundHandler, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hubInstance,
		inbound: inbound,
		logger:  logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// widgets are served from the robot's own network
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect upgrades the request and keeps the handler alive for the lifetime
// of the widget connection.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	filter := hub.ParseChannelFilter(c.Query("channels"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := hub.NewWebSocketConnection(
		context.Background(),
		hub.NewConnectionID("ws"),
		conn,
		filter,
		h.inbound,
		h.logger,
	)

	if err := h.hub.RegisterConnection(wsConn); err != nil {
		h.logger.Errorf("Failed to register WebSocket connection: %v", err)
		_ = wsConn.Close()
		return
	}

	welcome := hub.NewEvent(hub.ChannelConnected, gin.H{
		"connection_id": wsConn.ID(),
		"channels":      filter.Channels(),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
	if err := wsConn.Send(c.Request.Context(), welcome); err != nil {
		h.logger.Warnf("Failed to queue welcome event: %v", err)
	}

	h.logger.Infof("WebSocket connection %s registered", wsConn.ID())

	<-wsConn.Context().Done()
	h.logger.Infof("WebSocket connection %s disconnected", wsConn.ID())
}

func (h *WebSocketHandler) GetConnections(c *gin.Context) {
	connections := h.hub.GetConnectionsByType("websocket")
	connectionInfo := make([]gin.H, len(connections))

	for i, conn := range connections {
		connectionInfo[i] = gin.H{
			"id":       conn.ID(),
			"type":     conn.Type(),
			"channels": conn.Filter().Channels(),
			"closed":   conn.IsClosed(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connections),
		"connections":       connectionInfo,
		"hub_running":       h.hub.IsRunning(),
	})
}
