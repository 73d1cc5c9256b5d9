package sse

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
)

type ServerSentEventHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

func NewServerSentEventHandler(hubInstance *hub.Hub, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "sse"),
	}
}

// Connect attaches a widget event stream to the hub and serves it until the
// client goes away.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	filter := hub.ParseChannelFilter(c.Query("channels"))
	conn := hub.NewSSEConnection(
		c.Request.Context(),
		hub.NewConnectionID("sse"),
		c.Writer,
		filter,
		h.logger,
	)

	if err := h.hub.RegisterConnection(conn); err != nil {
		h.logger.Errorf("Failed to register connection: %v", err)
		_ = conn.Close()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to register connection",
		})
		return
	}

	c.Status(http.StatusOK)
	welcome := hub.NewEvent(hub.ChannelConnected, gin.H{
		"connection_id": conn.ID(),
		"channels":      filter.Channels(),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
	if err := conn.Send(context.Background(), welcome); err != nil {
		h.logger.Warnf("Failed to queue welcome event: %v", err)
	}

	h.logger.Infof("SSE connection %s registered", conn.ID())
	if err := conn.Serve(); err != nil {
		h.logger.Infof("SSE connection %s ended: %v", conn.ID(), err)
		return
	}
	h.logger.Infof("SSE connection %s disconnected", conn.ID())
}

func (h *ServerSentEventHandler) GetConnections(c *gin.Context) {
	connections := h.hub.GetConnectionsByType("sse")
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
