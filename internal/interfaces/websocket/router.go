package websocket

import (
	"github.com/gin-gonic/gin"

	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
)

// InitWebSocketRouter registers the widget websocket endpoint. Frames widgets
// write are passed to inbound.
func InitWebSocketRouter(logger logger.Logger, hubInstance *hub.Hub, inbound hub.InboundHandler, rg *gin.RouterGroup) {
	wsHandler := NewWebSocketHandler(hubInstance, inbound, logger)

	rg.GET("/ws", wsHandler.Connect)

	apiGroup := rg.Group("/api/v1/ws")
	apiGroup.GET("/connections", wsHandler.GetConnections)
}
