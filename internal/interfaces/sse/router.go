package sse

import (
	"github.com/gin-gonic/gin"

	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
)

func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(hubInstance, logger)

	// widget event stream, optionally filtered with ?channels=a,b
	rg.GET("/sse", SSEHeadersMiddleware(), sseHandler.Connect)

	apiGroup := rg.Group("/api/v1/sse")
	apiGroup.GET("/connections", sseHandler.GetConnections)
}
