package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-robot-dashboard/internal/application/relay"
	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/interfaces/rest/v1/handler"
	"go-robot-dashboard/internal/interfaces/sse"
	"go-robot-dashboard/internal/interfaces/websocket"
	"go-robot-dashboard/internal/realtime"
)

func InitRouter(
	log logger.Logger,
	registry *prometheus.Registry,
	hubInstance *hub.Hub,
	client *realtime.Client,
	relayInstance *relay.Relay,
) http.Handler {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	rootGroup.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"hub_running":       hubInstance.IsRunning(),
			"widgets":           hubInstance.ConnectionCount(),
			"backend":           client.Address(),
			"backend_connected": client.IsConnected(),
		})
	})

	rootGroup.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)))

	linkHandler := handler.NewLinkHandler(client, relayInstance, hubInstance, log)
	handler.InitLinkRouter(linkHandler, rootGroup)

	sse.InitSSERouter(log, hubInstance, rootGroup)
	websocket.InitWebSocketRouter(log, hubInstance, relayInstance.HandleWidgetFrame, rootGroup)

	return router
}
