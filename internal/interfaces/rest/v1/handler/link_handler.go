package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-robot-dashboard/internal/application/relay"
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/realtime"
)

// Link is the connection-level view of the backend client.
type Link interface {
	IsConnected() bool
	Address() string
	Channels() []string
	Disconnect()
	Reconnect()
}

// Dispatcher sends widget commands and reports the last link status.
type Dispatcher interface {
	Dispatch(channel string, payload any) error
	LastStatus() realtime.ConnectionStatus
}

type WidgetCounter interface {
	ConnectionCount() int
}

type LinkHandler struct {
	link       Link
	dispatcher Dispatcher
	widgets    WidgetCounter
	logger     logger.Logger
}

type CommandRequest struct {
	Data any `json:"data"`
}

type StatusResponse struct {
	Status    realtime.ConnectionStatus `json:"status"`
	Connected bool                      `json:"connected"`
	Address   string                    `json:"address"`
	Channels  []string                  `json:"channels"`
	Widgets   int                       `json:"widgets"`
}

func NewLinkHandler(link Link, dispatcher Dispatcher, widgets WidgetCounter, logger logger.Logger) *LinkHandler {
	return &LinkHandler{
		link:       link,
		dispatcher: dispatcher,
		widgets:    widgets,
		logger:     logger.WithField("handler", "link"),
	}
}

func (h *LinkHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:    h.dispatcher.LastStatus(),
		Connected: h.link.IsConnected(),
		Address:   h.link.Address(),
		Channels:  h.link.Channels(),
		Widgets:   h.widgets.ConnectionCount(),
	})
}

// SendCommand forwards the request body's data on the :channel outbound
// channel (message, save or load). Delivery is fire-and-forget.
func (h *LinkHandler) SendCommand(c *gin.Context) {
	channel := c.Param("channel")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Invalid command body for %s: %v", channel, err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid command format",
		})
		return
	}

	if err := h.dispatcher.Dispatch(channel, req.Data); err != nil {
		if errors.Is(err, relay.ErrUnknownCommand) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		h.logger.Errorf("Failed to dispatch %s: %v", channel, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to send command",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "queued",
		"channel":   channel,
		"connected": h.link.IsConnected(),
	})
}

func (h *LinkHandler) Disconnect(c *gin.Context) {
	h.link.Disconnect()
	c.JSON(http.StatusAccepted, gin.H{"status": "disconnecting"})
}

func (h *LinkHandler) Reconnect(c *gin.Context) {
	h.link.Reconnect()
	c.JSON(http.StatusAccepted, gin.H{"status": "reconnecting"})
}

// InitLinkRouter mounts the link API under rg.
func InitLinkRouter(h *LinkHandler, rg *gin.RouterGroup) {
	api := rg.Group("/api/v1")
	api.GET("/status", h.GetStatus)
	api.POST("/commands/:channel", h.SendCommand)
	api.POST("/connection/disconnect", h.Disconnect)
	api.POST("/connection/reconnect", h.Reconnect)
}
