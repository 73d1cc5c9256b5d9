package sse

import "github.com/gin-gonic/gin"

// SSEHeadersMiddleware sets the response headers an event stream needs
// before the handler starts writing.
func SSEHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // nginx
		c.Next()
	}
}
