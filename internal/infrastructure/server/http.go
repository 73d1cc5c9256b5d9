package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-robot-dashboard/internal/infrastructure/logger"
)

type HTTPServer struct {
	addr    string
	handler http.Handler
	logger  logger.Logger

	mu  sync.Mutex
	srv *http.Server
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(addr string, handler http.Handler, logger logger.Logger) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		handler: handler,
		logger:  logger.WithField("component", "http"),
	}
}

// Start serves until Stop is called. Event streams stay open indefinitely,
// so no write timeout is set.
func (h *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              h.addr,
		Handler:           h.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	h.mu.Lock()
	h.srv = srv
	h.mu.Unlock()

	h.logger.Infof("Listening on %s", h.addr)

	var eg errgroup.Group
	eg.Go(func() error {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	h.logger.Info("Shutting down")
	return srv.Shutdown(ctx)
}
