package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"go-robot-dashboard/internal/application/relay"
	"go-robot-dashboard/internal/infrastructure/config"
	"go-robot-dashboard/internal/infrastructure/hub"
	"go-robot-dashboard/internal/infrastructure/logger"
	"go-robot-dashboard/internal/infrastructure/server"
	"go-robot-dashboard/internal/infrastructure/transport"
	"go-robot-dashboard/internal/realtime"
)

func main() {
	ctx := context.Background()
	sctx := WithSignal(ctx)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogrusLogger(cfg.Logger())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := realtime.NewMetrics(registry)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	hubInstance := hub.New(log)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "robodash",
		Subsystem: "hub",
		Name:      "widget_connections",
		Help:      "Widget connections attached to the hub",
	}, func() float64 { return float64(hubInstance.ConnectionCount()) }))

	if err := hubInstance.Start(ctx); err != nil {
		log.Errorf("failed to start hub: %v", err)
		return
	}

	binding := transport.NewWebSocketBinding(log)
	client, err := realtime.New(binding, cfg.Client(), metrics, log)
	if err != nil {
		log.Errorf("failed to create backend client: %v", err)
		return
	}

	relayInstance := relay.New(client, hubInstance, cfg.Relay.Channels, log)

	router := InitRouter(log, registry, hubInstance, client, relayInstance)
	httpSrv := server.NewHTTPServer(cfg.HTTP.Address, router, log)
	app := newApplication(log, httpSrv, hubInstance, client, relayInstance)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
	}
}

type Application struct {
	logger  logger.Logger
	httpSrv server.Server
	hub     *hub.Hub
	client  *realtime.Client
	relay   *relay.Relay
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
	client *realtime.Client,
	relayInstance *relay.Relay,
) *Application {
	return &Application{
		logger:  logger.WithField("app", "robot-dashboard"),
		httpSrv: httpSrv,
		hub:     hubInstance,
		client:  client,
		relay:   relayInstance,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		return app.relay.Run(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		// closing the client ends every relay subscription
		app.client.Close()

		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
