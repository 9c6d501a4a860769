package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/notification-client/internal/pkg/application/dispatcher"
	"github.com/diwise/notification-client/internal/pkg/application/relay"
	"github.com/diwise/notification-client/internal/pkg/infrastructure/router"
	relayapi "github.com/diwise/notification-client/internal/pkg/presentation/api/relay-api"
	"github.com/diwise/notification-client/pkg/jsonapi/client"
	"github.com/diwise/notification-client/pkg/notifications"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const serviceName string = "notification-relay"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	flags := defaultFlags()

	ctx, log, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion, flags[logFormat])
	defer cleanup()

	flags = parseExternalConfig(ctx, flags)

	cfg, err := openConfigFiles(flags)
	if err != nil {
		log.Error("failed to open configuration files", "err", err.Error())
		os.Exit(1)
	}

	handler, shutdown, err := initialize(ctx, flags, cfg)
	if err != nil {
		log.Error("failed to initialize service", "err", err.Error())
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    net.JoinHostPort(flags[listenAddress], flags[servicePort]),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting to listen for connections", "port", flags[servicePort])

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to listen for connections", "err", err.Error())
	}
}

// initialize wires the relay and returns its http handler together with a
// function that drains the dispatcher queue.
func initialize(ctx context.Context, flags FlagMap, cfg *AppConfig) (http.Handler, func(), error) {
	defer cfg.Close()

	log := logging.GetFromContext(ctx)

	relayConfig, err := relay.LoadConfiguration(cfg.relayConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load relay configuration: %w", err)
	}

	c := client.NewClient(
		flags[serviceEndpoint],
		notifications.NewFactory(),
		client.APIKey(flags[serviceAPIKey]),
		client.Debug(flags[debugEnabled]),
	)

	d := dispatcher.New(64)
	if err = d.Start(); err != nil {
		return nil, nil, err
	}

	app := relay.New(relayConfig, notifications.NewService(c), d)

	r := router.New(serviceName)

	err = relayapi.RegisterHandlers(ctx, r, cfg.opaConfig, app)
	if err != nil {
		d.Stop()
		return nil, nil, err
	}

	log.Info("relay configured", "sites", len(relayConfig.Sites), "endpoint", flags[serviceEndpoint])

	return r, func() { d.Stop() }, nil
}
