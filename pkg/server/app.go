package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/econopulse/optionpulse/internal/handler/ws"
	"github.com/econopulse/optionpulse/internal/usecase"
	"github.com/econopulse/optionpulse/pkg/cache"
	pkgch "github.com/econopulse/optionpulse/pkg/clickhouse"
	"github.com/econopulse/optionpulse/pkg/config"
	xhttp "github.com/econopulse/optionpulse/pkg/http"
	pkgkafka "github.com/econopulse/optionpulse/pkg/kafka"
	applogger "github.com/econopulse/optionpulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	refresher  *usecase.Refresher
	recorder   *usecase.SnapshotRecorder
	consumer   *pkgkafka.Consumer
	hub        *ws.Hub
	chClient   *pkgch.Client
	cacheSvc   cache.Service
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. refresher, recorder,
// consumer, hub, chClient and cacheSvc are optional depending on config.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	refresher *usecase.Refresher,
	recorder *usecase.SnapshotRecorder,
	consumer *pkgkafka.Consumer,
	hub *ws.Hub,
	chClient *pkgch.Client,
	cacheSvc cache.Service,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		refresher: refresher,
		recorder:  recorder,
		consumer:  consumer,
		hub:       hub,
		chClient:  chClient,
		cacheSvc:  cacheSvc,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.refresher != nil && a.cfg.Refresh.Enabled {
		go a.refresher.Run(ctx)
		a.log.Info("snapshot refresher started",
			applogger.Duration("interval", a.cfg.Refresh.Interval))
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.Topic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.log.Warn("kafka consumer close error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
