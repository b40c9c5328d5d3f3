// Package catalogservice boots the catalog HTTP service: store,
// command executor, event pipeline, and API router.
package catalogservice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediacatalog/catalog/internal/api"
	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/config"
	"github.com/mediacatalog/catalog/internal/eventlog"
	"github.com/mediacatalog/catalog/internal/events"
	"github.com/mediacatalog/catalog/internal/factory"
	"github.com/mediacatalog/catalog/internal/logger"
	"github.com/mediacatalog/catalog/internal/mirror"
	"github.com/mediacatalog/catalog/internal/services"
)

// Run starts the catalog service and blocks until shutdown or error.
func Run() error {
	log := logger.New("catalog-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("store unavailable")
		return err
	}

	exec := command.NewExecutor(st, log)

	// Event pipeline: executor appends to the log in the aggregate's
	// transaction; the publisher drains the log onto the bus; the
	// mirror derives cross-aggregate effects from bus notices. When a
	// standalone mirror worker is deployed, CATALOG_EMBEDDED_MIRROR
	// must be false so only one publisher polls the log.
	if cfg.EmbeddedMirror {
		bus := events.NewBus(cfg.EventBufferSize, log)
		mirror.New(st, exec, log).Start(bus)
		pub := eventlog.NewPublisher(st, bus, eventlog.Config{
			BatchSize: cfg.PublisherBatch,
			Interval:  time.Duration(cfg.PublisherIntervalSeconds) * time.Second,
		}, log)
		go func() { _ = bus.Run(ctx) }()
		go func() { _ = pub.Run(ctx) }()
	} else {
		log.Info().Msg("embedded mirror disabled, expecting external mirror worker")
	}

	svcs := services.New(services.Deps{Store: st, Exec: exec, Log: log})

	healthy := func() bool {
		p, ok := st.(interface{ HealthPing(context.Context) error })
		if !ok {
			return true
		}
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return p.HealthPing(probeCtx) == nil
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      api.NewRouter(svcs, healthy),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("server forced to shutdown")
			return err
		}
		log.Info().Msg("server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}
