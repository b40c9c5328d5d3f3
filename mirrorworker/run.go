// Package mirrorworker runs the event publisher and mirror as a
// standalone process, for deployments that keep cross-aggregate
// propagation out of the API service.
package mirrorworker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/config"
	"github.com/mediacatalog/catalog/internal/eventlog"
	"github.com/mediacatalog/catalog/internal/events"
	"github.com/mediacatalog/catalog/internal/factory"
	"github.com/mediacatalog/catalog/internal/logger"
	"github.com/mediacatalog/catalog/internal/mirror"
)

// Run starts the mirror worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("mirror-worker")

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
	bus := events.NewBus(cfg.EventBufferSize, log)
	mirror.New(st, exec, log).Start(bus)

	pub := eventlog.NewPublisher(st, bus, eventlog.Config{
		BatchSize: cfg.PublisherBatch,
		Interval:  time.Duration(cfg.PublisherIntervalSeconds) * time.Second,
	}, log)

	go func() { _ = bus.Run(ctx) }()

	if err := pub.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Stack().Err(err).Msg("mirror worker exit")
		return err
	}
	return nil
}
