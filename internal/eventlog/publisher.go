// Package eventlog moves appended event batches from the log onto the
// in-process transport. The log is written by the command executor in
// the same transaction as the aggregate; this worker is the only reader
// of the published flag.
package eventlog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediacatalog/catalog/internal/events"
	"github.com/mediacatalog/catalog/internal/store"
)

// Config controls batch size and polling cadence.
type Config struct {
	BatchSize int
	Interval  time.Duration
}

// Publisher polls the event log for unpublished batches and publishes
// each entry on the bus. Delivery is at-least-once: a crash after
// publish but before the mark re-delivers on restart, and subscribers
// are expected to tolerate repeats.
type Publisher struct {
	store store.Store
	bus   *events.Bus
	cfg   Config
	log   zerolog.Logger
}

// NewPublisher constructs a Publisher from dependencies.
func NewPublisher(st store.Store, bus *events.Bus, cfg Config, log zerolog.Logger) *Publisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Publisher{store: st, bus: bus, cfg: cfg, log: log}
}

// Run starts the polling loop until ctx is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.Info().Int("batch", p.cfg.BatchSize).Dur("interval", p.cfg.Interval).
		Msg("event publisher starting")
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("event publisher stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil {
				// Log and continue; the next tick retries from the log.
				p.log.Error().Err(err).Msg("event publish cycle failed")
			}
		}
	}
}

// ProcessOnce publishes one batch of unpublished log rows and returns
// how many batches it handled. A row is marked published only once the
// bus has accepted every entry in it; a dropped entry ends the cycle so
// the next poll retries that row and everything after it in log order.
// Subscribers may see the accepted prefix of such a row again.
func (p *Publisher) ProcessOnce(ctx context.Context) (int, error) {
	rows, err := p.store.Events().FetchUnpublished(ctx, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, row := range rows {
		if !p.publishRow(row) {
			p.log.Warn().Int64("seq", row.Seq).Msg("event bus full, deferring batch to next cycle")
			return handled, nil
		}
		if err := p.store.Events().MarkPublished(ctx, row.Seq); err != nil {
			p.log.Error().Err(err).Int64("seq", row.Seq).Msg("mark published failed")
			return handled, err
		}
		handled++
	}
	return handled, nil
}

func (p *Publisher) publishRow(row *store.StoredBatch) bool {
	for _, ev := range row.Batch.Events {
		ok := p.bus.Publish(events.Notice{
			Event:   ev.Name,
			User:    row.Batch.User,
			Date:    row.Batch.Date,
			Type:    row.Batch.Type,
			Object:  row.Batch.Object,
			Version: row.Batch.Version,
			Param:   ev.Param,
		})
		if !ok {
			return false
		}
	}
	return true
}
