package command

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mediacatalog/catalog/internal/model"
)

// Storage is the slice of the store the executor needs. The event batch
// is handed to the storage call so implementations can write aggregate
// and event in one transaction; the log table doubles as the outbox the
// publisher drains.
type Storage interface {
	// Insert persists a new aggregate. A duplicate unique key must come
	// back as a *model.DuplicateKeyError.
	Insert(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error

	// ConditionalSave persists an updated aggregate only if the stored
	// version still equals expectedVersion, returning the number of rows
	// affected. Zero rows means another writer won the race.
	ConditionalSave(ctx context.Context, agg model.Aggregate, expectedVersion int64, event *model.EventBatch) (int64, error)

	// Remove deletes the aggregate and appends its final event batch.
	Remove(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error

	// AppendEvent appends an event-only batch, with no aggregate write.
	// Used for mirrored events that record a fact without changing state.
	AppendEvent(ctx context.Context, event *model.EventBatch) error
}

// Func produces a command outcome. Implementations are pure: they never
// touch storage and only fail with the typed errors of the model package.
type Func func() (Outcome, error)

// Executor runs command functions and persists their outcomes.
type Executor struct {
	store Storage
	log   zerolog.Logger
}

// NewExecutor returns an executor backed by the given storage.
func NewExecutor(store Storage, log zerolog.Logger) *Executor {
	return &Executor{store: store, log: log}
}

// Execute invokes the command function and persists the outcome.
//
// Command errors propagate unchanged. A conditional save that affects
// zero rows becomes a ConflictError: the in-command version check only
// catches staleness known before this call began, the storage check
// catches staleness introduced concurrently during it.
func (x *Executor) Execute(ctx context.Context, fn Func) (model.Aggregate, error) {
	out, err := fn()
	if err != nil {
		return nil, err
	}

	switch {
	case out.Save != nil:
		agg := out.Save
		if out.Event != nil {
			out.Event.Version = agg.AggregateVersion()
		}
		if out.PriorVersion < 0 {
			if err := x.store.Insert(ctx, agg, out.Event); err != nil {
				return nil, err
			}
			x.log.Debug().Str("type", agg.AggregateType()).Str("id", agg.AggregateID()).
				Msg("aggregate created")
			return agg, nil
		}
		n, err := x.store.ConditionalSave(ctx, agg, out.PriorVersion, out.Event)
		if err != nil {
			return nil, err
		}
		if n != 1 {
			x.log.Debug().Str("type", agg.AggregateType()).Str("id", agg.AggregateID()).
				Int64("expected", out.PriorVersion).Msg("conditional save lost the race")
			return nil, &model.ConflictError{Type: agg.AggregateType(), ID: agg.AggregateID()}
		}
		return agg, nil

	case out.Remove != nil:
		agg := out.Remove
		if out.Event != nil {
			out.Event.Version = agg.AggregateVersion()
		}
		if err := x.store.Remove(ctx, agg, out.Event); err != nil {
			return nil, err
		}
		x.log.Debug().Str("type", agg.AggregateType()).Str("id", agg.AggregateID()).
			Msg("aggregate removed")
		return agg, nil
	}

	return nil, model.NewCommandError("command produced neither save nor remove")
}

// LogEvent appends an event-only batch for an aggregate whose state is
// not changed by it. The mirror uses this for derived facts that only
// belong in the target's event history.
func (x *Executor) LogEvent(ctx context.Context, batch *model.EventBatch) error {
	if batch == nil || len(batch.Events) == 0 {
		return nil
	}
	return x.store.AppendEvent(ctx, batch)
}
