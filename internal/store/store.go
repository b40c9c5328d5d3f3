// Package store defines the persistence contract for the catalog
// aggregates and the event log. Implementations live under
// internal/store/<driver>/ (postgres, sqlite, mem).
package store

import (
	"context"

	"github.com/mediacatalog/catalog/internal/model"
)

// Store exposes the persistence operations required by services and
// the command executor. The generic Insert/ConditionalSave/Remove
// methods dispatch on the aggregate's concrete type and, when an event
// batch is supplied, write it in the same transaction as the aggregate
// so a crash can never keep the state change but lose the event.
type Store interface {
	Works() Works
	Media() Media
	Users() Users
	Organisations() Organisations
	Events() Events

	Insert(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error
	ConditionalSave(ctx context.Context, agg model.Aggregate, expectedVersion int64, event *model.EventBatch) (int64, error)
	Remove(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error
	AppendEvent(ctx context.Context, event *model.EventBatch) error
}

// Works reads work aggregates. Absence is reported as a typed
// *model.NotFoundError, never as a nil result.
type Works interface {
	FindByID(ctx context.Context, id string) (*model.Work, error)
	FindByAlias(ctx context.Context, alias string) (*model.Work, error)
	ListByOwnerUser(ctx context.Context, userID string) ([]*model.Work, error)
	ListByOwnerOrg(ctx context.Context, orgID string) ([]*model.Work, error)
}

// Media reads media aggregates.
type Media interface {
	FindByID(ctx context.Context, id string) (*model.Media, error)
}

// Users reads user aggregates.
type Users interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByAlias(ctx context.Context, alias string) (*model.User, error)
}

// Organisations reads organisation aggregates.
type Organisations interface {
	FindByID(ctx context.Context, id string) (*model.Organisation, error)
	FindByAlias(ctx context.Context, alias string) (*model.Organisation, error)
}

// StoredBatch is an event batch with its log sequence number.
type StoredBatch struct {
	Seq   int64
	Batch model.EventBatch
}

// Events is the append-only event log. It doubles as the outbox the
// publisher worker drains: batches are appended unpublished and marked
// once every entry has been handed to the transport.
type Events interface {
	Append(ctx context.Context, b *model.EventBatch) error
	ListByObject(ctx context.Context, objectID string, limit int) ([]*model.EventBatch, error)

	// FetchUnpublished returns up to limit unpublished batches in append
	// order. A single publisher instance is assumed; there is no lease
	// or lock beyond the published flag.
	FetchUnpublished(ctx context.Context, limit int) ([]*StoredBatch, error)
	MarkPublished(ctx context.Context, seq int64) error
}
