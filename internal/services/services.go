// Package services wires loads, permission resolution, and the command
// executor into the operations the API exposes. Each service method is
// thin glue: load the target, resolve the acting user's permissions,
// run the command, export the result with the resolved permissions
// attached.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
)

// Deps bundles what every service needs.
type Deps struct {
	Store store.Store
	Exec  *command.Executor
	Log   zerolog.Logger
}

// New builds the full service set on shared dependencies.
func New(d Deps) *Services {
	return &Services{
		Works:         &WorkService{d: d},
		Media:         &MediaService{d: d},
		Users:         &UserService{d: d},
		Organisations: &OrganisationService{d: d},
	}
}

// Services groups the per-aggregate services.
type Services struct {
	Works         *WorkService
	Media         *MediaService
	Users         *UserService
	Organisations *OrganisationService
}

func newContext(userID string, version *int64) *command.Context {
	c := command.NewContext(userID)
	if version != nil {
		c = c.WithVersion(*version)
	}
	return c
}

// loadOwnerOrg resolves the organisation referenced by an owner, if
// any. A dangling reference resolves to nil rather than failing the
// whole operation.
func loadOwnerOrg(ctx context.Context, st store.Store, owner model.Owner) (*model.Organisation, error) {
	if owner.Org == "" {
		return nil, nil
	}
	org, err := st.Organisations().FindByID(ctx, owner.Org)
	if err != nil {
		var nf *model.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

func requireRead(c *command.Context, aggregateID string) error {
	if !c.Perms(aggregateID).Read {
		return &model.PermissionError{UserID: c.UserID, ObjectID: aggregateID}
	}
	return nil
}
