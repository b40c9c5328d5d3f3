package services

import (
	"context"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/model"
)

// OrganisationService exposes the organisation aggregate operations.
type OrganisationService struct {
	d Deps
}

// OrganisationView is the export shape for organisation aggregates.
type OrganisationView struct {
	*model.Organisation
	Perms command.PermissionSet `json:"_perms"`
}

func (s *OrganisationService) view(c *command.Context, o *model.Organisation) *OrganisationView {
	return &OrganisationView{Organisation: o, Perms: c.Perms(o.ID)}
}

func (s *OrganisationService) load(ctx context.Context, c *command.Context, id string) (*model.Organisation, error) {
	o, err := s.d.Store.Organisations().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Grant(o.ID, core.ResolveOrganisationPerms(c, o))
	return o, nil
}

// Get returns the organisation. Profiles are world readable.
func (s *OrganisationService) Get(ctx context.Context, userID, id string) (*OrganisationView, error) {
	c := newContext(userID, nil)
	o, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	return s.view(c, o), nil
}

// GetByAlias resolves the alias.
func (s *OrganisationService) GetByAlias(ctx context.Context, userID, alias string) (*OrganisationView, error) {
	o, err := s.d.Store.Organisations().FindByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, o.ID)
}

// Create builds a new organisation with the acting user as first owner.
func (s *OrganisationService) Create(ctx context.Context, userID string, in core.CreateOrganisationInput) (*OrganisationView, error) {
	c := newContext(userID, nil)
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.CreateOrganisation(c, in)
	})
	if err != nil {
		return nil, err
	}
	o := agg.(*model.Organisation)
	c.Grant(o.ID, command.PermissionSet{Read: true, Write: true, Admin: true})
	return s.view(c, o), nil
}

// Update applies partial profile and owner-list changes. Owners only.
func (s *OrganisationService) Update(ctx context.Context, userID, id string, version *int64, in core.UpdateOrganisationInput) (*OrganisationView, error) {
	c := newContext(userID, version)
	o, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if in.Owners != nil {
		for _, ownerID := range *in.Owners {
			if _, err := s.d.Store.Users().FindByID(ctx, ownerID); err != nil {
				return nil, err
			}
		}
	}
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.UpdateOrganisation(c, o, in)
	})
	if err != nil {
		return nil, err
	}
	return s.view(c, agg.(*model.Organisation)), nil
}

// Events returns the organisation's event history, including mirrored
// work lifecycle entries.
func (s *OrganisationService) Events(ctx context.Context, userID, id string, limit int) ([]*model.EventBatch, error) {
	o, err := s.d.Store.Organisations().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.d.Store.Events().ListByObject(ctx, o.ID, limit)
}
