package services

import (
	"context"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/model"
)

// MediaService exposes the media aggregate operations.
type MediaService struct {
	d Deps
}

// MediaView is the export shape for media aggregates.
type MediaView struct {
	*model.Media
	Perms command.PermissionSet `json:"_perms"`
}

func (s *MediaService) view(c *command.Context, m *model.Media) *MediaView {
	return &MediaView{Media: m, Perms: c.Perms(m.ID)}
}

func (s *MediaService) load(ctx context.Context, c *command.Context, id string) (*model.Media, error) {
	m, err := s.d.Store.Media().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org, err := loadOwnerOrg(ctx, s.d.Store, m.Owner)
	if err != nil {
		return nil, err
	}
	c.Grant(m.ID, core.ResolveMediaPerms(c, m, org))
	return m, nil
}

// Get returns the media if the acting user may read it.
func (s *MediaService) Get(ctx context.Context, userID, id string) (*MediaView, error) {
	c := newContext(userID, nil)
	m, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if err := requireRead(c, m.ID); err != nil {
		return nil, err
	}
	return s.view(c, m), nil
}

// Create builds a new media aggregate. Replacing an existing media
// requires the replaced media to exist; the mirror flags it superseded
// from the resulting event.
func (s *MediaService) Create(ctx context.Context, userID string, in core.CreateMediaInput) (*MediaView, error) {
	c := newContext(userID, nil)
	if in.OwnerOrg != "" {
		org, err := s.d.Store.Organisations().FindByID(ctx, in.OwnerOrg)
		if err != nil {
			return nil, err
		}
		if !org.IsOwner(userID) {
			return nil, &model.PermissionError{UserID: userID, ObjectID: org.ID}
		}
	}
	if in.Replaces != "" {
		if _, err := s.d.Store.Media().FindByID(ctx, in.Replaces); err != nil {
			return nil, err
		}
	}
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.CreateMedia(c, in)
	})
	if err != nil {
		return nil, err
	}
	m := agg.(*model.Media)
	c.Grant(m.ID, command.PermissionSet{Read: true, Write: true, Admin: true})
	return s.view(c, m), nil
}

// Delete removes the media. Admin capability required.
func (s *MediaService) Delete(ctx context.Context, userID, id string, version *int64) error {
	c := newContext(userID, version)
	m, err := s.load(ctx, c, id)
	if err != nil {
		return err
	}
	_, err = s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.DeleteMedia(c, m)
	})
	return err
}

// Events returns the media's event history in append order.
func (s *MediaService) Events(ctx context.Context, userID, id string, limit int) ([]*model.EventBatch, error) {
	c := newContext(userID, nil)
	m, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if err := requireRead(c, m.ID); err != nil {
		return nil, err
	}
	return s.d.Store.Events().ListByObject(ctx, m.ID, limit)
}
