package services

import (
	"context"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/model"
)

// WorkService exposes the work aggregate operations.
type WorkService struct {
	d Deps
}

// WorkView is the export shape: the aggregate document plus the acting
// user's resolved permissions.
type WorkView struct {
	*model.Work
	Perms command.PermissionSet `json:"_perms"`
}

func (s *WorkService) view(c *command.Context, w *model.Work) *WorkView {
	return &WorkView{Work: w, Perms: c.Perms(w.ID)}
}

// load fetches the work and records the acting user's permissions on
// it, resolving the owning organisation when the work is org-owned.
func (s *WorkService) load(ctx context.Context, c *command.Context, id string) (*model.Work, error) {
	w, err := s.d.Store.Works().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org, err := loadOwnerOrg(ctx, s.d.Store, w.Owner)
	if err != nil {
		return nil, err
	}
	c.Grant(w.ID, core.ResolveWorkPerms(c, w, org))
	return w, nil
}

// Get returns the work if the acting user may read it.
func (s *WorkService) Get(ctx context.Context, userID, id string) (*WorkView, error) {
	c := newContext(userID, nil)
	w, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if err := requireRead(c, w.ID); err != nil {
		return nil, err
	}
	return s.view(c, w), nil
}

// GetByAlias resolves the alias and applies the same read check.
func (s *WorkService) GetByAlias(ctx context.Context, userID, alias string) (*WorkView, error) {
	w, err := s.d.Store.Works().FindByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, w.ID)
}

// ListByOwnerUser returns the owner's works the acting user may read.
func (s *WorkService) ListByOwnerUser(ctx context.Context, userID, ownerID string) ([]*WorkView, error) {
	works, err := s.d.Store.Works().ListByOwnerUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.filterReadable(ctx, userID, works)
}

// ListByOwnerOrg returns the organisation's works the acting user may
// read.
func (s *WorkService) ListByOwnerOrg(ctx context.Context, userID, orgID string) ([]*WorkView, error) {
	works, err := s.d.Store.Works().ListByOwnerOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.filterReadable(ctx, userID, works)
}

func (s *WorkService) filterReadable(ctx context.Context, userID string, works []*model.Work) ([]*WorkView, error) {
	c := newContext(userID, nil)
	out := []*WorkView{}
	for _, w := range works {
		org, err := loadOwnerOrg(ctx, s.d.Store, w.Owner)
		if err != nil {
			return nil, err
		}
		c.Grant(w.ID, core.ResolveWorkPerms(c, w, org))
		if c.Perms(w.ID).Read {
			out = append(out, s.view(c, w))
		}
	}
	return out, nil
}

// Create builds a new work. An org-owned create requires the acting
// user to be an owner of that organisation.
func (s *WorkService) Create(ctx context.Context, userID string, in core.CreateWorkInput) (*WorkView, error) {
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
	for _, mediaID := range in.Media {
		if _, err := s.d.Store.Media().FindByID(ctx, mediaID); err != nil {
			return nil, err
		}
	}
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.CreateWork(c, in)
	})
	if err != nil {
		return nil, err
	}
	w := agg.(*model.Work)
	c.Grant(w.ID, command.PermissionSet{Read: true, Write: true, Admin: true})
	return s.view(c, w), nil
}

// Update applies partial field changes.
func (s *WorkService) Update(ctx context.Context, userID, id string, version *int64, in core.UpdateWorkInput) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.UpdateWork(c, w, in)
	})
}

// Delete removes the work. Admin capability required.
func (s *WorkService) Delete(ctx context.Context, userID, id string, version *int64) error {
	c := newContext(userID, version)
	w, err := s.load(ctx, c, id)
	if err != nil {
		return err
	}
	_, err = s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.DeleteWork(c, w)
	})
	return err
}

// AddSource links another work as a source of this one.
func (s *WorkService) AddSource(ctx context.Context, userID, id string, version *int64, in core.SourceInput) (*WorkView, error) {
	if in.SourceWork != "" {
		if _, err := s.d.Store.Works().FindByID(ctx, in.SourceWork); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.AddWorkSource(c, w, in)
	})
}

// RemoveSource drops one source by its sub-entity id.
func (s *WorkService) RemoveSource(ctx context.Context, userID, id string, version *int64, sourceID string) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.RemoveWorkSource(c, w, sourceID)
	})
}

// RemoveAllSources drops every source. Admin capability required.
func (s *WorkService) RemoveAllSources(ctx context.Context, userID, id string, version *int64) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.RemoveAllWorkSources(c, w)
	})
}

// AddAnnotation attaches a scored property.
func (s *WorkService) AddAnnotation(ctx context.Context, userID, id string, version *int64, in core.AnnotationInput) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.AddWorkAnnotation(c, w, in)
	})
}

// RemoveAnnotation drops one annotation by its sub-entity id.
func (s *WorkService) RemoveAnnotation(ctx context.Context, userID, id string, version *int64, annotationID string) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.RemoveWorkAnnotation(c, w, annotationID)
	})
}

// RemoveAllAnnotations drops every annotation. Admin capability
// required.
func (s *WorkService) RemoveAllAnnotations(ctx context.Context, userID, id string, version *int64) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.RemoveAllWorkAnnotations(c, w)
	})
}

// AddMedia links an existing media aggregate to the work. The mirror
// derives the media-side back reference from the resulting event.
func (s *WorkService) AddMedia(ctx context.Context, userID, id string, version *int64, mediaID string) (*WorkView, error) {
	if _, err := s.d.Store.Media().FindByID(ctx, mediaID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.AddWorkMedia(c, w, mediaID)
	})
}

// RemoveMedia unlinks a media aggregate from the work.
func (s *WorkService) RemoveMedia(ctx context.Context, userID, id string, version *int64, mediaID string) (*WorkView, error) {
	return s.mutate(ctx, userID, id, version, func(c *command.Context, w *model.Work) (command.Outcome, error) {
		return core.RemoveWorkMedia(c, w, mediaID)
	})
}

// Events returns the work's event history in append order.
func (s *WorkService) Events(ctx context.Context, userID, id string, limit int) ([]*model.EventBatch, error) {
	c := newContext(userID, nil)
	w, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if err := requireRead(c, w.ID); err != nil {
		return nil, err
	}
	return s.d.Store.Events().ListByObject(ctx, w.ID, limit)
}

func (s *WorkService) mutate(ctx context.Context, userID, id string, version *int64, fn func(*command.Context, *model.Work) (command.Outcome, error)) (*WorkView, error) {
	c := newContext(userID, version)
	w, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return fn(c, w)
	})
	if err != nil {
		return nil, err
	}
	return s.view(c, agg.(*model.Work)), nil
}
