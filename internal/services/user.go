package services

import (
	"context"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/model"
)

// UserService exposes the user aggregate operations.
type UserService struct {
	d Deps
}

// UserView is the export shape for user aggregates.
type UserView struct {
	*model.User
	Perms command.PermissionSet `json:"_perms"`
}

func (s *UserService) view(c *command.Context, u *model.User) *UserView {
	return &UserView{User: u, Perms: c.Perms(u.ID)}
}

func (s *UserService) load(ctx context.Context, c *command.Context, id string) (*model.User, error) {
	u, err := s.d.Store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Grant(u.ID, core.ResolveUserPerms(c, u))
	return u, nil
}

// Get returns the user. User profiles are world readable.
func (s *UserService) Get(ctx context.Context, userID, id string) (*UserView, error) {
	c := newContext(userID, nil)
	u, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	return s.view(c, u), nil
}

// GetByAlias resolves the alias.
func (s *UserService) GetByAlias(ctx context.Context, userID, alias string) (*UserView, error) {
	u, err := s.d.Store.Users().FindByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, u.ID)
}

// Create registers a new user. Signup driven: the created id is the
// acting identity, so there is no permission check.
func (s *UserService) Create(ctx context.Context, in core.CreateUserInput) (*UserView, error) {
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.CreateUser(in)
	})
	if err != nil {
		return nil, err
	}
	u := agg.(*model.User)
	c := newContext(u.ID, nil)
	c.Grant(u.ID, core.ResolveUserPerms(c, u))
	return s.view(c, u), nil
}

// Update applies partial profile changes. Only the user may update
// their own profile.
func (s *UserService) Update(ctx context.Context, userID, id string, version *int64, in core.UpdateUserInput) (*UserView, error) {
	c := newContext(userID, version)
	u, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	agg, err := s.d.Exec.Execute(ctx, func() (command.Outcome, error) {
		return core.UpdateUser(c, u, in)
	})
	if err != nil {
		return nil, err
	}
	return s.view(c, agg.(*model.User)), nil
}
