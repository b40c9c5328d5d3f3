package core

import (
	"time"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

// CreateUserInput carries the fields for a new user. ID is required and
// supplied by the caller so the aggregate lines up with the auth
// layer's account record.
type CreateUserInput struct {
	ID      string
	Alias   string
	Profile model.Profile
}

// UpdateUserInput applies partial profile updates.
type UpdateUserInput struct {
	Alias    *string
	Name     *string
	Email    *string
	Location *string
	Website  *string
}

// CreateUser builds a new user aggregate. No permission check: user
// creation is driven by account signup, before any context exists.
func CreateUser(in CreateUserInput) (command.Outcome, error) {
	if in.ID == "" {
		return command.Outcome{}, model.NewCommandError("user id missing")
	}

	now := time.Now().UTC()
	u := &model.User{
		ID:      in.ID,
		Version: 0,
		Alias:   in.Alias,
		Profile: in.Profile,
		AddedBy: in.ID,
		AddedAt: now,
	}

	b := command.NewBatch(in.ID, model.TypeUser, u.ID)
	b.Add(EvUserCreated, map[string]interface{}{"user": command.ExportParam(u)})

	return command.Outcome{Save: u, PriorVersion: -1, Event: b.Build()}, nil
}

// UpdateUser applies field diffs in declared order: alias, then the
// profile fields name, email, location, website.
func UpdateUser(c *command.Context, u *model.User, in UpdateUserInput) (command.Outcome, error) {
	if err := command.RequireWrite(c, u); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, u); err != nil {
		return command.Outcome{}, err
	}

	prior := u.Version
	b := command.NewBatch(c.UserID, model.TypeUser, u.ID)

	command.ApplyString(b, EvUserAliasChanged, &u.Alias, in.Alias)
	command.ApplyString(b, EvUserNameChanged, &u.Profile.Name, in.Name)
	command.ApplyString(b, EvUserEmailChanged, &u.Profile.Email, in.Email)
	command.ApplyString(b, EvUserLocationChanged, &u.Profile.Location, in.Location)
	command.ApplyString(b, EvUserWebsiteChanged, &u.Profile.Website, in.Website)

	if !b.Empty() {
		now := time.Now().UTC()
		u.UpdatedBy = c.UserID
		u.UpdatedAt = &now
		u.BumpVersion()
	}
	return command.Outcome{Save: u, PriorVersion: prior, Event: b.Build()}, nil
}
