package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

// CreateOrganisationInput carries the fields for a new organisation.
type CreateOrganisationInput struct {
	Alias   string
	Profile model.Profile
}

// UpdateOrganisationInput applies partial updates. Owners, when set,
// replaces the owner list; additions and removals are diffed into
// individual events.
type UpdateOrganisationInput struct {
	Alias    *string
	Name     *string
	Email    *string
	Location *string
	Website  *string
	Owners   *[]string
}

// CreateOrganisation builds a new organisation with the acting user as
// its first owner.
func CreateOrganisation(c *command.Context, in CreateOrganisationInput) (command.Outcome, error) {
	if c.UserID == "" {
		return command.Outcome{}, model.NewCommandError("acting user required to create an organisation")
	}

	now := time.Now().UTC()
	o := &model.Organisation{
		ID:      uuid.New().String(),
		Version: 0,
		Alias:   in.Alias,
		Profile: in.Profile,
		Owners:  []string{c.UserID},
		AddedBy: c.UserID,
		AddedAt: now,
	}

	b := command.NewBatch(c.UserID, model.TypeOrganisation, o.ID)
	b.Add(EvOrgCreated, map[string]interface{}{"organisation": command.ExportParam(o)})

	return command.Outcome{Save: o, PriorVersion: -1, Event: b.Build()}, nil
}

// UpdateOrganisation applies field diffs in declared order: alias,
// profile fields, then owner additions (input order) and removals
// (current list order). An organisation must keep at least one owner.
func UpdateOrganisation(c *command.Context, o *model.Organisation, in UpdateOrganisationInput) (command.Outcome, error) {
	if err := command.RequireWrite(c, o); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, o); err != nil {
		return command.Outcome{}, err
	}

	prior := o.Version
	b := command.NewBatch(c.UserID, model.TypeOrganisation, o.ID)

	command.ApplyString(b, EvOrgAliasChanged, &o.Alias, in.Alias)
	command.ApplyString(b, EvOrgNameChanged, &o.Profile.Name, in.Name)
	command.ApplyString(b, EvOrgEmailChanged, &o.Profile.Email, in.Email)
	command.ApplyString(b, EvOrgLocationChanged, &o.Profile.Location, in.Location)
	command.ApplyString(b, EvOrgWebsiteChanged, &o.Profile.Website, in.Website)

	if in.Owners != nil {
		if err := applyOwnerDiff(b, o, *in.Owners); err != nil {
			return command.Outcome{}, err
		}
	}

	if !b.Empty() {
		now := time.Now().UTC()
		o.UpdatedBy = c.UserID
		o.UpdatedAt = &now
		o.BumpVersion()
	}
	return command.Outcome{Save: o, PriorVersion: prior, Event: b.Build()}, nil
}

func applyOwnerDiff(b *command.Batch, o *model.Organisation, next []string) error {
	if len(next) == 0 {
		return model.NewCommandError("organisation must keep at least one owner")
	}

	nextSet := make(map[string]bool, len(next))
	for _, id := range next {
		if id == "" {
			return model.NewCommandError("owner id must not be empty")
		}
		if nextSet[id] {
			return model.NewCommandError("duplicate owner: %s", id)
		}
		nextSet[id] = true
	}

	currentSet := make(map[string]bool, len(o.Owners))
	for _, id := range o.Owners {
		currentSet[id] = true
	}

	for _, id := range next {
		if !currentSet[id] {
			b.Add(EvOrgOwnerAdded, map[string]interface{}{"user_id": id})
		}
	}
	for _, id := range o.Owners {
		if !nextSet[id] {
			b.Add(EvOrgOwnerRemoved, map[string]interface{}{"user_id": id})
		}
	}

	o.Owners = append([]string(nil), next...)
	return nil
}
