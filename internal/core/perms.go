// Package core holds the pure command functions and permission
// resolvers for the catalog aggregates. Nothing in this package touches
// storage; every function computes an outcome from the loaded state and
// the command input alone.
package core

import (
	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

// ownerHolds reports whether the acting user holds the owner rights of
// an owner field: either directly, or through the owning organisation.
func ownerHolds(userID string, owner model.Owner, ownerOrg *model.Organisation) bool {
	if userID == "" {
		return false
	}
	if owner.User != "" && owner.User == userID {
		return true
	}
	if owner.Org != "" && ownerOrg != nil && ownerOrg.ID == owner.Org {
		return ownerOrg.IsOwner(userID)
	}
	return false
}

// ResolveWorkPerms computes the capability set for the context's user
// against one Work. ownerOrg must be the work's owning organisation
// when the work is org-owned, nil otherwise. Never fails: an unknown
// principal simply gets the public-read default.
func ResolveWorkPerms(c *command.Context, w *model.Work, ownerOrg *model.Organisation) command.PermissionSet {
	if ownerHolds(c.UserID, w.Owner, ownerOrg) {
		return command.PermissionSet{Read: true, Write: true, Admin: true}
	}
	return command.PermissionSet{Read: w.Public}
}

// ResolveMediaPerms mirrors ResolveWorkPerms for Media.
func ResolveMediaPerms(c *command.Context, m *model.Media, ownerOrg *model.Organisation) command.PermissionSet {
	if ownerHolds(c.UserID, m.Owner, ownerOrg) {
		return command.PermissionSet{Read: true, Write: true, Admin: true}
	}
	return command.PermissionSet{Read: m.Public}
}

// ResolveUserPerms grants write only to the user themself. Profiles are
// world-readable; there is no separate admin concept for users.
func ResolveUserPerms(c *command.Context, u *model.User) command.PermissionSet {
	if c.UserID != "" && c.UserID == u.ID {
		return command.PermissionSet{Read: true, Write: true}
	}
	return command.PermissionSet{Read: true}
}

// ResolveOrganisationPerms grants the full set to listed owners.
// Organisations are world-readable.
func ResolveOrganisationPerms(c *command.Context, o *model.Organisation) command.PermissionSet {
	if c.UserID != "" && o.IsOwner(c.UserID) {
		return command.PermissionSet{Read: true, Write: true, Admin: true}
	}
	return command.PermissionSet{Read: true}
}
