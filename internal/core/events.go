package core

// Event names emitted by the command functions and the mirror. The
// mirror's handler table and the API's event history both key on these.
const (
	EvWorkCreated           = "core.work.created"
	EvWorkDeleted           = "core.work.deleted"
	EvWorkAliasChanged      = "core.work.alias.changed"
	EvWorkDescChanged       = "core.work.description.changed"
	EvWorkPublicChanged     = "core.work.public.changed"
	EvWorkSourceAdded       = "core.work.source.added"
	EvWorkSourceRemoved     = "core.work.source.removed"
	EvWorkAnnotationAdded   = "core.work.annotation.added"
	EvWorkAnnotationRemoved = "core.work.annotation.removed"
	EvWorkMediaAdded        = "core.work.media.added"
	EvWorkMediaRemoved      = "core.work.media.removed"

	EvMediaCreated     = "core.media.created"
	EvMediaDeleted     = "core.media.deleted"
	EvMediaWorkAdded   = "core.media.work.added"
	EvMediaWorkRemoved = "core.media.work.removed"
	EvMediaReplaced    = "core.media.replaced"

	EvUserCreated         = "core.user.created"
	EvUserAliasChanged    = "core.user.alias.changed"
	EvUserNameChanged     = "core.user.profile.name.changed"
	EvUserEmailChanged    = "core.user.profile.email.changed"
	EvUserLocationChanged = "core.user.profile.location.changed"
	EvUserWebsiteChanged  = "core.user.profile.website.changed"

	EvOrgCreated         = "core.org.created"
	EvOrgAliasChanged    = "core.org.alias.changed"
	EvOrgNameChanged     = "core.org.profile.name.changed"
	EvOrgEmailChanged    = "core.org.profile.email.changed"
	EvOrgLocationChanged = "core.org.profile.location.changed"
	EvOrgWebsiteChanged  = "core.org.profile.website.changed"
	EvOrgOwnerAdded      = "core.org.owner.added"
	EvOrgOwnerRemoved    = "core.org.owner.removed"
	EvOrgWorkCreated     = "core.org.work.created"
	EvOrgWorkDeleted     = "core.org.work.deleted"
)
