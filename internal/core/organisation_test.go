package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

func TestCreateOrganisation(t *testing.T) {
	out, err := CreateOrganisation(command.NewContext("ann"), CreateOrganisationInput{
		Alias:   "acme",
		Profile: model.Profile{Name: "Acme Records"},
	})
	require.NoError(t, err)

	o, ok := out.Save.(*model.Organisation)
	require.True(t, ok)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, int64(0), o.Version)
	assert.Equal(t, "acme", o.Alias)
	assert.Equal(t, []string{"ann"}, o.Owners)
	assert.Equal(t, int64(-1), out.PriorVersion)
	assert.Equal(t, EvOrgCreated, out.Event.Events[0].Name)
}

func TestCreateOrganisationRequiresActingUser(t *testing.T) {
	_, err := CreateOrganisation(command.NewContext(""), CreateOrganisationInput{})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestUpdateOrganisationFieldDiffs(t *testing.T) {
	o := &model.Organisation{ID: "org-1", Version: 1, Alias: "old", Owners: []string{"ann"}}
	c := writerContext("ann", o)

	alias := "new"
	name := "Acme"
	out, err := UpdateOrganisation(c, o, UpdateOrganisationInput{Alias: &alias, Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "new", o.Alias)
	assert.Equal(t, "Acme", o.Profile.Name)
	assert.Equal(t, int64(2), o.Version)
	require.Len(t, out.Event.Events, 2)
	assert.Equal(t, EvOrgAliasChanged, out.Event.Events[0].Name)
	assert.Equal(t, EvOrgNameChanged, out.Event.Events[1].Name)
}

func TestUpdateOrganisationOwnerDiff(t *testing.T) {
	o := &model.Organisation{ID: "org-1", Version: 0, Owners: []string{"ann", "bob"}}
	c := writerContext("ann", o)

	owners := []string{"ann", "carol", "dave"}
	out, err := UpdateOrganisation(c, o, UpdateOrganisationInput{Owners: &owners})
	require.NoError(t, err)

	assert.Equal(t, []string{"ann", "carol", "dave"}, o.Owners)
	assert.Equal(t, int64(1), o.Version)

	// Additions in input order, then removals in prior list order.
	require.Len(t, out.Event.Events, 3)
	assert.Equal(t, EvOrgOwnerAdded, out.Event.Events[0].Name)
	assert.Equal(t, "carol", out.Event.Events[0].Param["user_id"])
	assert.Equal(t, EvOrgOwnerAdded, out.Event.Events[1].Name)
	assert.Equal(t, "dave", out.Event.Events[1].Param["user_id"])
	assert.Equal(t, EvOrgOwnerRemoved, out.Event.Events[2].Name)
	assert.Equal(t, "bob", out.Event.Events[2].Param["user_id"])
}

func TestUpdateOrganisationOwnerListSameIsNoOp(t *testing.T) {
	o := &model.Organisation{ID: "org-1", Version: 2, Owners: []string{"ann", "bob"}}
	owners := []string{"ann", "bob"}
	out, err := UpdateOrganisation(writerContext("ann", o), o, UpdateOrganisationInput{Owners: &owners})
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, int64(2), o.Version)
}

func TestUpdateOrganisationOwnerValidation(t *testing.T) {
	var cmdErr *model.CommandError

	o := &model.Organisation{ID: "org-1", Owners: []string{"ann"}}
	empty := []string{}
	_, err := UpdateOrganisation(writerContext("ann", o), o, UpdateOrganisationInput{Owners: &empty})
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, []string{"ann"}, o.Owners)

	dup := []string{"ann", "ann"}
	_, err = UpdateOrganisation(writerContext("ann", o), o, UpdateOrganisationInput{Owners: &dup})
	require.ErrorAs(t, err, &cmdErr)

	blank := []string{"ann", ""}
	_, err = UpdateOrganisation(writerContext("ann", o), o, UpdateOrganisationInput{Owners: &blank})
	require.ErrorAs(t, err, &cmdErr)
}

func TestUpdateOrganisationRequiresWrite(t *testing.T) {
	o := &model.Organisation{ID: "org-1", Owners: []string{"ann"}}
	c := command.NewContext("bob")
	c.Grant(o.ID, ResolveOrganisationPerms(c, o))

	alias := "x"
	_, err := UpdateOrganisation(c, o, UpdateOrganisationInput{Alias: &alias})
	var perm *model.PermissionError
	require.ErrorAs(t, err, &perm)
}

func TestResolveOrganisationPerms(t *testing.T) {
	o := &model.Organisation{ID: "org-1", Owners: []string{"ann"}}

	assert.Equal(t, command.PermissionSet{Read: true, Write: true, Admin: true},
		ResolveOrganisationPerms(command.NewContext("ann"), o))
	assert.Equal(t, command.PermissionSet{Read: true},
		ResolveOrganisationPerms(command.NewContext("bob"), o))
	assert.Equal(t, command.PermissionSet{Read: true},
		ResolveOrganisationPerms(command.NewContext(""), o))
}
