package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

func ownerContext(userID string, agg model.Aggregate) *command.Context {
	c := command.NewContext(userID)
	c.Grant(agg.AggregateID(), command.PermissionSet{Read: true, Write: true, Admin: true})
	return c
}

func writerContext(userID string, agg model.Aggregate) *command.Context {
	c := command.NewContext(userID)
	c.Grant(agg.AggregateID(), command.PermissionSet{Read: true, Write: true})
	return c
}

func readerContext(userID string, agg model.Aggregate) *command.Context {
	c := command.NewContext(userID)
	c.Grant(agg.AggregateID(), command.PermissionSet{Read: true})
	return c
}

func TestCreateWork(t *testing.T) {
	c := command.NewContext("ann")
	out, err := CreateWork(c, CreateWorkInput{Alias: "alpha", Description: "first"})
	require.NoError(t, err)

	w, ok := out.Save.(*model.Work)
	require.True(t, ok)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, int64(0), w.Version)
	assert.Equal(t, "ann", w.Owner.User)
	assert.Empty(t, w.Owner.Org)
	assert.False(t, w.Public)
	assert.Equal(t, "ann", w.AddedBy)
	assert.Equal(t, int64(-1), out.PriorVersion)

	require.NotNil(t, out.Event)
	require.Len(t, out.Event.Events, 1)
	assert.Equal(t, EvWorkCreated, out.Event.Events[0].Name)
	assert.Equal(t, model.TypeWork, out.Event.Type)
	assert.Equal(t, w.ID, out.Event.Object)
}

func TestCreateWorkOrgOwned(t *testing.T) {
	c := command.NewContext("ann")
	out, err := CreateWork(c, CreateWorkInput{OwnerOrg: "acme"})
	require.NoError(t, err)

	w := out.Save.(*model.Work)
	assert.Equal(t, "acme", w.Owner.Org)
	assert.Empty(t, w.Owner.User)

	// The created event carries the full document, so the mirror can
	// read the owning organisation from it.
	param := out.Event.Events[0].Param["work"].(map[string]interface{})
	owner := param["owner"].(map[string]interface{})
	assert.Equal(t, "acme", owner["org"])
}

func TestCreateWorkRequiresActingUser(t *testing.T) {
	_, err := CreateWork(command.NewContext(""), CreateWorkInput{})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestCreateWorkWithChildren(t *testing.T) {
	c := command.NewContext("ann")
	pub := true
	out, err := CreateWork(c, CreateWorkInput{
		Public:  &pub,
		Sources: []SourceInput{{SourceWork: "w-src"}},
		Annotations: []AnnotationInput{
			{Property: model.Property{"propertyName": "genre", "value": "jazz"}, Score: 3},
		},
		Media: []string{"m-1", "m-2"},
	})
	require.NoError(t, err)

	w := out.Save.(*model.Work)
	assert.True(t, w.Public)
	require.Len(t, w.Sources, 1)
	assert.NotEmpty(t, w.Sources[0].ID)
	assert.Equal(t, "w-src", w.Sources[0].SourceWork)
	require.Len(t, w.Annotations, 1)
	assert.Equal(t, 3, w.Annotations[0].Score)
	assert.Equal(t, []string{"m-1", "m-2"}, w.Media)

	// Creation is a single event regardless of embedded children.
	require.Len(t, out.Event.Events, 1)
}

func TestCreateWorkRejectsDuplicateChildren(t *testing.T) {
	c := command.NewContext("ann")

	_, err := CreateWork(c, CreateWorkInput{Media: []string{"m-1", "m-1"}})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)

	_, err = CreateWork(c, CreateWorkInput{Sources: []SourceInput{{SourceWork: "s"}, {SourceWork: "s"}}})
	require.ErrorAs(t, err, &cmdErr)
}

func TestUpdateWorkFieldDiffs(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 2, Alias: "old", Description: "keep"}
	c := writerContext("ann", w)

	alias := "new"
	pub := true
	out, err := UpdateWork(c, w, UpdateWorkInput{Alias: &alias, Public: &pub})
	require.NoError(t, err)

	assert.Equal(t, int64(3), w.Version)
	assert.Equal(t, int64(2), out.PriorVersion)
	assert.Equal(t, "new", w.Alias)
	assert.Equal(t, "keep", w.Description)
	assert.True(t, w.Public)
	assert.Equal(t, "ann", w.UpdatedBy)
	require.NotNil(t, w.UpdatedAt)

	// Declared field order: alias before public.
	require.Len(t, out.Event.Events, 2)
	assert.Equal(t, EvWorkAliasChanged, out.Event.Events[0].Name)
	assert.Equal(t, EvWorkPublicChanged, out.Event.Events[1].Name)
	assert.Equal(t, "old", out.Event.Events[0].Param["old"])
	assert.Equal(t, "new", out.Event.Events[0].Param["new"])
}

func TestUpdateWorkNoOp(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 2, Alias: "same"}
	c := writerContext("ann", w)

	same := "same"
	out, err := UpdateWork(c, w, UpdateWorkInput{Alias: &same})
	require.NoError(t, err)

	// No observed change: no event, no version bump.
	assert.Nil(t, out.Event)
	assert.Equal(t, int64(2), w.Version)
}

func TestUpdateWorkVersionBumpsOncePerCommand(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 0}
	c := writerContext("ann", w)

	alias := "a"
	desc := "d"
	pub := true
	out, err := UpdateWork(c, w, UpdateWorkInput{Alias: &alias, Description: &desc, Public: &pub})
	require.NoError(t, err)

	// Three events, one bump.
	require.Len(t, out.Event.Events, 3)
	assert.Equal(t, int64(1), w.Version)
}

func TestUpdateWorkRequiresWrite(t *testing.T) {
	w := &model.Work{ID: "w-1", Public: true}
	c := readerContext("bob", w)

	alias := "x"
	_, err := UpdateWork(c, w, UpdateWorkInput{Alias: &alias})
	var perm *model.PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, "bob", perm.UserID)
}

func TestUpdateWorkVersionConflict(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 5}
	c := writerContext("ann", w).WithVersion(4)

	alias := "x"
	_, err := UpdateWork(c, w, UpdateWorkInput{Alias: &alias})
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(5), w.Version)
}

func TestDeleteWorkRequiresAdmin(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 1}

	_, err := DeleteWork(writerContext("bob", w), w)
	var perm *model.PermissionError
	require.ErrorAs(t, err, &perm)

	out, err := DeleteWork(ownerContext("ann", w), w)
	require.NoError(t, err)
	assert.Same(t, w, out.Remove)
	assert.Nil(t, out.Save)
	require.NotNil(t, out.Event)
	assert.Equal(t, EvWorkDeleted, out.Event.Events[0].Name)
	// Deleting does not bump: the final event carries the last version.
	assert.Equal(t, int64(1), w.Version)
}

func TestResolveWorkPerms(t *testing.T) {
	owner := &model.Work{ID: "w-1", Owner: model.Owner{User: "ann"}}
	assert.Equal(t, command.PermissionSet{Read: true, Write: true, Admin: true},
		ResolveWorkPerms(command.NewContext("ann"), owner, nil))

	// Non-owner on a private work: nothing.
	assert.Equal(t, command.PermissionSet{},
		ResolveWorkPerms(command.NewContext("bob"), owner, nil))

	// Non-owner on a public work: read only.
	public := &model.Work{ID: "w-2", Owner: model.Owner{User: "ann"}, Public: true}
	assert.Equal(t, command.PermissionSet{Read: true},
		ResolveWorkPerms(command.NewContext("bob"), public, nil))

	// Org-owned: org owners hold the full set.
	org := &model.Organisation{ID: "acme", Owners: []string{"carol"}}
	orgWork := &model.Work{ID: "w-3", Owner: model.Owner{Org: "acme"}}
	assert.Equal(t, command.PermissionSet{Read: true, Write: true, Admin: true},
		ResolveWorkPerms(command.NewContext("carol"), orgWork, org))
	assert.Equal(t, command.PermissionSet{},
		ResolveWorkPerms(command.NewContext("bob"), orgWork, org))

	// Anonymous principal only ever reads public works.
	assert.Equal(t, command.PermissionSet{Read: true},
		ResolveWorkPerms(command.NewContext(""), public, nil))
	assert.Equal(t, command.PermissionSet{},
		ResolveWorkPerms(command.NewContext(""), owner, nil))
}
