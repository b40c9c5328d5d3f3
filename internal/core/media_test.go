package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

func TestCreateMedia(t *testing.T) {
	c := command.NewContext("ann")
	out, err := CreateMedia(c, CreateMediaInput{
		Replaces: "m-old",
		Metadata: map[string]interface{}{"format": "flac", "bitrate": 1411},
	})
	require.NoError(t, err)

	m, ok := out.Save.(*model.Media)
	require.True(t, ok)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, int64(0), m.Version)
	assert.Equal(t, "ann", m.Owner.User)
	assert.Equal(t, "m-old", m.Replaces)
	assert.Equal(t, "flac", m.Metadata["format"])
	assert.Equal(t, int64(-1), out.PriorVersion)

	require.Len(t, out.Event.Events, 1)
	assert.Equal(t, EvMediaCreated, out.Event.Events[0].Name)
	assert.Equal(t, model.TypeMedia, out.Event.Type)

	// The mirror reads replaces out of the created event payload.
	doc := out.Event.Events[0].Param["media"].(map[string]interface{})
	assert.Equal(t, "m-old", doc["replaces"])
}

func TestCreateMediaOrgOwned(t *testing.T) {
	out, err := CreateMedia(command.NewContext("ann"), CreateMediaInput{OwnerOrg: "acme"})
	require.NoError(t, err)
	m := out.Save.(*model.Media)
	assert.Equal(t, "acme", m.Owner.Org)
	assert.Empty(t, m.Owner.User)
}

func TestCreateMediaRequiresActingUser(t *testing.T) {
	_, err := CreateMedia(command.NewContext(""), CreateMediaInput{})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestDeleteMediaRequiresAdmin(t *testing.T) {
	m := &model.Media{ID: "m-1", Version: 2}

	_, err := DeleteMedia(writerContext("bob", m), m)
	var perm *model.PermissionError
	require.ErrorAs(t, err, &perm)

	out, err := DeleteMedia(ownerContext("ann", m), m)
	require.NoError(t, err)
	assert.Same(t, m, out.Remove)
	assert.Equal(t, EvMediaDeleted, out.Event.Events[0].Name)
	assert.Equal(t, int64(2), m.Version)
}

func TestAddMediaWorkRef(t *testing.T) {
	m := &model.Media{ID: "m-1", Version: 4}

	out, err := AddMediaWorkRef("ann", m, "w-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"w-1"}, m.Works)
	assert.Equal(t, int64(5), m.Version)
	require.Len(t, out.Event.Events, 1)
	assert.Equal(t, EvMediaWorkAdded, out.Event.Events[0].Name)
	assert.Equal(t, "w-1", out.Event.Events[0].Param["work_id"])

	// Redelivery of the same effect is a no-op with no event.
	out, err = AddMediaWorkRef("ann", m, "w-1")
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, []string{"w-1"}, m.Works)
	assert.Equal(t, int64(5), m.Version)
}

func TestRemoveMediaWorkRef(t *testing.T) {
	m := &model.Media{ID: "m-1", Version: 1, Works: []string{"w-1", "w-2"}}

	out, err := RemoveMediaWorkRef("ann", m, "w-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"w-2"}, m.Works)
	assert.Equal(t, int64(2), m.Version)
	assert.Equal(t, EvMediaWorkRemoved, out.Event.Events[0].Name)

	// Removing a reference that is already gone changes nothing.
	out, err = RemoveMediaWorkRef("ann", m, "w-1")
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, int64(2), m.Version)
}

func TestFlagMediaReplaced(t *testing.T) {
	m := &model.Media{ID: "m-old", Version: 0}

	out, err := FlagMediaReplaced("ann", m, "m-new")
	require.NoError(t, err)
	assert.Equal(t, "m-new", m.ReplacedBy)
	assert.Equal(t, int64(1), m.Version)
	assert.Equal(t, EvMediaReplaced, out.Event.Events[0].Name)
	assert.Equal(t, "m-new", out.Event.Events[0].Param["new_media_id"])

	out, err = FlagMediaReplaced("ann", m, "m-new")
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, int64(1), m.Version)
}

func TestFlagMediaReplacedRequiresID(t *testing.T) {
	m := &model.Media{ID: "m-old"}
	_, err := FlagMediaReplaced("ann", m, "")
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestResolveMediaPerms(t *testing.T) {
	m := &model.Media{ID: "m-1", Owner: model.Owner{User: "ann"}}
	assert.Equal(t, command.PermissionSet{Read: true, Write: true, Admin: true},
		ResolveMediaPerms(command.NewContext("ann"), m, nil))
	assert.Equal(t, command.PermissionSet{},
		ResolveMediaPerms(command.NewContext("bob"), m, nil))

	public := &model.Media{ID: "m-2", Owner: model.Owner{User: "ann"}, Public: true}
	assert.Equal(t, command.PermissionSet{Read: true},
		ResolveMediaPerms(command.NewContext("bob"), public, nil))
}
