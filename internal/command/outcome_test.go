package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacatalog/catalog/internal/model"
)

func TestApplyString(t *testing.T) {
	b := NewBatch("ann", model.TypeWork, "w-1")
	field := "old-alias"

	// nil input leaves the field alone
	assert.False(t, ApplyString(b, "core.work.alias.changed", &field, nil))
	assert.Equal(t, "old-alias", field)
	assert.True(t, b.Empty())

	// same value records nothing
	same := "old-alias"
	assert.False(t, ApplyString(b, "core.work.alias.changed", &field, &same))
	assert.True(t, b.Empty())

	// change records old and new
	next := "new-alias"
	assert.True(t, ApplyString(b, "core.work.alias.changed", &field, &next))
	assert.Equal(t, "new-alias", field)
	require.Equal(t, 1, b.Len())

	batch := b.Build()
	require.NotNil(t, batch)
	assert.Equal(t, "core.work.alias.changed", batch.Events[0].Name)
	assert.Equal(t, "old-alias", batch.Events[0].Param["old"])
	assert.Equal(t, "new-alias", batch.Events[0].Param["new"])

	// pointer to the zero value clears the field
	empty := ""
	assert.True(t, ApplyString(b, "core.work.alias.changed", &field, &empty))
	assert.Equal(t, "", field)
}

func TestApplyBool(t *testing.T) {
	b := NewBatch("ann", model.TypeWork, "w-1")
	field := false

	assert.False(t, ApplyBool(b, "core.work.public.changed", &field, nil))

	yes := true
	assert.True(t, ApplyBool(b, "core.work.public.changed", &field, &yes))
	assert.True(t, field)
	require.Equal(t, 1, b.Len())
	batch := b.Build()
	assert.Equal(t, false, batch.Events[0].Param["old"])
	assert.Equal(t, true, batch.Events[0].Param["new"])
}

func TestBatchBuildEmptyIsNil(t *testing.T) {
	b := NewBatch("ann", model.TypeWork, "w-1")
	assert.Nil(t, b.Build())
}

func TestCheckVersion(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 4}

	// no expected version, no check
	require.NoError(t, CheckVersion(NewContext("ann"), w))

	require.NoError(t, CheckVersion(NewContext("ann").WithVersion(4), w))

	err := CheckVersion(NewContext("ann").WithVersion(3), w)
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "w-1", conflict.ID)
}

func TestContextPerms(t *testing.T) {
	c := NewContext("ann")

	// unknown object yields the zero set
	assert.Equal(t, PermissionSet{}, c.Perms("w-1"))

	c.Grant("w-1", PermissionSet{Read: true, Write: true})
	assert.True(t, c.Perms("w-1").Write)
	assert.False(t, c.Perms("w-1").Admin)

	require.NoError(t, RequireWrite(c, &model.Work{ID: "w-1"}))
	err := RequireAdmin(c, &model.Work{ID: "w-1"})
	var perm *model.PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, "ann", perm.UserID)
}

func TestExportParam(t *testing.T) {
	w := &model.Work{ID: "w-1", Alias: "alpha", Public: true}
	m := ExportParam(w)
	require.NotNil(t, m)
	assert.Equal(t, "w-1", m["id"])
	assert.Equal(t, "alpha", m["alias"])
	assert.Equal(t, true, m["public"])
}
