package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacatalog/catalog/internal/model"
)

func TestAddWorkSource(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 1}
	c := writerContext("ann", w)

	out, err := AddWorkSource(c, w, SourceInput{SourceWork: "w-origin"})
	require.NoError(t, err)

	require.Len(t, w.Sources, 1)
	assert.NotEmpty(t, w.Sources[0].ID)
	assert.Equal(t, "w-origin", w.Sources[0].SourceWork)
	assert.Equal(t, "ann", w.Sources[0].AddedBy)
	assert.Equal(t, int64(2), w.Version)
	assert.Equal(t, int64(1), out.PriorVersion)

	require.Len(t, out.Event.Events, 1)
	assert.Equal(t, EvWorkSourceAdded, out.Event.Events[0].Name)
	src := out.Event.Events[0].Param["source"].(map[string]interface{})
	assert.Equal(t, "w-origin", src["sourceWork"])
}

func TestAddWorkSourceRejectsDuplicate(t *testing.T) {
	w := &model.Work{ID: "w-1", Sources: []model.Source{{ID: "s-1", SourceWork: "w-origin"}}}
	c := writerContext("ann", w)

	_, err := AddWorkSource(c, w, SourceInput{SourceWork: "w-origin"})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Len(t, w.Sources, 1)
}

func TestAddWorkSourceRequiresSourceWork(t *testing.T) {
	w := &model.Work{ID: "w-1"}
	_, err := AddWorkSource(writerContext("ann", w), w, SourceInput{})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestRemoveWorkSource(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 3, Sources: []model.Source{
		{ID: "s-1", SourceWork: "w-a"},
		{ID: "s-2", SourceWork: "w-b"},
	}}
	c := writerContext("ann", w)

	out, err := RemoveWorkSource(c, w, "s-1")
	require.NoError(t, err)

	require.Len(t, w.Sources, 1)
	assert.Equal(t, "s-2", w.Sources[0].ID)
	assert.Equal(t, int64(4), w.Version)

	// The event carries the removed child, not just its id.
	src := out.Event.Events[0].Param["source"].(map[string]interface{})
	assert.Equal(t, "s-1", src["id"])
	assert.Equal(t, "w-a", src["sourceWork"])
}

func TestRemoveWorkSourceUnknownID(t *testing.T) {
	w := &model.Work{ID: "w-1"}
	_, err := RemoveWorkSource(writerContext("ann", w), w, "nope")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRemoveAllWorkSources(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 1, Sources: []model.Source{
		{ID: "s-1", SourceWork: "w-a"},
		{ID: "s-2", SourceWork: "w-b"},
	}}
	out, err := RemoveAllWorkSources(ownerContext("ann", w), w)
	require.NoError(t, err)

	assert.Empty(t, w.Sources)
	assert.Equal(t, int64(2), w.Version)

	// One event per removed source, in list order.
	require.Len(t, out.Event.Events, 2)
	first := out.Event.Events[0].Param["source"].(map[string]interface{})
	second := out.Event.Events[1].Param["source"].(map[string]interface{})
	assert.Equal(t, "s-1", first["id"])
	assert.Equal(t, "s-2", second["id"])
}

func TestRemoveAllWorkSourcesEmptyIsNoOp(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 5}
	out, err := RemoveAllWorkSources(ownerContext("ann", w), w)
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, int64(5), w.Version)
}

func TestRemoveAllWorkSourcesRequiresAdmin(t *testing.T) {
	w := &model.Work{ID: "w-1", Sources: []model.Source{{ID: "s-1", SourceWork: "w-a"}}}
	_, err := RemoveAllWorkSources(writerContext("bob", w), w)
	var perm *model.PermissionError
	require.ErrorAs(t, err, &perm)
}

func TestAddWorkAnnotation(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 0}
	c := writerContext("ann", w)

	out, err := AddWorkAnnotation(c, w, AnnotationInput{
		Property: model.Property{"propertyName": "genre", "value": "jazz"},
		Score:    5,
	})
	require.NoError(t, err)

	require.Len(t, w.Annotations, 1)
	assert.NotEmpty(t, w.Annotations[0].ID)
	assert.Equal(t, 5, w.Annotations[0].Score)
	assert.Equal(t, int64(1), w.Version)

	require.Len(t, out.Event.Events, 1)
	assert.Equal(t, EvWorkAnnotationAdded, out.Event.Events[0].Name)
}

func TestAddWorkAnnotationValidatesProperty(t *testing.T) {
	w := &model.Work{ID: "w-1"}
	c := writerContext("ann", w)
	var cmdErr *model.CommandError

	_, err := AddWorkAnnotation(c, w, AnnotationInput{})
	require.ErrorAs(t, err, &cmdErr)

	_, err = AddWorkAnnotation(c, w, AnnotationInput{Property: model.Property{"value": "x"}})
	require.ErrorAs(t, err, &cmdErr)

	_, err = AddWorkAnnotation(c, w, AnnotationInput{Property: model.Property{"propertyName": "genre"}})
	require.ErrorAs(t, err, &cmdErr)
}

func TestRemoveWorkAnnotation(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 2, Annotations: []model.Annotation{
		{ID: "a-1", Property: model.Property{"propertyName": "genre", "value": "jazz"}},
	}}
	out, err := RemoveWorkAnnotation(writerContext("ann", w), w, "a-1")
	require.NoError(t, err)

	assert.Empty(t, w.Annotations)
	assert.Equal(t, int64(3), w.Version)
	ann := out.Event.Events[0].Param["annotation"].(map[string]interface{})
	assert.Equal(t, "a-1", ann["id"])
}

func TestRemoveWorkAnnotationUnknownID(t *testing.T) {
	w := &model.Work{ID: "w-1"}
	_, err := RemoveWorkAnnotation(writerContext("ann", w), w, "nope")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRemoveAllWorkAnnotations(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 0, Annotations: []model.Annotation{
		{ID: "a-1", Property: model.Property{"propertyName": "genre", "value": "jazz"}},
		{ID: "a-2", Property: model.Property{"propertyName": "year", "value": 1959}},
	}}
	out, err := RemoveAllWorkAnnotations(ownerContext("ann", w), w)
	require.NoError(t, err)

	assert.Empty(t, w.Annotations)
	assert.Equal(t, int64(1), w.Version)
	require.Len(t, out.Event.Events, 2)
	assert.Equal(t, EvWorkAnnotationRemoved, out.Event.Events[0].Name)
	assert.Equal(t, EvWorkAnnotationRemoved, out.Event.Events[1].Name)
}

func TestAddWorkMedia(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 1}
	out, err := AddWorkMedia(writerContext("ann", w), w, "m-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"m-1"}, w.Media)
	assert.Equal(t, int64(2), w.Version)
	require.Len(t, out.Event.Events, 1)
	assert.Equal(t, EvWorkMediaAdded, out.Event.Events[0].Name)
	assert.Equal(t, "m-1", out.Event.Events[0].Param["media_id"])
}

func TestAddWorkMediaRejectsDuplicate(t *testing.T) {
	w := &model.Work{ID: "w-1", Media: []string{"m-1"}}
	_, err := AddWorkMedia(writerContext("ann", w), w, "m-1")
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, []string{"m-1"}, w.Media)
}

func TestRemoveWorkMedia(t *testing.T) {
	w := &model.Work{ID: "w-1", Version: 2, Media: []string{"m-1", "m-2"}}
	out, err := RemoveWorkMedia(writerContext("ann", w), w, "m-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"m-2"}, w.Media)
	assert.Equal(t, int64(3), w.Version)
	assert.Equal(t, EvWorkMediaRemoved, out.Event.Events[0].Name)
}

func TestRemoveWorkMediaUnknownLink(t *testing.T) {
	w := &model.Work{ID: "w-1", Media: []string{"m-1"}}
	_, err := RemoveWorkMedia(writerContext("ann", w), w, "m-9")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestChildrenCommandsRequireWrite(t *testing.T) {
	w := &model.Work{ID: "w-1", Public: true}
	c := readerContext("bob", w)
	var perm *model.PermissionError

	_, err := AddWorkSource(c, w, SourceInput{SourceWork: "x"})
	require.ErrorAs(t, err, &perm)
	_, err = AddWorkAnnotation(c, w, AnnotationInput{Property: model.Property{"propertyName": "p", "value": 1}})
	require.ErrorAs(t, err, &perm)
	_, err = AddWorkMedia(c, w, "m-1")
	require.ErrorAs(t, err, &perm)
}
