package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

// CreateWorkInput carries the caller-supplied fields for a new work.
type CreateWorkInput struct {
	OwnerOrg    string
	Alias       string
	Description string
	Public      *bool
	ForkFrom    string
	Annotations []AnnotationInput
	Sources     []SourceInput
	Media       []string
}

// AnnotationInput is the payload for adding one annotation.
type AnnotationInput struct {
	Property model.Property
	Score    int
}

// SourceInput is the payload for adding one source reference.
type SourceInput struct {
	SourceWork string
}

// UpdateWorkInput applies partial field updates. A nil pointer leaves
// the field unchanged; a pointer to the zero value clears it.
type UpdateWorkInput struct {
	Alias       *string
	Description *string
	Public      *bool
}

// CreateWork builds a new private work owned by the acting user, or by
// the organisation named in OwnerOrg. Version starts at zero.
func CreateWork(c *command.Context, in CreateWorkInput) (command.Outcome, error) {
	if c.UserID == "" {
		return command.Outcome{}, model.NewCommandError("acting user required to create a work")
	}

	now := time.Now().UTC()
	w := &model.Work{
		ID:          uuid.New().String(),
		Version:     0,
		Alias:       in.Alias,
		Description: in.Description,
		ForkedFrom:  in.ForkFrom,
		AddedBy:     c.UserID,
		AddedAt:     now,
		UpdatedBy:   c.UserID,
	}
	if in.OwnerOrg != "" {
		w.Owner = model.Owner{Org: in.OwnerOrg}
	} else {
		w.Owner = model.Owner{User: c.UserID}
	}
	if in.Public != nil {
		w.Public = *in.Public
	}
	for _, m := range in.Media {
		if m == "" {
			return command.Outcome{}, model.NewCommandError("media id must not be empty")
		}
		if w.HasMedia(m) {
			return command.Outcome{}, model.NewCommandError("duplicate media reference: %s", m)
		}
		w.Media = append(w.Media, m)
	}
	for _, s := range in.Sources {
		src, err := newSource(c.UserID, now, s)
		if err != nil {
			return command.Outcome{}, err
		}
		if hasSourceWork(w, src.SourceWork) {
			return command.Outcome{}, model.NewCommandError("duplicate source work: %s", src.SourceWork)
		}
		w.Sources = append(w.Sources, src)
	}
	for _, a := range in.Annotations {
		ann, err := newAnnotation(c.UserID, now, a)
		if err != nil {
			return command.Outcome{}, err
		}
		w.Annotations = append(w.Annotations, ann)
	}

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkCreated, map[string]interface{}{"work": command.ExportParam(w)})

	return command.Outcome{Save: w, PriorVersion: -1, Event: b.Build()}, nil
}

// UpdateWork applies field-level diffs in declared order: alias,
// description, public. A no-op update keeps the version and produces no
// event.
func UpdateWork(c *command.Context, w *model.Work, in UpdateWorkInput) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	prior := w.Version
	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)

	command.ApplyString(b, EvWorkAliasChanged, &w.Alias, in.Alias)
	command.ApplyString(b, EvWorkDescChanged, &w.Description, in.Description)
	command.ApplyBool(b, EvWorkPublicChanged, &w.Public, in.Public)

	if !b.Empty() {
		touchWork(c, w)
	}
	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// DeleteWork removes the work. Requires admin capability.
func DeleteWork(c *command.Context, w *model.Work) (command.Outcome, error) {
	if err := command.RequireAdmin(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkDeleted, map[string]interface{}{"work": command.ExportParam(w)})

	return command.Outcome{Remove: w, PriorVersion: w.Version, Event: b.Build()}, nil
}

// AddWorkSource appends a source reference. The sub-id is assigned here
// so the event carries the complete child entity.
func AddWorkSource(c *command.Context, w *model.Work, in SourceInput) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	src, err := newSource(c.UserID, time.Now().UTC(), in)
	if err != nil {
		return command.Outcome{}, err
	}
	if hasSourceWork(w, src.SourceWork) {
		return command.Outcome{}, model.NewCommandError("duplicate source work: %s", src.SourceWork)
	}

	prior := w.Version
	w.Sources = append(w.Sources, src)
	touchWork(c, w)

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkSourceAdded, map[string]interface{}{"source": command.ExportParam(src)})

	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// RemoveWorkSource removes one source reference by its sub-id.
func RemoveWorkSource(c *command.Context, w *model.Work, sourceID string) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	src := w.FindSource(sourceID)
	if src == nil {
		return command.Outcome{}, model.NewSourceNotFound(sourceID)
	}
	removed := *src

	prior := w.Version
	w.Sources = deleteSource(w.Sources, sourceID)
	touchWork(c, w)

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkSourceRemoved, map[string]interface{}{"source": command.ExportParam(removed)})

	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// RemoveAllWorkSources clears the source list, emitting one event per
// removed source in list order. Requires admin capability. Clearing an
// already empty list is a no-op.
func RemoveAllWorkSources(c *command.Context, w *model.Work) (command.Outcome, error) {
	if err := command.RequireAdmin(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	prior := w.Version
	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	for _, src := range w.Sources {
		b.Add(EvWorkSourceRemoved, map[string]interface{}{"source": command.ExportParam(src)})
	}
	if !b.Empty() {
		w.Sources = nil
		touchWork(c, w)
	}
	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// AddWorkAnnotation appends an annotation to the work.
func AddWorkAnnotation(c *command.Context, w *model.Work, in AnnotationInput) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	ann, err := newAnnotation(c.UserID, time.Now().UTC(), in)
	if err != nil {
		return command.Outcome{}, err
	}

	prior := w.Version
	w.Annotations = append(w.Annotations, ann)
	touchWork(c, w)

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkAnnotationAdded, map[string]interface{}{"annotation": command.ExportParam(ann)})

	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// RemoveWorkAnnotation removes one annotation by its sub-id.
func RemoveWorkAnnotation(c *command.Context, w *model.Work, annotationID string) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	ann := w.FindAnnotation(annotationID)
	if ann == nil {
		return command.Outcome{}, model.NewAnnotationNotFound(annotationID)
	}
	removed := *ann

	prior := w.Version
	w.Annotations = deleteAnnotation(w.Annotations, annotationID)
	touchWork(c, w)

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkAnnotationRemoved, map[string]interface{}{"annotation": command.ExportParam(removed)})

	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// RemoveAllWorkAnnotations clears the annotation list, one event per
// removed annotation in list order. Requires admin capability.
func RemoveAllWorkAnnotations(c *command.Context, w *model.Work) (command.Outcome, error) {
	if err := command.RequireAdmin(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}

	prior := w.Version
	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	for _, ann := range w.Annotations {
		b.Add(EvWorkAnnotationRemoved, map[string]interface{}{"annotation": command.ExportParam(ann)})
	}
	if !b.Empty() {
		w.Annotations = nil
		touchWork(c, w)
	}
	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// AddWorkMedia links a media instance to the work. The caller verifies
// the media exists before invoking the command; linking the same media
// twice is rejected.
func AddWorkMedia(c *command.Context, w *model.Work, mediaID string) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}
	if mediaID == "" {
		return command.Outcome{}, model.NewCommandError("media id required")
	}
	if w.HasMedia(mediaID) {
		return command.Outcome{}, model.NewCommandError("duplicate media reference: %s", mediaID)
	}

	prior := w.Version
	w.Media = append(w.Media, mediaID)
	touchWork(c, w)

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkMediaAdded, map[string]interface{}{"media_id": mediaID})

	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

// RemoveWorkMedia unlinks a media instance from the work.
func RemoveWorkMedia(c *command.Context, w *model.Work, mediaID string) (command.Outcome, error) {
	if err := command.RequireWrite(c, w); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, w); err != nil {
		return command.Outcome{}, err
	}
	if !w.HasMedia(mediaID) {
		return command.Outcome{}, model.NewMediaNotFound(mediaID)
	}

	prior := w.Version
	kept := w.Media[:0]
	for _, m := range w.Media {
		if m != mediaID {
			kept = append(kept, m)
		}
	}
	w.Media = kept
	touchWork(c, w)

	b := command.NewBatch(c.UserID, model.TypeWork, w.ID)
	b.Add(EvWorkMediaRemoved, map[string]interface{}{"media_id": mediaID})

	return command.Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
}

func touchWork(c *command.Context, w *model.Work) {
	now := time.Now().UTC()
	w.UpdatedBy = c.UserID
	w.UpdatedAt = &now
	w.BumpVersion()
}

func newSource(userID string, now time.Time, in SourceInput) (model.Source, error) {
	if in.SourceWork == "" {
		return model.Source{}, model.NewCommandError("source_work required")
	}
	return model.Source{
		ID:         uuid.New().String(),
		SourceWork: in.SourceWork,
		AddedBy:    userID,
		AddedAt:    now,
	}, nil
}

func newAnnotation(userID string, now time.Time, in AnnotationInput) (model.Annotation, error) {
	if in.Property == nil {
		return model.Annotation{}, model.NewCommandError("annotation property required")
	}
	if in.Property.PropertyName() == "" {
		return model.Annotation{}, model.NewCommandError("property.propertyName is required")
	}
	if _, ok := in.Property["value"]; !ok {
		return model.Annotation{}, model.NewCommandError("property.value is required")
	}
	return model.Annotation{
		ID:        uuid.New().String(),
		Property:  in.Property,
		Score:     in.Score,
		AddedBy:   userID,
		AddedAt:   now,
		UpdatedBy: userID,
	}, nil
}

func hasSourceWork(w *model.Work, sourceWork string) bool {
	for _, s := range w.Sources {
		if s.SourceWork == sourceWork {
			return true
		}
	}
	return false
}

func deleteSource(list []model.Source, id string) []model.Source {
	kept := list[:0]
	for _, s := range list {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return kept
}

func deleteAnnotation(list []model.Annotation, id string) []model.Annotation {
	kept := list[:0]
	for _, a := range list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return kept
}
