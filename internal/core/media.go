package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/model"
)

// CreateMediaInput carries the caller-supplied fields for new media.
// Replaces names an older media instance this one supersedes; the
// mirror flags the old instance once the created event is published.
type CreateMediaInput struct {
	OwnerOrg    string
	Public      *bool
	Replaces    string
	Annotations []AnnotationInput
	Metadata    map[string]interface{}
}

// CreateMedia builds a new media aggregate owned by the acting user or
// the organisation named in OwnerOrg.
func CreateMedia(c *command.Context, in CreateMediaInput) (command.Outcome, error) {
	if c.UserID == "" {
		return command.Outcome{}, model.NewCommandError("acting user required to create media")
	}

	now := time.Now().UTC()
	m := &model.Media{
		ID:       uuid.New().String(),
		Version:  0,
		Replaces: in.Replaces,
		Metadata: in.Metadata,
		AddedBy:  c.UserID,
		AddedAt:  now,
	}
	if in.OwnerOrg != "" {
		m.Owner = model.Owner{Org: in.OwnerOrg}
	} else {
		m.Owner = model.Owner{User: c.UserID}
	}
	if in.Public != nil {
		m.Public = *in.Public
	}
	for _, a := range in.Annotations {
		ann, err := newAnnotation(c.UserID, now, a)
		if err != nil {
			return command.Outcome{}, err
		}
		m.Annotations = append(m.Annotations, ann)
	}

	b := command.NewBatch(c.UserID, model.TypeMedia, m.ID)
	b.Add(EvMediaCreated, map[string]interface{}{"media": command.ExportParam(m)})

	return command.Outcome{Save: m, PriorVersion: -1, Event: b.Build()}, nil
}

// DeleteMedia removes the media. Requires admin capability.
func DeleteMedia(c *command.Context, m *model.Media) (command.Outcome, error) {
	if err := command.RequireAdmin(c, m); err != nil {
		return command.Outcome{}, err
	}
	if err := command.CheckVersion(c, m); err != nil {
		return command.Outcome{}, err
	}

	b := command.NewBatch(c.UserID, model.TypeMedia, m.ID)
	b.Add(EvMediaDeleted, map[string]interface{}{"media": command.ExportParam(m)})

	return command.Outcome{Remove: m, PriorVersion: m.Version, Event: b.Build()}, nil
}

// The commands below are applied by the event mirror on behalf of a
// primary mutation that already passed its own permission checks, so
// they take the acting user id directly instead of a resolved context.
// Each is idempotent: re-applying a delivered effect is a no-op with a
// nil event, which keeps at-least-once delivery harmless.

// AddMediaWorkRef records that a work now links to this media.
func AddMediaWorkRef(userID string, m *model.Media, workID string) (command.Outcome, error) {
	if workID == "" {
		return command.Outcome{}, model.NewCommandError("work id required")
	}
	prior := m.Version
	if m.HasWork(workID) {
		return command.Outcome{Save: m, PriorVersion: prior}, nil
	}

	m.Works = append(m.Works, workID)
	touchMedia(userID, m)

	b := command.NewBatch(userID, model.TypeMedia, m.ID)
	b.Add(EvMediaWorkAdded, map[string]interface{}{"work_id": workID})

	return command.Outcome{Save: m, PriorVersion: prior, Event: b.Build()}, nil
}

// RemoveMediaWorkRef records that a work no longer links to this media.
func RemoveMediaWorkRef(userID string, m *model.Media, workID string) (command.Outcome, error) {
	prior := m.Version
	if !m.HasWork(workID) {
		return command.Outcome{Save: m, PriorVersion: prior}, nil
	}

	kept := m.Works[:0]
	for _, w := range m.Works {
		if w != workID {
			kept = append(kept, w)
		}
	}
	m.Works = kept
	touchMedia(userID, m)

	b := command.NewBatch(userID, model.TypeMedia, m.ID)
	b.Add(EvMediaWorkRemoved, map[string]interface{}{"work_id": workID})

	return command.Outcome{Save: m, PriorVersion: prior, Event: b.Build()}, nil
}

// FlagMediaReplaced marks this media as superseded by a newer instance.
func FlagMediaReplaced(userID string, m *model.Media, newMediaID string) (command.Outcome, error) {
	if newMediaID == "" {
		return command.Outcome{}, model.NewCommandError("new media id required")
	}
	prior := m.Version
	if m.ReplacedBy == newMediaID {
		return command.Outcome{Save: m, PriorVersion: prior}, nil
	}

	m.ReplacedBy = newMediaID
	touchMedia(userID, m)

	b := command.NewBatch(userID, model.TypeMedia, m.ID)
	b.Add(EvMediaReplaced, map[string]interface{}{"new_media_id": newMediaID})

	return command.Outcome{Save: m, PriorVersion: prior, Event: b.Build()}, nil
}

func touchMedia(userID string, m *model.Media) {
	now := time.Now().UTC()
	m.UpdatedBy = userID
	m.UpdatedAt = &now
	m.BumpVersion()
}
