// Package mirror derives secondary events on other aggregates from
// primary events, keeping cross-aggregate denormalized facts eventually
// consistent. A work records "media added"; the mirror makes the media
// record "added to work" without the work ever writing to the media.
package mirror

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mediacatalog/catalog/internal/command"
	"github.com/mediacatalog/catalog/internal/core"
	"github.com/mediacatalog/catalog/internal/events"
	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
)

// Handler synthesizes a derived event batch targeting another
// aggregate, or nil when the event does not concern one. The batch
// version is stamped at dispatch, once the target's state is known.
type Handler func(n events.Notice) *model.EventBatch

// Handlers is the fixed table of mirrored events. Exported to support
// unit tests.
func Handlers() map[string]Handler {
	return map[string]Handler{
		core.EvWorkMediaAdded: func(n events.Notice) *model.EventBatch {
			mediaID, _ := n.Param["media_id"].(string)
			if mediaID == "" {
				return nil
			}
			return derived(n, model.TypeMedia, mediaID,
				core.EvMediaWorkAdded, map[string]interface{}{"work_id": n.Object})
		},

		core.EvWorkMediaRemoved: func(n events.Notice) *model.EventBatch {
			mediaID, _ := n.Param["media_id"].(string)
			if mediaID == "" {
				return nil
			}
			return derived(n, model.TypeMedia, mediaID,
				core.EvMediaWorkRemoved, map[string]interface{}{"work_id": n.Object})
		},

		core.EvMediaCreated: func(n events.Notice) *model.EventBatch {
			replaces := nestedString(n.Param, "media", "replaces")
			if replaces == "" {
				return nil
			}
			return derived(n, model.TypeMedia, replaces,
				core.EvMediaReplaced, map[string]interface{}{"new_media_id": n.Object})
		},

		core.EvWorkCreated: func(n events.Notice) *model.EventBatch {
			org := nestedString(n.Param, "work", "owner", "org")
			if org == "" {
				return nil
			}
			return derived(n, model.TypeOrganisation, org,
				core.EvOrgWorkCreated, map[string]interface{}{"work_id": n.Object})
		},

		core.EvWorkDeleted: func(n events.Notice) *model.EventBatch {
			org := nestedString(n.Param, "work", "owner", "org")
			if org == "" {
				return nil
			}
			return derived(n, model.TypeOrganisation, org,
				core.EvOrgWorkDeleted, map[string]interface{}{"work_id": n.Object})
		},
	}
}

func derived(n events.Notice, targetType, targetID, event string, param map[string]interface{}) *model.EventBatch {
	return &model.EventBatch{
		User:   n.User,
		Date:   n.Date,
		Type:   targetType,
		Object: targetID,
		Events: []model.Event{{Name: event, Param: param}},
	}
}

func nestedString(m map[string]interface{}, keys ...string) string {
	var cur interface{} = m
	for _, k := range keys {
		mm, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur = mm[k]
	}
	s, _ := cur.(string)
	return s
}

// Mirror subscribes the handler table to the bus and dispatches derived
// batches back through the command executor. Failures are logged and
// the specific mirrored effect is dropped; a failed mirror never
// reaches the primary command's caller, which has long since committed.
type Mirror struct {
	store store.Store
	exec  *command.Executor
	log   zerolog.Logger
}

// New constructs a Mirror.
func New(st store.Store, exec *command.Executor, log zerolog.Logger) *Mirror {
	return &Mirror{store: st, exec: exec, log: log}
}

// Start registers every handler on the bus, one subscription per event
// name.
func (m *Mirror) Start(bus *events.Bus) {
	for name, h := range Handlers() {
		handler := h
		bus.Subscribe(name, func(n events.Notice) error {
			batch := handler(n)
			if batch == nil {
				return nil
			}
			if err := m.Dispatch(context.Background(), batch); err != nil {
				// Dropped on purpose: mirrored effects are at-most-once
				// per delivery and the publisher may retry the notice.
				m.log.Error().Err(err).Str("event", n.Event).Str("target", batch.Object).
					Msg("mirrored effect dropped")
			}
			return nil
		})
	}
}

// Dispatch applies one derived batch to its target aggregate. Events
// that change denormalized state run as commands; events that only
// record a fact are appended to the target's history. A missing target
// is not an error: the aggregate was deleted after the primary event.
func (m *Mirror) Dispatch(ctx context.Context, batch *model.EventBatch) error {
	if len(batch.Events) != 1 {
		return model.NewCommandError("mirror batch must carry exactly one event")
	}
	ev := batch.Events[0]

	switch ev.Name {
	case core.EvMediaWorkAdded, core.EvMediaWorkRemoved, core.EvMediaReplaced:
		media, err := m.store.Media().FindByID(ctx, batch.Object)
		if err != nil {
			return ignoreNotFound(err)
		}
		_, err = m.exec.Execute(ctx, func() (command.Outcome, error) {
			switch ev.Name {
			case core.EvMediaWorkAdded:
				workID, _ := ev.Param["work_id"].(string)
				return core.AddMediaWorkRef(batch.User, media, workID)
			case core.EvMediaWorkRemoved:
				workID, _ := ev.Param["work_id"].(string)
				return core.RemoveMediaWorkRef(batch.User, media, workID)
			default:
				newID, _ := ev.Param["new_media_id"].(string)
				return core.FlagMediaReplaced(batch.User, media, newID)
			}
		})
		return err

	case core.EvOrgWorkCreated, core.EvOrgWorkDeleted:
		org, err := m.store.Organisations().FindByID(ctx, batch.Object)
		if err != nil {
			return ignoreNotFound(err)
		}
		batch.Version = org.Version
		return m.exec.LogEvent(ctx, batch)
	}

	return model.NewCommandError("no dispatch rule for mirrored event %s", ev.Name)
}

func ignoreNotFound(err error) error {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}
