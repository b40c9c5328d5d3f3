// Package mem provides an in-memory store used by unit tests and the
// in-process development mode. It enforces the same uniqueness and
// conditional-update semantics as the SQL backends.
package mem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
)

type memStore struct {
	mu sync.Mutex

	works         map[string]*model.Work
	media         map[string]*model.Media
	users         map[string]*model.User
	organisations map[string]*model.Organisation

	log       []*store.StoredBatch
	published map[int64]bool
	nextSeq   int64
}

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{
		works:         map[string]*model.Work{},
		media:         map[string]*model.Media{},
		users:         map[string]*model.User{},
		organisations: map[string]*model.Organisation{},
		published:     map[int64]bool{},
		nextSeq:       1,
	}
}

func (s *memStore) Works() store.Works                 { return worksView{s} }
func (s *memStore) Media() store.Media                 { return mediaView{s} }
func (s *memStore) Users() store.Users                 { return usersView{s} }
func (s *memStore) Organisations() store.Organisations { return orgsView{s} }
func (s *memStore) Events() store.Events               { return eventsView{s} }

func (s *memStore) Insert(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(agg); err != nil {
		return err
	}
	switch a := agg.(type) {
	case *model.Work:
		if _, ok := s.works[a.ID]; ok {
			return &model.DuplicateKeyError{Collection: "works", Property: "id"}
		}
		s.works[a.ID] = clone(a)
	case *model.Media:
		if _, ok := s.media[a.ID]; ok {
			return &model.DuplicateKeyError{Collection: "media", Property: "id"}
		}
		s.media[a.ID] = clone(a)
	case *model.User:
		if _, ok := s.users[a.ID]; ok {
			return &model.DuplicateKeyError{Collection: "users", Property: "id"}
		}
		s.users[a.ID] = clone(a)
	case *model.Organisation:
		if _, ok := s.organisations[a.ID]; ok {
			return &model.DuplicateKeyError{Collection: "organisations", Property: "id"}
		}
		s.organisations[a.ID] = clone(a)
	default:
		return fmt.Errorf("unknown aggregate type %T", agg)
	}
	s.appendLocked(event)
	return nil
}

func (s *memStore) ConditionalSave(ctx context.Context, agg model.Aggregate, expectedVersion int64, event *model.EventBatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current model.Aggregate
	switch a := agg.(type) {
	case *model.Work:
		if w, ok := s.works[a.ID]; ok {
			current = w
		}
	case *model.Media:
		if m, ok := s.media[a.ID]; ok {
			current = m
		}
	case *model.User:
		if u, ok := s.users[a.ID]; ok {
			current = u
		}
	case *model.Organisation:
		if o, ok := s.organisations[a.ID]; ok {
			current = o
		}
	default:
		return 0, fmt.Errorf("unknown aggregate type %T", agg)
	}
	if current == nil || current.AggregateVersion() != expectedVersion {
		return 0, nil
	}
	if err := s.checkUnique(agg); err != nil {
		return 0, err
	}
	switch a := agg.(type) {
	case *model.Work:
		s.works[a.ID] = clone(a)
	case *model.Media:
		s.media[a.ID] = clone(a)
	case *model.User:
		s.users[a.ID] = clone(a)
	case *model.Organisation:
		s.organisations[a.ID] = clone(a)
	}
	s.appendLocked(event)
	return 1, nil
}

func (s *memStore) Remove(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch agg.AggregateType() {
	case model.TypeWork:
		delete(s.works, agg.AggregateID())
	case model.TypeMedia:
		delete(s.media, agg.AggregateID())
	case model.TypeUser:
		delete(s.users, agg.AggregateID())
	default:
		delete(s.organisations, agg.AggregateID())
	}
	s.appendLocked(event)
	return nil
}

func (s *memStore) AppendEvent(ctx context.Context, event *model.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(event)
	return nil
}

// checkUnique enforces the sparse alias uniqueness the SQL backends
// get from partial unique indexes.
func (s *memStore) checkUnique(agg model.Aggregate) error {
	switch a := agg.(type) {
	case *model.Work:
		if a.Alias == "" {
			return nil
		}
		for _, w := range s.works {
			if w.ID != a.ID && w.Alias == a.Alias {
				return &model.DuplicateKeyError{Collection: "works", Property: "alias"}
			}
		}
	case *model.User:
		if a.Alias == "" {
			return nil
		}
		for _, u := range s.users {
			if u.ID != a.ID && u.Alias == a.Alias {
				return &model.DuplicateKeyError{Collection: "users", Property: "alias"}
			}
		}
	case *model.Organisation:
		if a.Alias == "" {
			return nil
		}
		for _, o := range s.organisations {
			if o.ID != a.ID && o.Alias == a.Alias {
				return &model.DuplicateKeyError{Collection: "organisations", Property: "alias"}
			}
		}
	}
	return nil
}

func (s *memStore) appendLocked(b *model.EventBatch) {
	if b == nil {
		return
	}
	s.log = append(s.log, &store.StoredBatch{Seq: s.nextSeq, Batch: *clone(b)})
	s.nextSeq++
}

// --- Works ---

type worksView struct{ s *memStore }

func (v worksView) FindByID(ctx context.Context, id string) (*model.Work, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if w, ok := v.s.works[id]; ok {
		return clone(w), nil
	}
	return nil, model.NewWorkNotFound(id)
}

func (v worksView) FindByAlias(ctx context.Context, alias string) (*model.Work, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if alias != "" {
		for _, w := range v.s.works {
			if w.Alias == alias {
				return clone(w), nil
			}
		}
	}
	return nil, model.NewWorkNotFound(alias)
}

func (v worksView) ListByOwnerUser(ctx context.Context, userID string) ([]*model.Work, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []*model.Work
	for _, w := range v.s.works {
		if w.Owner.User == userID {
			out = append(out, clone(w))
		}
	}
	sortWorks(out)
	return out, nil
}

func (v worksView) ListByOwnerOrg(ctx context.Context, orgID string) ([]*model.Work, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []*model.Work
	for _, w := range v.s.works {
		if w.Owner.Org == orgID {
			out = append(out, clone(w))
		}
	}
	sortWorks(out)
	return out, nil
}

func sortWorks(ws []*model.Work) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].ID < ws[j].ID })
}

// --- Media ---

type mediaView struct{ s *memStore }

func (v mediaView) FindByID(ctx context.Context, id string) (*model.Media, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if m, ok := v.s.media[id]; ok {
		return clone(m), nil
	}
	return nil, model.NewMediaNotFound(id)
}

// --- Users ---

type usersView struct{ s *memStore }

func (v usersView) FindByID(ctx context.Context, id string) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if u, ok := v.s.users[id]; ok {
		return clone(u), nil
	}
	return nil, model.NewUserNotFound(id)
}

func (v usersView) FindByAlias(ctx context.Context, alias string) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if alias != "" {
		for _, u := range v.s.users {
			if u.Alias == alias {
				return clone(u), nil
			}
		}
	}
	return nil, model.NewUserNotFound(alias)
}

// --- Organisations ---

type orgsView struct{ s *memStore }

func (v orgsView) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if o, ok := v.s.organisations[id]; ok {
		return clone(o), nil
	}
	return nil, model.NewOrganisationNotFound(id)
}

func (v orgsView) FindByAlias(ctx context.Context, alias string) (*model.Organisation, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if alias != "" {
		for _, o := range v.s.organisations {
			if o.Alias == alias {
				return clone(o), nil
			}
		}
	}
	return nil, model.NewOrganisationNotFound(alias)
}

// --- Event log ---

type eventsView struct{ s *memStore }

func (v eventsView) Append(ctx context.Context, b *model.EventBatch) error {
	return v.s.AppendEvent(ctx, b)
}

func (v eventsView) ListByObject(ctx context.Context, objectID string, limit int) ([]*model.EventBatch, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []*model.EventBatch
	for _, sb := range v.s.log {
		if sb.Batch.Object != objectID {
			continue
		}
		b := sb.Batch
		out = append(out, clone(&b))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (v eventsView) FetchUnpublished(ctx context.Context, limit int) ([]*store.StoredBatch, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []*store.StoredBatch
	for _, sb := range v.s.log {
		if v.s.published[sb.Seq] {
			continue
		}
		cp := *sb
		cp.Batch = *clone(&sb.Batch)
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (v eventsView) MarkPublished(ctx context.Context, seq int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.published[seq] = true
	return nil
}

// clone round-trips through JSON so callers never share memory with
// the store's copies.
func clone[T any](in *T) *T {
	raw, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}
