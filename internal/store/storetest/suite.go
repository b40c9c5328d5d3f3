// Package storetest holds a conformance suite every store backend
// must pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
)

// Factory returns a fresh, empty store for each subtest.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against the backend.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndFindWork", func(t *testing.T) { testInsertAndFindWork(t, newStore(t)) })
	t.Run("DuplicateAlias", func(t *testing.T) { testDuplicateAlias(t, newStore(t)) })
	t.Run("ConditionalSave", func(t *testing.T) { testConditionalSave(t, newStore(t)) })
	t.Run("ConditionalSaveKeepsEventOut", func(t *testing.T) { testConflictSkipsEvent(t, newStore(t)) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, newStore(t)) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, newStore(t)) })
	t.Run("EventLog", func(t *testing.T) { testEventLog(t, newStore(t)) })
	t.Run("UsersAndOrganisations", func(t *testing.T) { testUsersAndOrgs(t, newStore(t)) })
}

func batchFor(objectType, objectID, name string) *model.EventBatch {
	return &model.EventBatch{
		User:    "u-1",
		Date:    time.Now().UTC(),
		Type:    objectType,
		Object:  objectID,
		Version: 0,
		Events:  []model.Event{{Name: name, Param: map[string]interface{}{}}},
	}
}

func testInsertAndFindWork(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := &model.Work{ID: "w-1", Alias: "alpha", Owner: model.Owner{User: "u-1"}, Public: true}

	if err := s.Insert(ctx, w, batchFor(model.TypeWork, w.ID, "core.work.created")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.Works().FindByID(ctx, "w-1")
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if got.Alias != "alpha" || got.Owner.User != "u-1" || !got.Public {
		t.Fatalf("unexpected work: %+v", got)
	}
	byAlias, err := s.Works().FindByAlias(ctx, "alpha")
	if err != nil {
		t.Fatalf("find by alias: %v", err)
	}
	if byAlias.ID != "w-1" {
		t.Fatalf("alias lookup returned %s", byAlias.ID)
	}

	var nf *model.NotFoundError
	if _, err := s.Works().FindByID(ctx, "missing"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Type != model.TypeWork {
		t.Fatalf("not-found type = %s", nf.Type)
	}
}

func testDuplicateAlias(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.Insert(ctx, &model.Work{ID: "w-1", Alias: "taken"}, nil); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := s.Insert(ctx, &model.Work{ID: "w-2", Alias: "taken"}, nil)
	var dup *model.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}

	// Empty aliases never collide.
	if err := s.Insert(ctx, &model.Work{ID: "w-3"}, nil); err != nil {
		t.Fatalf("insert without alias: %v", err)
	}
	if err := s.Insert(ctx, &model.Work{ID: "w-4"}, nil); err != nil {
		t.Fatalf("second insert without alias: %v", err)
	}
}

func testConditionalSave(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := &model.Work{ID: "w-1", Description: "before"}
	if err := s.Insert(ctx, w, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	w.Description = "after"
	w.Version = 1
	n, err := s.ConditionalSave(ctx, w, 0, batchFor(model.TypeWork, w.ID, "core.work.updated"))
	if err != nil {
		t.Fatalf("conditional save: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows affected = %d, want 1", n)
	}
	got, err := s.Works().FindByID(ctx, "w-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Description != "after" || got.Version != 1 {
		t.Fatalf("unexpected work after save: %+v", got)
	}

	// Stale expected version touches nothing.
	w.Description = "stale write"
	n, err = s.ConditionalSave(ctx, w, 0, nil)
	if err != nil {
		t.Fatalf("stale save: %v", err)
	}
	if n != 0 {
		t.Fatalf("stale save affected %d rows", n)
	}
	got, _ = s.Works().FindByID(ctx, "w-1")
	if got.Description != "after" {
		t.Fatalf("stale write leaked: %q", got.Description)
	}
}

func testConflictSkipsEvent(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := &model.Work{ID: "w-1"}
	if err := s.Insert(ctx, w, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	w.Version = 9
	n, err := s.ConditionalSave(ctx, w, 7, batchFor(model.TypeWork, w.ID, "core.work.updated"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows affected = %d", n)
	}
	batches, err := s.Events().ListByObject(ctx, "w-1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("conflicted save still wrote %d batches", len(batches))
	}
}

func testRemove(t *testing.T, s store.Store) {
	ctx := context.Background()
	w := &model.Work{ID: "w-1"}
	if err := s.Insert(ctx, w, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Remove(ctx, w, batchFor(model.TypeWork, w.ID, "core.work.deleted")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Works().FindByID(ctx, "w-1"); err == nil {
		t.Fatal("work still present after remove")
	}
	batches, err := s.Events().ListByObject(ctx, "w-1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(batches) != 1 || batches[0].Events[0].Name != "core.work.deleted" {
		t.Fatalf("unexpected event log: %+v", batches)
	}
}

func testListByOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed := []*model.Work{
		{ID: "w-1", Owner: model.Owner{User: "ann"}},
		{ID: "w-2", Owner: model.Owner{User: "ann"}},
		{ID: "w-3", Owner: model.Owner{Org: "acme"}},
	}
	for _, w := range seed {
		if err := s.Insert(ctx, w, nil); err != nil {
			t.Fatalf("insert %s: %v", w.ID, err)
		}
	}
	byUser, err := s.Works().ListByOwnerUser(ctx, "ann")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 || byUser[0].ID != "w-1" || byUser[1].ID != "w-2" {
		t.Fatalf("unexpected user listing: %+v", byUser)
	}
	byOrg, err := s.Works().ListByOwnerOrg(ctx, "acme")
	if err != nil {
		t.Fatalf("list by org: %v", err)
	}
	if len(byOrg) != 1 || byOrg[0].ID != "w-3" {
		t.Fatalf("unexpected org listing: %+v", byOrg)
	}
}

func testEventLog(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, name := range []string{"core.work.created", "core.work.updated"} {
		b := batchFor(model.TypeWork, "w-1", name)
		b.Version = int64(i)
		if err := s.Events().Append(ctx, b); err != nil {
			t.Fatalf("append %s: %v", name, err)
		}
	}
	if err := s.Events().Append(ctx, batchFor(model.TypeMedia, "m-1", "core.media.created")); err != nil {
		t.Fatalf("append media batch: %v", err)
	}

	batches, err := s.Events().ListByObject(ctx, "w-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[0].Events[0].Name != "core.work.created" || batches[1].Events[0].Name != "core.work.updated" {
		t.Fatalf("batches out of order: %+v", batches)
	}

	pending, err := s.Events().FetchUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("got %d unpublished, want 3", len(pending))
	}
	if err := s.Events().MarkPublished(ctx, pending[0].Seq); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	pending, err = s.Events().FetchUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("refetch unpublished: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d unpublished after mark, want 2", len(pending))
	}
}

func testUsersAndOrgs(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &model.User{ID: "ann", Alias: "ann-a", Profile: model.Profile{Name: "Ann"}}
	if err := s.Insert(ctx, u, nil); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	o := &model.Organisation{ID: "acme", Alias: "acme-co", Owners: []string{"ann"}}
	if err := s.Insert(ctx, o, nil); err != nil {
		t.Fatalf("insert org: %v", err)
	}

	gotU, err := s.Users().FindByAlias(ctx, "ann-a")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if gotU.Profile.Name != "Ann" {
		t.Fatalf("unexpected user: %+v", gotU)
	}
	gotO, err := s.Organisations().FindByID(ctx, "acme")
	if err != nil {
		t.Fatalf("find org: %v", err)
	}
	if len(gotO.Owners) != 1 || gotO.Owners[0] != "ann" {
		t.Fatalf("unexpected org: %+v", gotO)
	}

	m := &model.Media{ID: "m-1", Owner: model.Owner{Org: "acme"}}
	if err := s.Insert(ctx, m, nil); err != nil {
		t.Fatalf("insert media: %v", err)
	}
	gotM, err := s.Media().FindByID(ctx, "m-1")
	if err != nil {
		t.Fatalf("find media: %v", err)
	}
	if gotM.Owner.Org != "acme" {
		t.Fatalf("unexpected media: %+v", gotM)
	}
}
