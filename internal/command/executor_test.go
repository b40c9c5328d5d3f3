package command

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacatalog/catalog/internal/model"
)

// fakeStorage records calls and simulates optimistic-save outcomes.
type fakeStorage struct {
	inserted  []model.Aggregate
	saved     []model.Aggregate
	removed   []model.Aggregate
	events    []*model.EventBatch
	saveRows  int64
	insertErr error
	saveErr   error
}

func (f *fakeStorage) Insert(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, agg)
	if event != nil {
		f.events = append(f.events, event)
	}
	return nil
}

func (f *fakeStorage) ConditionalSave(ctx context.Context, agg model.Aggregate, expectedVersion int64, event *model.EventBatch) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	if f.saveRows == 1 {
		f.saved = append(f.saved, agg)
		if event != nil {
			f.events = append(f.events, event)
		}
	}
	return f.saveRows, nil
}

func (f *fakeStorage) Remove(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	f.removed = append(f.removed, agg)
	if event != nil {
		f.events = append(f.events, event)
	}
	return nil
}

func (f *fakeStorage) AppendEvent(ctx context.Context, event *model.EventBatch) error {
	f.events = append(f.events, event)
	return nil
}

func newTestExecutor(st Storage) *Executor {
	return NewExecutor(st, zerolog.Nop())
}

func TestExecuteInsertsNewAggregate(t *testing.T) {
	st := &fakeStorage{}
	x := newTestExecutor(st)

	w := &model.Work{ID: "w-1", Version: 0}
	b := NewBatch("ann", model.TypeWork, w.ID)
	b.Add("core.work.created", map[string]interface{}{})

	got, err := x.Execute(context.Background(), func() (Outcome, error) {
		return Outcome{Save: w, PriorVersion: -1, Event: b.Build()}, nil
	})
	require.NoError(t, err)
	assert.Same(t, model.Aggregate(w), got)
	require.Len(t, st.inserted, 1)
	require.Len(t, st.events, 1)
	assert.Equal(t, int64(0), st.events[0].Version)
}

func TestExecuteStampsPostMutationVersion(t *testing.T) {
	st := &fakeStorage{saveRows: 1}
	x := newTestExecutor(st)

	w := &model.Work{ID: "w-1", Version: 3}
	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		prior := w.Version
		w.Description = "changed"
		w.BumpVersion()
		b := NewBatch("ann", model.TypeWork, w.ID)
		b.Add("core.work.description.changed", map[string]interface{}{"old": "", "new": "changed"})
		return Outcome{Save: w, PriorVersion: prior, Event: b.Build()}, nil
	})
	require.NoError(t, err)
	require.Len(t, st.events, 1)
	// The batch carries the version after the bump, not the prior one.
	assert.Equal(t, int64(4), st.events[0].Version)
}

func TestExecuteConflictWhenNoRowsAffected(t *testing.T) {
	st := &fakeStorage{saveRows: 0}
	x := newTestExecutor(st)

	w := &model.Work{ID: "w-1", Version: 2}
	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		w.BumpVersion()
		return Outcome{Save: w, PriorVersion: 2}, nil
	})
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, model.TypeWork, conflict.Type)
	assert.Empty(t, st.events)
}

func TestExecuteNoEventOnNoOp(t *testing.T) {
	st := &fakeStorage{saveRows: 1}
	x := newTestExecutor(st)

	w := &model.Work{ID: "w-1", Version: 5}
	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		// No change observed: same version, nil event.
		return Outcome{Save: w, PriorVersion: 5}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, st.events)
	assert.Equal(t, int64(5), w.Version)
}

func TestExecuteCommandErrorShortCircuitsStorage(t *testing.T) {
	st := &fakeStorage{}
	x := newTestExecutor(st)

	boom := model.NewCommandError("bad input")
	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		return Outcome{}, boom
	})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Empty(t, st.inserted)
	assert.Empty(t, st.saved)
	assert.Empty(t, st.events)
}

func TestExecuteRemove(t *testing.T) {
	st := &fakeStorage{}
	x := newTestExecutor(st)

	w := &model.Work{ID: "w-1", Version: 7}
	b := NewBatch("ann", model.TypeWork, w.ID)
	b.Add("core.work.deleted", map[string]interface{}{})

	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		return Outcome{Remove: w, PriorVersion: 7, Event: b.Build()}, nil
	})
	require.NoError(t, err)
	require.Len(t, st.removed, 1)
	require.Len(t, st.events, 1)
	assert.Equal(t, int64(7), st.events[0].Version)
}

func TestExecutePropagatesStorageErrors(t *testing.T) {
	sentinel := errors.New("disk on fire")
	st := &fakeStorage{insertErr: sentinel}
	x := newTestExecutor(st)

	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		return Outcome{Save: &model.Work{ID: "w-1"}, PriorVersion: -1}, nil
	})
	require.ErrorIs(t, err, sentinel)
}

func TestExecuteRejectsEmptyOutcome(t *testing.T) {
	x := newTestExecutor(&fakeStorage{})
	_, err := x.Execute(context.Background(), func() (Outcome, error) {
		return Outcome{}, nil
	})
	var cmdErr *model.CommandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestLogEventSkipsEmptyBatches(t *testing.T) {
	st := &fakeStorage{}
	x := newTestExecutor(st)

	require.NoError(t, x.LogEvent(context.Background(), nil))
	require.NoError(t, x.LogEvent(context.Background(), &model.EventBatch{}))
	assert.Empty(t, st.events)

	b := NewBatch("ann", model.TypeOrganisation, "o-1")
	b.Add("core.org.work.created", map[string]interface{}{"work_id": "w-1"})
	require.NoError(t, x.LogEvent(context.Background(), b.Build()))
	require.Len(t, st.events, 1)
}
