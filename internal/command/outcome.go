package command

import (
	"encoding/json"
	"time"

	"github.com/mediacatalog/catalog/internal/model"
)

// Outcome is the value a command function produces. Exactly one of Save
// or Remove is set. A nil Event means the command observed no change;
// the executor may still persist but must not append an event.
type Outcome struct {
	Save   model.Aggregate
	Remove model.Aggregate

	// PriorVersion is the aggregate version before this command ran.
	// Negative for newly created aggregates (insert, not update).
	PriorVersion int64

	Event *model.EventBatch
}

// Batch accumulates event entries while a command applies its diffs.
// Entries keep the order they were added; that order is the declared
// field order of the command, not the caller's input order.
type Batch struct {
	user   string
	typ    string
	object string
	events []model.Event
}

// NewBatch starts an event batch for one command execution.
func NewBatch(userID, aggregateType, objectID string) *Batch {
	return &Batch{user: userID, typ: aggregateType, object: objectID}
}

// Add appends one event entry.
func (b *Batch) Add(name string, param map[string]interface{}) {
	b.events = append(b.events, model.Event{Name: name, Param: param})
}

// Empty reports whether no events were recorded.
func (b *Batch) Empty() bool { return len(b.events) == 0 }

// Len returns the number of recorded events.
func (b *Batch) Len() int { return len(b.events) }

// Build returns the finished batch, or nil if nothing was recorded.
// The version field is stamped later by the executor, after the
// mutation is known to have persisted.
func (b *Batch) Build() *model.EventBatch {
	if len(b.events) == 0 {
		return nil
	}
	return &model.EventBatch{
		User:   b.user,
		Date:   time.Now().UTC(),
		Type:   b.typ,
		Object: b.object,
		Events: b.events,
	}
}

// ApplyString applies an optional string input to a field. A nil input
// leaves the field unchanged; a pointer to the empty string clears it.
// On change the field is updated, one name{old,new} entry is recorded,
// and true is returned.
func ApplyString(b *Batch, name string, field *string, in *string) bool {
	if in == nil || *in == *field {
		return false
	}
	old := *field
	*field = *in
	b.Add(name, map[string]interface{}{"old": old, "new": *in})
	return true
}

// ApplyBool is ApplyString for boolean fields.
func ApplyBool(b *Batch, name string, field *bool, in *bool) bool {
	if in == nil || *in == *field {
		return false
	}
	old := *field
	*field = *in
	b.Add(name, map[string]interface{}{"old": old, "new": *in})
	return true
}

// ExportParam renders a value into the generic map shape used for
// event parameters, so batches stay free of domain struct types once
// persisted or published.
func ExportParam(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// CheckVersion compares the context's expected version, if any, against
// the aggregate's current version.
func CheckVersion(c *Context, agg model.Aggregate) error {
	if c.Version != nil && *c.Version != agg.AggregateVersion() {
		return &model.ConflictError{Type: agg.AggregateType(), ID: agg.AggregateID()}
	}
	return nil
}

// RequireWrite fails with a PermissionError unless the context holds
// write capability on the aggregate.
func RequireWrite(c *Context, agg model.Aggregate) error {
	if !c.Perms(agg.AggregateID()).Write {
		return &model.PermissionError{UserID: c.UserID, ObjectID: agg.AggregateID()}
	}
	return nil
}

// RequireAdmin fails with a PermissionError unless the context holds
// admin capability on the aggregate.
func RequireAdmin(c *Context, agg model.Aggregate) error {
	if !c.Perms(agg.AggregateID()).Admin {
		return &model.PermissionError{UserID: c.UserID, ObjectID: agg.AggregateID()}
	}
	return nil
}
