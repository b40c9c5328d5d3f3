package model

import "time"

// Aggregate type names as recorded in event batches and the store.
const (
	TypeWork         = "core.Work"
	TypeMedia        = "core.Media"
	TypeUser         = "core.User"
	TypeOrganisation = "core.Organisation"
)

// Aggregate is a top-level versioned domain object and the unit of
// optimistic concurrency. Version increases by exactly one per accepted
// mutation; a stale writer must get a conflict, never a silent overwrite.
type Aggregate interface {
	AggregateID() string
	AggregateType() string
	AggregateVersion() int64
	BumpVersion()
}

// Owner identifies who controls a Work or Media: either a user directly
// or an organisation (whose owners then hold the rights).
type Owner struct {
	User string `json:"user,omitempty"`
	Org  string `json:"org,omitempty"`
}

// Property is the open-ended payload of an annotation. PropertyName and
// Value are required; everything else is preserved as-is.
type Property map[string]interface{}

// PropertyName returns the required propertyName field, or "".
func (p Property) PropertyName() string {
	s, _ := p["propertyName"].(string)
	return s
}

// Value returns the required value field, or "".
func (p Property) Value() string {
	s, _ := p["value"].(string)
	return s
}

// Annotation is a child entity embedded in a Work or Media. It has its
// own sub-id within the parent but no version of its own; it is only
// mutated as part of a parent mutation.
type Annotation struct {
	ID        string     `json:"id"`
	Property  Property   `json:"property"`
	Score     int        `json:"score"`
	AddedBy   string     `json:"addedBy,omitempty"`
	AddedAt   time.Time  `json:"addedAt,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Source is a reference from a Work to another work it derives from.
type Source struct {
	ID         string    `json:"id"`
	SourceWork string    `json:"sourceWork"`
	AddedBy    string    `json:"addedBy,omitempty"`
	AddedAt    time.Time `json:"addedAt,omitempty"`
}

// Work is the central aggregate: a creative work with annotations,
// source references and linked media.
type Work struct {
	ID          string       `json:"id"`
	Version     int64        `json:"version"`
	Owner       Owner        `json:"owner"`
	Alias       string       `json:"alias,omitempty"`
	Description string       `json:"description,omitempty"`
	ForkedFrom  string       `json:"forkedFrom,omitempty"`
	Public      bool         `json:"public"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Sources     []Source     `json:"sources,omitempty"`
	Media       []string     `json:"media,omitempty"`

	AddedBy   string     `json:"addedBy"`
	AddedAt   time.Time  `json:"addedAt"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (w *Work) AggregateID() string     { return w.ID }
func (w *Work) AggregateType() string   { return TypeWork }
func (w *Work) AggregateVersion() int64 { return w.Version }
func (w *Work) BumpVersion()            { w.Version++ }

// FindSource returns the embedded source with the given sub-id, or nil.
func (w *Work) FindSource(id string) *Source {
	for i := range w.Sources {
		if w.Sources[i].ID == id {
			return &w.Sources[i]
		}
	}
	return nil
}

// FindAnnotation returns the embedded annotation with the given sub-id, or nil.
func (w *Work) FindAnnotation(id string) *Annotation {
	for i := range w.Annotations {
		if w.Annotations[i].ID == id {
			return &w.Annotations[i]
		}
	}
	return nil
}

// HasMedia reports whether the given media id is linked to the work.
func (w *Work) HasMedia(mediaID string) bool {
	for _, m := range w.Media {
		if m == mediaID {
			return true
		}
	}
	return false
}

// Media is an uploaded or referenced media instance. Works link to media
// by id; the reverse links under Media are denormalized back-references
// maintained by the event mirror, never written by API callers directly.
type Media struct {
	ID          string                 `json:"id"`
	Version     int64                  `json:"version"`
	Owner       Owner                  `json:"owner"`
	Public      bool                   `json:"public"`
	Replaces    string                 `json:"replaces,omitempty"`
	ReplacedBy  string                 `json:"replacedBy,omitempty"`
	Works       []string               `json:"works,omitempty"`
	Annotations []Annotation           `json:"annotations,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	AddedBy   string     `json:"addedBy"`
	AddedAt   time.Time  `json:"addedAt"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (m *Media) AggregateID() string     { return m.ID }
func (m *Media) AggregateType() string   { return TypeMedia }
func (m *Media) AggregateVersion() int64 { return m.Version }
func (m *Media) BumpVersion()            { m.Version++ }

// HasWork reports whether the given work id is back-referenced.
func (m *Media) HasWork(workID string) bool {
	for _, w := range m.Works {
		if w == workID {
			return true
		}
	}
	return false
}

// Profile holds the public-facing fields shared by users and organisations.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
}

// User is an account aggregate. The id is assigned by the caller at
// creation so it lines up with the auth layer's account record.
type User struct {
	ID      string  `json:"id"`
	Version int64   `json:"version"`
	Alias   string  `json:"alias,omitempty"`
	Profile Profile `json:"profile"`

	AddedBy   string     `json:"addedBy"`
	AddedAt   time.Time  `json:"addedAt"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (u *User) AggregateID() string     { return u.ID }
func (u *User) AggregateType() string   { return TypeUser }
func (u *User) AggregateVersion() int64 { return u.Version }
func (u *User) BumpVersion()            { u.Version++ }

// Organisation is an aggregate owned collectively by its listed owners.
type Organisation struct {
	ID      string   `json:"id"`
	Version int64    `json:"version"`
	Alias   string   `json:"alias,omitempty"`
	Profile Profile  `json:"profile"`
	Owners  []string `json:"owners"`

	AddedBy   string     `json:"addedBy"`
	AddedAt   time.Time  `json:"addedAt"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (o *Organisation) AggregateID() string     { return o.ID }
func (o *Organisation) AggregateType() string   { return TypeOrganisation }
func (o *Organisation) AggregateVersion() int64 { return o.Version }
func (o *Organisation) BumpVersion()            { o.Version++ }

// IsOwner reports whether the given user id is a listed owner.
func (o *Organisation) IsOwner(userID string) bool {
	for _, id := range o.Owners {
		if id == userID {
			return true
		}
	}
	return false
}

// Event is one entry in an event batch. Param keys follow the wire
// names used throughout the system (work_id, media_id, ...).
type Event struct {
	Name  string                 `json:"name"`
	Param map[string]interface{} `json:"param,omitempty"`
}

// EventBatch is the immutable record of the events produced by one
// successful command execution. Version is the post-mutation version of
// the affected aggregate; the executor stamps it before the append.
type EventBatch struct {
	User    string    `json:"user,omitempty"`
	Date    time.Time `json:"date"`
	Type    string    `json:"type"`
	Object  string    `json:"object"`
	Version int64     `json:"version"`
	Events  []Event   `json:"events"`
}
