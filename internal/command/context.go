// Package command implements the aggregate command pipeline: pure
// command functions produce an Outcome, the Executor persists it under
// optimistic concurrency and appends the resulting event batch.
package command

// PermissionSet is the capability set resolved for one principal
// against one aggregate instance. Values are immutable after
// construction; a fresh set is computed per context and aggregate.
type PermissionSet struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Admin bool `json:"admin"`
}

// Context carries the acting principal, the optional expected aggregate
// version, and the permissions resolved so far in this request.
type Context struct {
	UserID string

	// Version, when set, is compared against the target aggregate's
	// version before any mutation; a mismatch is a conflict.
	Version *int64

	perms map[string]PermissionSet
}

// NewContext returns a context for the given acting user. An empty user
// id represents an anonymous principal with no rights beyond public read.
func NewContext(userID string) *Context {
	return &Context{UserID: userID, perms: make(map[string]PermissionSet)}
}

// WithVersion sets the expected aggregate version and returns the context.
func (c *Context) WithVersion(v int64) *Context {
	c.Version = &v
	return c
}

// Grant records the resolved permission set for an aggregate id.
// Granting twice for the same id is allowed; the last value wins, and
// resolvers always compute the same value for the same context.
func (c *Context) Grant(aggregateID string, ps PermissionSet) {
	if c.perms == nil {
		c.perms = make(map[string]PermissionSet)
	}
	c.perms[aggregateID] = ps
}

// Perms returns the permission set recorded for the aggregate id.
// An unknown id yields the zero set: no rights.
func (c *Context) Perms(aggregateID string) PermissionSet {
	return c.perms[aggregateID]
}
