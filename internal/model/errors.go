package model

import "fmt"

// The command core only ever surfaces this closed set of error types.
// Callers match with errors.As, never on strings.

// PermissionError: the acting user lacks the capability the operation
// requires on the target aggregate.
type PermissionError struct {
	UserID   string
	ObjectID string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s does not have permission on object %s", e.UserID, e.ObjectID)
}

// ConflictError: an optimistic version check failed, either against the
// expected version in the context or at the storage layer when another
// writer won the race.
type ConflictError struct {
	Type    string
	ID      string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s conflict for object %s", e.Type, e.ID)
}

// CommandError: structurally or semantically invalid command input.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// NewCommandError formats a CommandError.
func NewCommandError(format string, args ...interface{}) *CommandError {
	return &CommandError{Message: fmt.Sprintf(format, args...)}
}

// DuplicateKeyError: a storage uniqueness constraint was violated.
// Collection and Property are parsed best-effort from the constraint
// name by the store layer.
type DuplicateKeyError struct {
	Collection string
	Property   string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key in %s.%s: %v", e.Collection, e.Property, e.Err)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// NotFoundError: the referenced aggregate or child entity does not
// exist. Type carries the aggregate type name (e.g. core.Work).
type NotFoundError struct {
	Type string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

func NewWorkNotFound(id string) *NotFoundError { return &NotFoundError{Type: TypeWork, ID: id} }

// Child entities report their parent-scoped type names.
func NewSourceNotFound(id string) *NotFoundError {
	return &NotFoundError{Type: TypeWork + ".Source", ID: id}
}

func NewAnnotationNotFound(id string) *NotFoundError {
	return &NotFoundError{Type: TypeWork + ".Annotation", ID: id}
}

func NewMediaNotFound(id string) *NotFoundError { return &NotFoundError{Type: TypeMedia, ID: id} }
func NewUserNotFound(id string) *NotFoundError  { return &NotFoundError{Type: TypeUser, ID: id} }
func NewOrganisationNotFound(id string) *NotFoundError {
	return &NotFoundError{Type: TypeOrganisation, ID: id}
}
