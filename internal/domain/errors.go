package domain

import "fmt"

// ItemConflictError is returned when a registry name is already taken by an
// item of another kind.
type ItemConflictError struct {
	Name     string
	Existing ItemKind
	Want     ItemKind
}

func NewItemConflictError(name string, existing, want ItemKind) *ItemConflictError {
	return &ItemConflictError{Name: name, Existing: existing, Want: want}
}

func (e *ItemConflictError) Error() string {
	return fmt.Sprintf("item %q exists, but its kind %q is not %q", e.Name, e.Existing, e.Want)
}
