// Package repositories implements the data access layer for the station registry.
// Each repository type encapsulates all database queries for one entity; handlers
// never issue SQL directly.
package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by mutations that matched no row.
// Lookups return (nil, nil) for absent rows instead, matching handler checks.
var ErrNotFound = errors.New("record not found")

// ConflictError reports a unique-constraint violation on user creation.
// Field is the user-facing field name ("Email" or "Username").
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// AsConflict unwraps err into a ConflictError if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
