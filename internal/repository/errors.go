package repository

import (
	"errors"

	"github.com/google/uuid"
)

// ErrVersionConflict is returned when an update raced with another writer.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicate is returned when a unique value already exists.
var ErrDuplicate = errors.New("duplicate value")

// validID reports whether id can address a UUID primary key. Lookups with a
// malformed id are answered as missing rather than sent to Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
