package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique constraint rejects a write.
var ErrAlreadyExists = errors.New("already exists")

// ErrInUse is returned when a foreign key still references the record.
var ErrInUse = errors.New("in use")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver constraint errors onto store sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrAlreadyExists
		case pqForeignKeyViolation:
			return ErrInUse
		}
	}
	return err
}
