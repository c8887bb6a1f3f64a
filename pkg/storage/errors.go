package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidID marks identifiers that could escape the namespace directory.
	ErrInvalidID = errors.New("invalid record identifier")
	// ErrNotFound is returned by Update when the record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned by Create when the record already exists.
	ErrExists = errors.New("record already exists")
)

// Error describes a failed namespace operation.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}

// ValidateID rejects identifiers that are empty, contain "..", start with "/", or contain a
// path separator or NUL byte. Invalid identifiers are never sanitised.
func ValidateID(id string) error {
	switch {
	case id == "":
		return ErrInvalidID
	case strings.Contains(id, ".."):
		return ErrInvalidID
	case strings.HasPrefix(id, "/"):
		return ErrInvalidID
	case strings.ContainsAny(id, "/\\\x00"):
		return ErrInvalidID
	}
	return nil
}
