package storage

import "errors"

var (
	// ErrSerialization is returned when a record cannot be encoded.
	ErrSerialization = errors.New("serialization failure")
	// ErrWrite is returned when a record cannot be written durably.
	ErrWrite = errors.New("write failure")
	// ErrAlreadyExists is returned when saving over an existing record without Overwrite.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotFound is returned when the source record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrParse is returned when a record file is malformed.
	ErrParse = errors.New("parse failure")
	// ErrIntegrityMismatch is returned when a loaded record does not open its own commitment.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
)

// Error carries the failed operation and path along with the failure kind.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "op:" + e.Op + " " + e.Path + " - no error provided"
	}
	return "op:" + e.Op + " " + e.Path + " - " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
