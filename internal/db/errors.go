package db

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFieldIndex is returned when a field index is outside [0, FieldCount).
	ErrInvalidFieldIndex = errors.New("invalid field index")

	// ErrInvalidRowIndex is returned when a row index is negative or past the last row.
	ErrInvalidRowIndex = errors.New("invalid row index")

	// ErrInvalidResource is returned by any operation on a closed link or result.
	ErrInvalidResource = errors.New("invalid resource")

	// ErrInvalidArgument is returned when a required argument is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported is returned when the dialect has no equivalent for an operation.
	ErrUnsupported = errors.New("operation not supported by driver")
)

// ConnectionError is returned when a native connection could not be opened.
type ConnectionError struct {
	Driver string
	Cause  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (%s): %v", e.Driver, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// QueryError is returned when a statement failed to execute. The cause is
// also retained on the connection as its last error.
type QueryError struct {
	Query string
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}
