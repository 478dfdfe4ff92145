package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is the error returned when there is no entry at an expected address.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is the error returned when allocating an address that is occupied.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized is the error returned when no signer of a request
	// holds the capability the operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	ErrOverflow  = errors.New("counter overflow")
	ErrUnderflow = errors.New("counter underflow")

	// ErrBadSignature is the error returned by Authenticate
	// for a signature that does not verify.
	ErrBadSignature = errors.New("bad signature")

	// ErrWrongLayout is the error returned when decoding a slot
	// into a record of a different type.
	ErrWrongLayout = errors.New("wrong record layout")
)

// ValidationError is the error produced when a request field violates a length bound.
type ValidationError struct {
	Field string
	Limit int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s length out of bounds (limit %d)", e.Field, e.Limit)
}
