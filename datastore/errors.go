package datastore

import (
	"fmt"

	"github.com/pkg/errors"
)

// failure kinds, match them with errors.Is
var (
	ErrValidation = errors.New("invalid input")
	ErrConnection = errors.New("connection failure")
	ErrOperation  = errors.New("operation failure")
)

// OpError reports why an operation failed. The operation's return value is
// still its failure sentinel (false, nil or 0).
type OpError struct {
	Op         string
	Collection string
	Kind       error // one of ErrValidation, ErrConnection, ErrOperation
	Err        error
}

func (e *OpError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.Collection, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors walk through an OpError
func (e *OpError) Cause() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == e.Kind }

// KindOf returns the failure kind of err, or nil if err is not an OpError
func KindOf(err error) error {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return nil
}

func newError(op, collection string, kind, err error) *OpError {
	return &OpError{Op: op, Collection: collection, Kind: kind, Err: err}
}
