// Package apperr holds the error taxonomy shared by the cart and order
// components. Callers match on the sentinels with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrEmptyCart       = errors.New("empty cart")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrStoreFailure matches any *StoreError.
	ErrStoreFailure = errors.New("store failure")
)

// StoreError reports a rejected store operation (network, permission,
// constraint). Op names the statement that failed, e.g. "insert order".
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// Store wraps err as a StoreError. It returns nil for a nil err and leaves
// errors that already belong to the taxonomy untouched.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreFailure) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
