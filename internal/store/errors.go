package store

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the catalog and billing engine. Callers
// classify with errors.Is/As; storage failures are wrapped and stay
// opaque.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSerial = errors.New("serial number conflict: an existing product has the same serial")
	ErrEmptyBill       = errors.New("bill is empty")
)

// ValidationError rejects malformed input before any write happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// OutOfStockError aborts a bill whose line references a product with
// zero remaining stock.
type OutOfStockError struct {
	Serial int64
	Name   string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %s (S#%d)", e.Name, e.Serial)
}

// InsufficientStockError aborts a bill whose line requests more than
// the remaining stock. Available carries the exact remaining quantity
// so the caller can adjust and resubmit.
type InsufficientStockError struct {
	Serial    int64
	Name      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (S#%d), available: %d", e.Name, e.Serial, e.Available)
}
