package models

import "errors"

var (
	// ErrInvalidOrderParameters is returned when an order is rejected before any state change.
	ErrInvalidOrderParameters = errors.New("invalid order parameters")
	// ErrOrderNotCancellable is returned when the order is absent, filled or already cancelled.
	ErrOrderNotCancellable = errors.New("order not cancellable")
	// ErrInconsistentOrderState is returned when a stored order violates the fill invariants.
	ErrInconsistentOrderState = errors.New("inconsistent order state")
	// ErrStorageUnavailable is returned when the store cannot complete an operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrOrderNotFound is returned by lookups of an unknown order id.
	ErrOrderNotFound = errors.New("order not found")
)
