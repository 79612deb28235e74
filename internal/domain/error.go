package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoActiveSubscription = errors.New("no active subscription")

	// Reconciliation / trust boundary
	ErrSignatureInvalid     = errors.New("gateway signature invalid")
	ErrDuplicateTransaction = errors.New("gateway transaction already recorded")

	// State-machine guards
	ErrAlreadyProcessed = errors.New("request already processed")
	ErrPaymentRequired  = errors.New("active paid subscription required")

	// Storage-layer errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
