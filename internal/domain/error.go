package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrAlreadyExists         = errors.New("entity already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrOperationFailed       = errors.New("repository operation failed")
	ErrInvalidExecContext    = errors.New("invalid transaction execution context")
	ErrReadDatabaseRow       = errors.New("failed to read database row")
	ErrDuplicateRegistration = errors.New("user already has a paid registration")
	ErrCategoryFull          = errors.New("registration category is full")
	ErrNoPaymentMethod       = errors.New("no saved payment method on file")
	ErrMembershipRequired    = errors.New("required membership not held")
	ErrRefundExceedsPayment  = errors.New("refund amount exceeds original payment")
	ErrStaleTransition       = errors.New("staged transaction already advanced")
	ErrLockNotAcquired       = errors.New("could not acquire registration lock")
	ErrNotStaged             = errors.New("transaction has not been staged")
	ErrSettlementPending     = errors.New("charge submitted, settlement pending confirmation")
)
