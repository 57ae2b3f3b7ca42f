package db

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

func IsDuplicateKeyError(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

// Not found Error
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// ConcurrentUpdateError is returned when a versioned document changed between
// read and write. The operation can be retried.
type ConcurrentUpdateError struct {
	Key     string
	Message string
}

func (e *ConcurrentUpdateError) Error() string {
	return e.Message
}

func IsConcurrentUpdateError(err error) bool {
	var target *ConcurrentUpdateError
	return errors.As(err, &target)
}

// InsufficientBudgetError is returned when a storage budget cannot cover a
// deduction or a first deposit cannot cover the registration cost.
type InsufficientBudgetError struct {
	Key     string
	Message string
}

func (e *InsufficientBudgetError) Error() string {
	return e.Message
}

func IsInsufficientBudgetError(err error) bool {
	var target *InsufficientBudgetError
	return errors.As(err, &target)
}

func isMongoDuplicateKey(err error) bool {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, e := range writeErr.WriteErrors {
			if mongo.IsDuplicateKeyError(e) {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}
