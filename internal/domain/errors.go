// Package domain contains business logic types and errors.
// Errors here describe what went wrong with quotes, the feed or the store;
// adapters decide how to present them.
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable means the remote feed could not be used this time.
	ErrUnavailable = errors.New("unavailable")

	// ErrStorageUnavailable means a read or write against the persistent
	// store failed. The in-memory collection stays authoritative.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrThrottled means an on-demand sync ran too soon after the last ones.
	ErrThrottled = errors.New("throttled")
)

func IsNotFound(err error) bool           { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool         { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool        { return errors.Is(err, ErrUnavailable) }
func IsStorageUnavailable(err error) bool { return errors.Is(err, ErrStorageUnavailable) }
func IsThrottled(err error) bool          { return errors.Is(err, ErrThrottled) }

// NotFoundError names what was looked up, e.g. quotes in a category.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError rejects a quote or an import record. Field is a path
// such as "text" or "quotes[2].category"; it is empty for whole-document
// problems.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnavailableError is a failed feed fetch. Reason is safe to return to callers.
type UnavailableError struct {
	Service string
	Reason  string
}

func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("service %q unavailable", e.Service)
	}

	return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// StorageError is a failed "load" or "save" of one key. It matches
// ErrStorageUnavailable and unwraps to the driver's error.
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func NewStorageError(op, key string, cause error) error {
	return &StorageError{Op: op, Key: key, Cause: cause}
}

func (e *StorageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("storage %s %q failed", e.Op, e.Key)
	}

	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Cause)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

func (e *StorageError) Unwrap() error { return e.Cause }
