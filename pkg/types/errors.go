package types

import (
	"errors"
	"fmt"
)

// ValidationError is returned for malformed input, before any network call
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// APIError is a non-success response from an HTTP service
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, msg)
}

// ChainError is a failed read call, gas estimation or transaction
type ChainError struct {
	Op  string
	Err error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain %s failed: %v", e.Op, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// WrapChain wraps err as a ChainError unless it already is one
func WrapChain(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ChainError
	if errors.As(err, &ce) {
		return err
	}
	return &ChainError{Op: op, Err: err}
}

// StateError is returned when a swap is triggered while one is in flight
type StateError struct {
	Wallet string
	Status ExecutionStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("swap already %s for wallet %s", e.Status, e.Wallet)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAPI(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

func IsChain(err error) bool {
	var target *ChainError
	return errors.As(err, &target)
}

func IsState(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}
