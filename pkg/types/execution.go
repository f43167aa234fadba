package types

import (
	"strings"
	"time"
)

// ExecutionStatus is the state of one swap execution
type ExecutionStatus string

const (
	StatusIdle       ExecutionStatus = "idle"
	StatusGating     ExecutionStatus = "gating"
	StatusSubmitting ExecutionStatus = "submitting"
	StatusSubmitted  ExecutionStatus = "submitted"
	StatusFailed     ExecutionStatus = "failed"
)

// InFlight reports whether the status occupies the wallet's execution slot
func (s ExecutionStatus) InFlight() bool {
	return s == StatusGating || s == StatusSubmitting
}

// Terminal reports whether no further transitions can happen
func (s ExecutionStatus) Terminal() bool {
	return s == StatusSubmitted || s == StatusFailed
}

// Step names the point of failure of an execution
const (
	StepGating = "gating"
	StepQuote  = "quote"
	StepBuild  = "build"
	StepSubmit = "submit"
)

// SwapExecution is the run record of one user-triggered swap
type SwapExecution struct {
	ID         string          `json:"id"`
	Wallet     string          `json:"wallet"`
	Status     ExecutionStatus `json:"status"`
	Request    QuoteRequest    `json:"request"`
	Price      *Price          `json:"price,omitempty"`
	Quote      *Quote          `json:"quote,omitempty"`
	Gas        GasTier         `json:"gas"`
	Approval   *AllowanceState `json:"approval,omitempty"`
	TxHash     string          `json:"tx_hash,omitempty"`
	FailedStep string          `json:"failed_step,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ActivityStatus classifies an activity record for display
type ActivityStatus string

const (
	ActivityPending ActivityStatus = "pending"
	ActivitySuccess ActivityStatus = "success"
	ActivityError   ActivityStatus = "error"
)

// ActivityRecord is one transaction in the wallet's activity feed
type ActivityRecord struct {
	Hash          string    `json:"hash"`
	Timestamp     time.Time `json:"timestamp"`
	Confirmations uint64    `json:"confirmations"`
	IsError       bool      `json:"is_error"`
	Optimistic    bool      `json:"optimistic,omitempty"`
}

// Status classifies the record by confirmations and revert flag
func (r ActivityRecord) Status() ActivityStatus {
	switch {
	case r.Confirmations == 0:
		return ActivityPending
	case r.IsError:
		return ActivityError
	default:
		return ActivitySuccess
	}
}

// SameTx reports whether both records refer to the same transaction
func (r ActivityRecord) SameTx(other ActivityRecord) bool {
	return strings.EqualFold(r.Hash, other.Hash)
}
