// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"fmt"
)

// ValidationError reports a request that is malformed before any building starts:
// an empty funding list, an empty inscription list, or a funding entry missing its key.
type ValidationError struct {
	Msg string
}

// NewValidationError is a constructor for ValidationError.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

// Error returns error description.
func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// Is implements comparator method for [errors] package.
func (e *ValidationError) Is(target error) bool {
	other, ok := target.(*ValidationError)

	return ok && e.Error() == other.Error()
}

// FundingShortage reports that the supplied funding outputs cannot carry the
// requested chain layout: too few UTXOs, or a commit/reveal cannot clear its fee and dust.
type FundingShortage struct {
	Msg  string
	Need int64
	Have int64
}

// NewFundingShortage is a constructor for FundingShortage.
func NewFundingShortage(msg string, need, have int64) *FundingShortage {
	return &FundingShortage{Msg: msg, Need: need, Have: have}
}

// Error returns error description.
func (e *FundingShortage) Error() string {
	return fmt.Sprintf("funding shortage: %s (need %d, have %d)", e.Msg, e.Need, e.Have)
}

// Is implements comparator method for [errors] package.
func (e *FundingShortage) Is(target error) bool {
	other, ok := target.(*FundingShortage)

	return ok && e.Error() == other.Error()
}

// SigningFailure reports that signing could not proceed: a script mismatch between
// the previous output and its recorded InscriptionContext, a missing ContextMap
// entry, or an unsupported address type on a funding input.
type SigningFailure struct {
	Msg string
}

// NewSigningFailure is a constructor for SigningFailure.
func NewSigningFailure(msg string) *SigningFailure {
	return &SigningFailure{Msg: msg}
}

// Error returns error description.
func (e *SigningFailure) Error() string {
	return "signing failure: " + e.Msg
}

// Is implements comparator method for [errors] package.
func (e *SigningFailure) Is(target error) bool {
	other, ok := target.(*SigningFailure)

	return ok && e.Error() == other.Error()
}

// InternalInvariant reports a condition the engine treats as fatal and unreachable
// under correct operation: misaligned counts, an impossible estimator branch.
type InternalInvariant struct {
	Msg string
}

// NewInternalInvariant is a constructor for InternalInvariant.
func NewInternalInvariant(msg string) *InternalInvariant {
	return &InternalInvariant{Msg: msg}
}

// Error returns error description.
func (e *InternalInvariant) Error() string {
	return "internal invariant violated: " + e.Msg
}

// Is implements comparator method for [errors] package.
func (e *InternalInvariant) Is(target error) bool {
	other, ok := target.(*InternalInvariant)

	return ok && e.Error() == other.Error()
}
