// Package faults classifies every failure the staking engine can report.
//
// Each sentinel carries a Kind, so callers can match either the exact failure
// or its whole class:
//
//	errors.Is(err, faults.ErrOverflow)  // this failure
//	errors.Is(err, faults.Arithmetic)   // any arithmetic failure
//
// Wrapping with fmt.Errorf("...: %w", err) preserves both matches.
package faults

import "errors"

// Kind is the class of a failure.
type Kind uint8

const (
	Validation Kind = iota + 1
	Arithmetic
	Authorization
	ExternalTransfer
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Arithmetic:
		return "arithmetic"
	case Authorization:
		return "authorization"
	case ExternalTransfer:
		return "external transfer"
	}
	return "unknown"
}

// Error implements error so a Kind can be used as an errors.Is target.
func (k Kind) Error() string { return k.String() + " error" }

// Error is a classified failure.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Code }

// Is reports whether target is this error or this error's Kind.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return e == target
}

func newError(kind Kind, code string) *Error { return &Error{Kind: kind, Code: code} }

// Validation failures.
var (
	ErrNotAllowedOwner          = newError(Validation, "not allowed owner")
	ErrMaxStakingAmountAttained = newError(Validation, "max staking amount attained")
	ErrNotStaked                = newError(Validation, "not staked")
	ErrNotInitialized           = newError(Validation, "not initialized")
	ErrPaused                   = newError(Validation, "paused")
	ErrZeroAmount               = newError(Validation, "zero amount")
	ErrNonceMismatch            = newError(Validation, "nonce mismatch")
	ErrInvalidPayload           = newError(Validation, "invalid payload")
)

// Arithmetic failures.
var (
	ErrOverflow       = newError(Arithmetic, "overflow")
	ErrUnderflow      = newError(Arithmetic, "underflow")
	ErrDivisionByZero = newError(Arithmetic, "division by zero")
)

// Authorization failures.
var (
	ErrIdentityMismatch = newError(Authorization, "identity mismatch")
	ErrNotMinter        = newError(Authorization, "not minter")
	ErrNotOwner         = newError(Authorization, "not owner")
	ErrInvalidSignature = newError(Authorization, "invalid signature")
)

// External transfer failures.
var (
	ErrInsufficientBalance  = newError(ExternalTransfer, "insufficient balance")
	ErrAssetMismatch        = newError(ExternalTransfer, "asset mismatch")
	ErrUnknownAsset         = newError(ExternalTransfer, "unknown asset")
	ErrTransferUnauthorized = newError(ExternalTransfer, "transfer unauthorized")
)

// KindOf returns the Kind of the first classified error in err's chain, or
// zero if err carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
