package common

import "errors"

// Failure kinds shared by every protocol module. Module errors wrap exactly one
// of these so callers can classify a failure with errors.Is.
var (
	ErrPreconditionViolation = errors.New("precondition violation")
	ErrNotYetEligible        = errors.New("not yet eligible")
	ErrAlreadyExpired        = errors.New("already expired")
	ErrIdentityMismatch      = errors.New("identity mismatch")
	ErrConflictingClaim      = errors.New("conflicting claim")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
)

var kinds = []error{
	ErrPreconditionViolation,
	ErrNotYetEligible,
	ErrAlreadyExpired,
	ErrIdentityMismatch,
	ErrConflictingClaim,
	ErrArithmeticOverflow,
}

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewError builds a module error that classifies as kind.
func NewError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// KindOf returns the failure kind wrapped by err, or nil when err is not a
// classified protocol failure.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName returns a stable label for the kind of err, used for metrics and
// RPC error data.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrPreconditionViolation:
		return "precondition_violation"
	case ErrNotYetEligible:
		return "not_yet_eligible"
	case ErrAlreadyExpired:
		return "already_expired"
	case ErrIdentityMismatch:
		return "identity_mismatch"
	case ErrConflictingClaim:
		return "conflicting_claim"
	case ErrArithmeticOverflow:
		return "arithmetic_overflow"
	}
	if errors.Is(err, ErrModulePaused) {
		return "paused"
	}
	return "internal"
}
