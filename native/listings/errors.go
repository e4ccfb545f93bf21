package listings

import (
	"errors"

	"nftlend/native/common"
)

var (
	errNilState    = errors.New("listings engine: state not configured")
	errNilFunds    = errors.New("listings engine: fund transfer not configured")
	errNilLedger   = errors.New("listings engine: token ledger not configured")
	errNilRegistry = errors.New("listings engine: asset registry not configured")

	ErrLoanNotFound       = common.NewError(common.ErrPreconditionViolation, "listings engine: loan not found")
	ErrCallOptionNotFound = common.NewError(common.ErrPreconditionViolation, "listings engine: call option not found")
	ErrHireNotFound       = common.NewError(common.ErrPreconditionViolation, "listings engine: hire not found")
	ErrInvalidState       = common.NewError(common.ErrPreconditionViolation, "listings engine: invalid state")
	ErrInvalidAmount      = common.NewError(common.ErrPreconditionViolation, "listings engine: amount must be positive")
	ErrInvalidDuration    = common.NewError(common.ErrPreconditionViolation, "listings engine: duration out of range")
	ErrInvalidDays        = common.NewError(common.ErrPreconditionViolation, "listings engine: days must be positive")
	ErrBorrowerNotNamed   = common.NewError(common.ErrPreconditionViolation, "listings engine: borrower not specified")
	ErrHireNotHired       = common.NewError(common.ErrPreconditionViolation, "listings engine: hire lock requires an active hire")
	ErrHireOccupied       = common.NewError(common.ErrPreconditionViolation, "listings engine: hire has a borrower")
	ErrInvalidMetadata    = common.NewError(common.ErrPreconditionViolation, "listings engine: metadata does not match mint")

	ErrNotOverdue       = common.NewError(common.ErrNotYetEligible, "listings engine: loan not overdue")
	ErrOptionNotExpired = common.NewError(common.ErrNotYetEligible, "listings engine: option not expired")
	ErrHireNotExpired   = common.NewError(common.ErrNotYetEligible, "listings engine: hire not expired")

	ErrInvalidExpiry   = common.NewError(common.ErrAlreadyExpired, "listings engine: expiry must be in the future")
	ErrOptionExpired   = common.NewError(common.ErrAlreadyExpired, "listings engine: option expired")
	ErrLoanTermElapsed = common.NewError(common.ErrAlreadyExpired, "listings engine: loan term elapsed")
	ErrHireTooLong     = common.NewError(common.ErrAlreadyExpired, "listings engine: hire would outlast listing expiry")

	ErrSelfDealing      = common.NewError(common.ErrIdentityMismatch, "listings engine: counterparty must differ")
	ErrUnauthorized     = common.NewError(common.ErrIdentityMismatch, "listings engine: caller does not hold the required role")
	ErrBorrowerMismatch = common.NewError(common.ErrIdentityMismatch, "listings engine: borrower mismatch")
	ErrNotTokenOwner    = common.NewError(common.ErrIdentityMismatch, "listings engine: caller does not own the collateral")

	ErrLoanLocked       = common.NewError(common.ErrConflictingClaim, "listings engine: collateral already backs a loan")
	ErrCallOptionLocked = common.NewError(common.ErrConflictingClaim, "listings engine: collateral already backs a call option")
	ErrHireLocked       = common.NewError(common.ErrConflictingClaim, "listings engine: collateral already listed for hire")
	ErrLoanExists       = common.NewError(common.ErrConflictingClaim, "listings engine: loan record exists")
	ErrCallOptionExists = common.NewError(common.ErrConflictingClaim, "listings engine: call option record exists")
	ErrHireExists       = common.NewError(common.ErrConflictingClaim, "listings engine: hire record exists")
)
