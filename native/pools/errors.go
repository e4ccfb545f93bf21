package pools

import (
	"errors"

	"nftlend/native/common"
)

var (
	errNilState    = errors.New("pools engine: state not configured")
	errNilFunds    = errors.New("pools engine: fund ledger not configured")
	errNilLoans    = errors.New("pools engine: loan desk not configured")
	errNilRegistry = errors.New("pools engine: asset registry not configured")

	ErrCollectionNotFound = common.NewError(common.ErrPreconditionViolation, "pools engine: collection not registered")
	ErrPoolNotFound       = common.NewError(common.ErrPreconditionViolation, "pools engine: pool not found")
	ErrInvalidTerms       = common.NewError(common.ErrPreconditionViolation, "pools engine: invalid pool terms")
	ErrInvalidAmount      = common.NewError(common.ErrPreconditionViolation, "pools engine: amount must be positive")
	ErrInsufficientFunds  = common.NewError(common.ErrPreconditionViolation, "pools engine: insufficient vault funds")
	ErrVaultNotEmpty      = common.NewError(common.ErrPreconditionViolation, "pools engine: vault still holds funds")
	ErrCollectionUnset    = common.NewError(common.ErrPreconditionViolation, "pools engine: mint has no collection")

	ErrNotAdmin           = common.NewError(common.ErrIdentityMismatch, "pools engine: caller is not the admin")
	ErrCollectionMismatch = common.NewError(common.ErrIdentityMismatch, "pools engine: mint outside pool collection")
	ErrNotPoolLoan        = common.NewError(common.ErrIdentityMismatch, "pools engine: loan not funded by pool")

	ErrCollectionExists = common.NewError(common.ErrConflictingClaim, "pools engine: collection already registered")
	ErrPoolExists       = common.NewError(common.ErrConflictingClaim, "pools engine: pool already exists")
)
