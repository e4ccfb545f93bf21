package common

import "nftlend/crypto"

// TokenLedger is the host capability that moves and locks a single
// non-fungible token. Every call is authorised by the token owner or by the
// delegate previously approved by that owner.
type TokenLedger interface {
	Owner(mint crypto.Address) (crypto.Address, error)
	Approve(mint, owner, delegate crypto.Address) error
	Revoke(mint, authority crypto.Address) error
	Freeze(mint, authority crypto.Address) error
	Thaw(mint, authority crypto.Address) error
	Transfer(mint, authority, to crypto.Address) error
}

// FundTransfer moves native currency between balance accounts.
type FundTransfer interface {
	Transfer(from, to crypto.Address, amount uint64) error
}

// FundLedger is a FundTransfer that can also report balances.
type FundLedger interface {
	FundTransfer
	BalanceOf(addr crypto.Address) (uint64, error)
}

// Creator is one entry of a royalty schedule. Share is a whole percentage.
type Creator struct {
	Address crypto.Address
	Share   uint8
}

// AssetMetadata is the registry record for a mint.
type AssetMetadata struct {
	Address              crypto.Address
	Mint                 crypto.Address
	Collection           crypto.Address
	SellerFeeBasisPoints uint16
	Creators             []Creator
}

// AssetRegistry resolves the metadata record for a mint. Implementations
// reject missing records and records whose address is not derived from the
// mint.
type AssetRegistry interface {
	Lookup(mint crypto.Address) (*AssetMetadata, error)
}

// Errors shared by host implementations.
var (
	ErrInsufficientFunds  = NewError(ErrPreconditionViolation, "insufficient funds")
	ErrTokenNotFound      = NewError(ErrPreconditionViolation, "token not found")
	ErrTokenFrozen        = NewError(ErrPreconditionViolation, "token account frozen")
	ErrTokenNotFrozen     = NewError(ErrPreconditionViolation, "token account not frozen")
	ErrTokenUnauthorized  = NewError(ErrIdentityMismatch, "token authority mismatch")
	ErrMetadataNotFound   = NewError(ErrPreconditionViolation, "metadata does not exist")
	ErrMetadataDerivation = NewError(ErrIdentityMismatch, "metadata address not derived from mint")
)
