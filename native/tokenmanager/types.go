package tokenmanager

import (
	"fmt"

	"nftlend/crypto"
)

// Prefix is the derivation seed of the token manager authority.
const Prefix = "token_manager"

// Kind names a claim that can hold the collateral lock.
type Kind uint8

const (
	KindLoan Kind = iota + 1
	KindCallOption
	KindHire
)

func (k Kind) String() string {
	switch k {
	case KindLoan:
		return "loan"
	case KindCallOption:
		return "call_option"
	case KindHire:
		return "hire"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known claim kind.
func (k Kind) Valid() bool {
	return k >= KindLoan && k <= KindHire
}

// TokenManager records which claims currently depend on the collateral being
// frozen. One record exists per (mint, issuer) pair; the issuer is the owner
// who pledged the collateral.
type TokenManager struct {
	Mint       crypto.Address
	Issuer     crypto.Address
	Loan       bool
	CallOption bool
	Hire       bool
	Bump       uint8
}

// Held reports whether kind holds the lock.
func (tm *TokenManager) Held(kind Kind) bool {
	if tm == nil {
		return false
	}
	switch kind {
	case KindLoan:
		return tm.Loan
	case KindCallOption:
		return tm.CallOption
	case KindHire:
		return tm.Hire
	}
	return false
}

// Locked is the logical OR of the three flags. The token is frozen and
// delegated exactly when Locked is true.
func (tm *TokenManager) Locked() bool {
	if tm == nil {
		return false
	}
	return tm.Loan || tm.CallOption || tm.Hire
}

func (tm *TokenManager) set(kind Kind, value bool) {
	switch kind {
	case KindLoan:
		tm.Loan = value
	case KindCallOption:
		tm.CallOption = value
	case KindHire:
		tm.Hire = value
	}
}

// Clone returns a copy of the record.
func (tm *TokenManager) Clone() *TokenManager {
	if tm == nil {
		return nil
	}
	clone := *tm
	return &clone
}
