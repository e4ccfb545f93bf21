// Package hosttest provides in-memory host collaborators for engine tests.
// They enforce the same authorisation rules as the state-backed
// implementations and record every call.
package hosttest

import (
	"sync"

	"nftlend/crypto"
	"nftlend/native/common"
)

// Token ledger operations recorded in Calls.
const (
	OpApprove  = "approve"
	OpRevoke   = "revoke"
	OpFreeze   = "freeze"
	OpThaw     = "thaw"
	OpTransfer = "transfer"
)

// Call is one recorded token ledger invocation.
type Call struct {
	Op     string
	Mint   crypto.Address
	Actor  crypto.Address
	Target crypto.Address
}

type tokenAccount struct {
	owner    crypto.Address
	delegate crypto.Address
	frozen   bool
}

// TokenLedger is an in-memory common.TokenLedger.
type TokenLedger struct {
	mu     sync.Mutex
	tokens map[crypto.Address]*tokenAccount
	Calls  []Call
}

// NewTokenLedger returns an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{tokens: make(map[crypto.Address]*tokenAccount)}
}

// Mint creates a token held by owner.
func (l *TokenLedger) Mint(mint, owner crypto.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[mint] = &tokenAccount{owner: owner}
}

// Owner implements common.TokenLedger.
func (l *TokenLedger) Owner(mint crypto.Address) (crypto.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.tokens[mint]
	if !ok {
		return crypto.ZeroAddress, common.ErrTokenNotFound
	}
	return acct.owner, nil
}

// Delegate returns the approved delegate of the token.
func (l *TokenLedger) Delegate(mint crypto.Address) crypto.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.tokens[mint]; ok {
		return acct.delegate
	}
	return crypto.ZeroAddress
}

// Frozen reports whether the token is frozen.
func (l *TokenLedger) Frozen(mint crypto.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.tokens[mint]; ok {
		return acct.frozen
	}
	return false
}

// Count returns how many times op was called.
func (l *TokenLedger) Count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, call := range l.Calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (l *TokenLedger) ResetCalls() {
	l.mu.Lock()
	l.Calls = nil
	l.mu.Unlock()
}

func (l *TokenLedger) account(mint crypto.Address) (*tokenAccount, error) {
	acct, ok := l.tokens[mint]
	if !ok {
		return nil, common.ErrTokenNotFound
	}
	return acct, nil
}

// Approve implements common.TokenLedger.
func (l *TokenLedger) Approve(mint, owner, delegate crypto.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.account(mint)
	if err != nil {
		return err
	}
	if !acct.owner.Equals(owner) {
		return common.ErrTokenUnauthorized
	}
	if acct.frozen {
		return common.ErrTokenFrozen
	}
	acct.delegate = delegate
	l.Calls = append(l.Calls, Call{Op: OpApprove, Mint: mint, Actor: owner, Target: delegate})
	return nil
}

// Revoke implements common.TokenLedger.
func (l *TokenLedger) Revoke(mint, authority crypto.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.account(mint)
	if err != nil {
		return err
	}
	if !acct.owner.Equals(authority) && !acct.delegate.Equals(authority) {
		return common.ErrTokenUnauthorized
	}
	if acct.frozen {
		return common.ErrTokenFrozen
	}
	acct.delegate = crypto.ZeroAddress
	l.Calls = append(l.Calls, Call{Op: OpRevoke, Mint: mint, Actor: authority})
	return nil
}

// Freeze implements common.TokenLedger.
func (l *TokenLedger) Freeze(mint, authority crypto.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.account(mint)
	if err != nil {
		return err
	}
	if acct.delegate.IsZero() || !acct.delegate.Equals(authority) {
		return common.ErrTokenUnauthorized
	}
	if acct.frozen {
		return common.ErrTokenFrozen
	}
	acct.frozen = true
	l.Calls = append(l.Calls, Call{Op: OpFreeze, Mint: mint, Actor: authority})
	return nil
}

// Thaw implements common.TokenLedger.
func (l *TokenLedger) Thaw(mint, authority crypto.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.account(mint)
	if err != nil {
		return err
	}
	if acct.delegate.IsZero() || !acct.delegate.Equals(authority) {
		return common.ErrTokenUnauthorized
	}
	if !acct.frozen {
		return common.ErrTokenNotFrozen
	}
	acct.frozen = false
	l.Calls = append(l.Calls, Call{Op: OpThaw, Mint: mint, Actor: authority})
	return nil
}

// Transfer implements common.TokenLedger.
func (l *TokenLedger) Transfer(mint, authority, to crypto.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.account(mint)
	if err != nil {
		return err
	}
	if acct.frozen {
		return common.ErrTokenFrozen
	}
	if !acct.owner.Equals(authority) && (acct.delegate.IsZero() || !acct.delegate.Equals(authority)) {
		return common.ErrTokenUnauthorized
	}
	acct.owner = to
	acct.delegate = crypto.ZeroAddress
	l.Calls = append(l.Calls, Call{Op: OpTransfer, Mint: mint, Actor: authority, Target: to})
	return nil
}

// Payment is one recorded fund transfer.
type Payment struct {
	From   crypto.Address
	To     crypto.Address
	Amount uint64
}

// Funds is an in-memory common.FundLedger.
type Funds struct {
	mu       sync.Mutex
	balances map[crypto.Address]uint64
	Payments []Payment
}

// NewFunds returns an empty balance book.
func NewFunds() *Funds {
	return &Funds{balances: make(map[crypto.Address]uint64)}
}

// Credit adds amount to the account.
func (f *Funds) Credit(addr crypto.Address, amount uint64) {
	f.mu.Lock()
	f.balances[addr] += amount
	f.mu.Unlock()
}

// Balance returns the account balance.
func (f *Funds) Balance(addr crypto.Address) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[addr]
}

// BalanceOf implements common.FundLedger.
func (f *Funds) BalanceOf(addr crypto.Address) (uint64, error) {
	return f.Balance(addr), nil
}

// Transfer implements common.FundTransfer.
func (f *Funds) Transfer(from, to crypto.Address, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount == 0 {
		return nil
	}
	if f.balances[from] < amount {
		return common.ErrInsufficientFunds
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	f.Payments = append(f.Payments, Payment{From: from, To: to, Amount: amount})
	return nil
}

// Registry is an in-memory common.AssetRegistry.
type Registry struct {
	mu      sync.Mutex
	records map[crypto.Address]*common.AssetMetadata
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[crypto.Address]*common.AssetMetadata)}
}

// Set stores the metadata for its mint.
func (r *Registry) Set(meta *common.AssetMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *meta
	clone.Creators = append([]common.Creator(nil), meta.Creators...)
	r.records[meta.Mint] = &clone
}

// Lookup implements common.AssetRegistry.
func (r *Registry) Lookup(mint crypto.Address) (*common.AssetMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.records[mint]
	if !ok {
		return nil, common.ErrMetadataNotFound
	}
	clone := *meta
	clone.Creators = append([]common.Creator(nil), meta.Creators...)
	return &clone, nil
}
