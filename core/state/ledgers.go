package state

import (
	"fmt"

	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/fees"
)

// MetadataPrefix seeds the derivation of asset metadata addresses.
const MetadataPrefix = "metadata"

// Balances is the native currency ledger kept in state.
type Balances struct {
	m *Manager
}

// Balances returns the currency ledger view of the manager.
func (m *Manager) Balances() *Balances { return &Balances{m: m} }

// BalanceOf implements common.FundLedger.
func (b *Balances) BalanceOf(addr crypto.Address) (uint64, error) {
	var balance uint64
	if _, err := b.m.KVGet(recordKey(balancePrefix, addr.Bytes()), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (b *Balances) set(addr crypto.Address, balance uint64) error {
	key := recordKey(balancePrefix, addr.Bytes())
	if balance == 0 {
		return b.m.KVDelete(key)
	}
	return b.m.KVPut(key, balance)
}

// Credit mints amount into addr. It is used when loading seed balances.
func (b *Balances) Credit(addr crypto.Address, amount uint64) error {
	balance, err := b.BalanceOf(addr)
	if err != nil {
		return err
	}
	next, err := fees.CheckedAdd(balance, amount)
	if err != nil {
		return err
	}
	return b.set(addr, next)
}

// Transfer implements common.FundTransfer.
func (b *Balances) Transfer(from, to crypto.Address, amount uint64) error {
	if amount == 0 || from.Equals(to) {
		return nil
	}
	fromBalance, err := b.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", common.ErrInsufficientFunds, from, fromBalance, amount)
	}
	toBalance, err := b.BalanceOf(to)
	if err != nil {
		return err
	}
	credited, err := fees.CheckedAdd(toBalance, amount)
	if err != nil {
		return err
	}
	if err := b.set(from, fromBalance-amount); err != nil {
		return err
	}
	return b.set(to, credited)
}

type storedToken struct {
	Owner    [32]byte
	Delegate [32]byte
	Frozen   bool
}

// Tokens is the non-fungible token ledger kept in state. Each mint has one
// account with an owner, an optional delegate and a frozen flag.
type Tokens struct {
	m *Manager
}

// Tokens returns the token ledger view of the manager.
func (m *Manager) Tokens() *Tokens { return &Tokens{m: m} }

func (t *Tokens) load(mint crypto.Address) (*storedToken, error) {
	var acct storedToken
	ok, err := t.m.KVGet(recordKey(tokenPrefix, mint.Bytes()), &acct)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrTokenNotFound
	}
	return &acct, nil
}

func (t *Tokens) store(mint crypto.Address, acct *storedToken) error {
	return t.m.KVPut(recordKey(tokenPrefix, mint.Bytes()), acct)
}

// Mint creates the token account of mint held by owner.
func (t *Tokens) Mint(mint, owner crypto.Address) error {
	if ok, err := t.m.KVGet(recordKey(tokenPrefix, mint.Bytes()), nil); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("state: token %s already minted", mint)
	}
	return t.store(mint, &storedToken{Owner: owner})
}

// Owner implements common.TokenLedger.
func (t *Tokens) Owner(mint crypto.Address) (crypto.Address, error) {
	acct, err := t.load(mint)
	if err != nil {
		return crypto.ZeroAddress, err
	}
	return crypto.Address(acct.Owner), nil
}

// Frozen reports whether the token account is frozen.
func (t *Tokens) Frozen(mint crypto.Address) (bool, error) {
	acct, err := t.load(mint)
	if err != nil {
		return false, err
	}
	return acct.Frozen, nil
}

// Delegate returns the approved delegate of the token, if any.
func (t *Tokens) Delegate(mint crypto.Address) (crypto.Address, error) {
	acct, err := t.load(mint)
	if err != nil {
		return crypto.ZeroAddress, err
	}
	return crypto.Address(acct.Delegate), nil
}

func isDelegate(acct *storedToken, authority crypto.Address) bool {
	delegate := crypto.Address(acct.Delegate)
	return !delegate.IsZero() && delegate.Equals(authority)
}

// Approve implements common.TokenLedger.
func (t *Tokens) Approve(mint, owner, delegate crypto.Address) error {
	acct, err := t.load(mint)
	if err != nil {
		return err
	}
	if !crypto.Address(acct.Owner).Equals(owner) {
		return common.ErrTokenUnauthorized
	}
	if acct.Frozen {
		return common.ErrTokenFrozen
	}
	acct.Delegate = delegate
	return t.store(mint, acct)
}

// Revoke implements common.TokenLedger.
func (t *Tokens) Revoke(mint, authority crypto.Address) error {
	acct, err := t.load(mint)
	if err != nil {
		return err
	}
	if !crypto.Address(acct.Owner).Equals(authority) && !isDelegate(acct, authority) {
		return common.ErrTokenUnauthorized
	}
	if acct.Frozen {
		return common.ErrTokenFrozen
	}
	acct.Delegate = crypto.ZeroAddress
	return t.store(mint, acct)
}

// Freeze implements common.TokenLedger.
func (t *Tokens) Freeze(mint, authority crypto.Address) error {
	acct, err := t.load(mint)
	if err != nil {
		return err
	}
	if !isDelegate(acct, authority) {
		return common.ErrTokenUnauthorized
	}
	if acct.Frozen {
		return common.ErrTokenFrozen
	}
	acct.Frozen = true
	return t.store(mint, acct)
}

// Thaw implements common.TokenLedger.
func (t *Tokens) Thaw(mint, authority crypto.Address) error {
	acct, err := t.load(mint)
	if err != nil {
		return err
	}
	if !isDelegate(acct, authority) {
		return common.ErrTokenUnauthorized
	}
	if !acct.Frozen {
		return common.ErrTokenNotFrozen
	}
	acct.Frozen = false
	return t.store(mint, acct)
}

// Transfer implements common.TokenLedger. The delegate does not survive a
// change of owner.
func (t *Tokens) Transfer(mint, authority, to crypto.Address) error {
	acct, err := t.load(mint)
	if err != nil {
		return err
	}
	if acct.Frozen {
		return common.ErrTokenFrozen
	}
	if !crypto.Address(acct.Owner).Equals(authority) && !isDelegate(acct, authority) {
		return common.ErrTokenUnauthorized
	}
	acct.Owner = to
	acct.Delegate = crypto.ZeroAddress
	return t.store(mint, acct)
}

type storedCreator struct {
	Address [32]byte
	Share   uint8
}

type storedMetadata struct {
	Address              [32]byte
	Mint                 [32]byte
	Collection           [32]byte
	SellerFeeBasisPoints uint16
	Creators             []storedCreator
}

// Registry is the asset metadata registry kept in state. Metadata addresses
// are derived from the mint under the metadata program.
type Registry struct {
	m       *Manager
	program crypto.Address
}

// Registry returns the metadata registry view of the manager.
func (m *Manager) Registry(metadataProgram crypto.Address) *Registry {
	return &Registry{m: m, program: metadataProgram}
}

// MetadataAddress derives the metadata account of mint.
func (r *Registry) MetadataAddress(mint crypto.Address) (crypto.Address, error) {
	addr, _, err := crypto.DeriveProgramAddress(r.program, []byte(MetadataPrefix), r.program.Bytes(), mint.Bytes())
	return addr, err
}

// Put stores metadata for its mint. A zero Address is filled with the derived
// metadata account.
func (r *Registry) Put(meta *common.AssetMetadata) error {
	if meta == nil || meta.Mint.IsZero() {
		return fmt.Errorf("state: metadata requires a mint")
	}
	addr := meta.Address
	if addr.IsZero() {
		derived, err := r.MetadataAddress(meta.Mint)
		if err != nil {
			return err
		}
		addr = derived
	}
	stored := &storedMetadata{
		Address:              addr,
		Mint:                 meta.Mint,
		Collection:           meta.Collection,
		SellerFeeBasisPoints: meta.SellerFeeBasisPoints,
	}
	for _, creator := range meta.Creators {
		stored.Creators = append(stored.Creators, storedCreator{Address: creator.Address, Share: creator.Share})
	}
	return r.m.KVPut(recordKey(metadataPrefix, meta.Mint.Bytes()), stored)
}

// Lookup implements common.AssetRegistry.
func (r *Registry) Lookup(mint crypto.Address) (*common.AssetMetadata, error) {
	var stored storedMetadata
	ok, err := r.m.KVGet(recordKey(metadataPrefix, mint.Bytes()), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrMetadataNotFound
	}
	expected, err := r.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	if !expected.Equals(crypto.Address(stored.Address)) {
		return nil, common.ErrMetadataDerivation
	}
	meta := &common.AssetMetadata{
		Address:              crypto.Address(stored.Address),
		Mint:                 crypto.Address(stored.Mint),
		Collection:           crypto.Address(stored.Collection),
		SellerFeeBasisPoints: stored.SellerFeeBasisPoints,
	}
	for _, creator := range stored.Creators {
		meta.Creators = append(meta.Creators, common.Creator{Address: crypto.Address(creator.Address), Share: creator.Share})
	}
	return meta, nil
}
