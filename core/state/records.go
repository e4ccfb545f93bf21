package state

import (
	"fmt"

	"nftlend/crypto"
	"nftlend/native/listings"
	"nftlend/native/pools"
	"nftlend/native/tokenmanager"
)

func storedTime(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("state: negative timestamp %d", v)
	}
	return uint64(v), nil
}

func loadedTime(v uint64) (int64, error) {
	if v > 1<<63-1 {
		return 0, fmt.Errorf("state: timestamp overflow %d", v)
	}
	return int64(v), nil
}

type storedLoan struct {
	State       uint8
	Amount      uint64
	Borrower    [32]byte
	Lender      [32]byte
	BasisPoints uint32
	Duration    uint64
	StartDate   uint64
	Mint        [32]byte
	Bump        uint8
}

func newStoredLoan(l *listings.Loan) (*storedLoan, error) {
	duration, err := storedTime(l.Duration)
	if err != nil {
		return nil, err
	}
	start, err := storedTime(l.StartDate)
	if err != nil {
		return nil, err
	}
	return &storedLoan{
		State:       uint8(l.State),
		Amount:      l.Amount,
		Borrower:    l.Borrower,
		Lender:      l.Lender,
		BasisPoints: l.BasisPoints,
		Duration:    duration,
		StartDate:   start,
		Mint:        l.Mint,
		Bump:        l.Bump,
	}, nil
}

func (s *storedLoan) toLoan() (*listings.Loan, error) {
	duration, err := loadedTime(s.Duration)
	if err != nil {
		return nil, err
	}
	start, err := loadedTime(s.StartDate)
	if err != nil {
		return nil, err
	}
	return &listings.Loan{
		State:       listings.LoanState(s.State),
		Amount:      s.Amount,
		Borrower:    crypto.Address(s.Borrower),
		Lender:      crypto.Address(s.Lender),
		BasisPoints: s.BasisPoints,
		Duration:    duration,
		StartDate:   start,
		Mint:        crypto.Address(s.Mint),
		Bump:        s.Bump,
	}, nil
}

type storedCallOption struct {
	State       uint8
	Amount      uint64
	Seller      [32]byte
	Buyer       [32]byte
	Expiry      uint64
	StrikePrice uint64
	Mint        [32]byte
	Bump        uint8
}

func newStoredCallOption(o *listings.CallOption) (*storedCallOption, error) {
	expiry, err := storedTime(o.Expiry)
	if err != nil {
		return nil, err
	}
	return &storedCallOption{
		State:       uint8(o.State),
		Amount:      o.Amount,
		Seller:      o.Seller,
		Buyer:       o.Buyer,
		Expiry:      expiry,
		StrikePrice: o.StrikePrice,
		Mint:        o.Mint,
		Bump:        o.Bump,
	}, nil
}

func (s *storedCallOption) toCallOption() (*listings.CallOption, error) {
	expiry, err := loadedTime(s.Expiry)
	if err != nil {
		return nil, err
	}
	return &listings.CallOption{
		State:       listings.CallOptionState(s.State),
		Amount:      s.Amount,
		Seller:      crypto.Address(s.Seller),
		Buyer:       crypto.Address(s.Buyer),
		Expiry:      expiry,
		StrikePrice: s.StrikePrice,
		Mint:        crypto.Address(s.Mint),
		Bump:        s.Bump,
	}, nil
}

type storedHire struct {
	State         uint8
	Amount        uint64
	Lender        [32]byte
	Borrower      [32]byte
	Expiry        uint64
	CurrentStart  uint64
	CurrentExpiry uint64
	EscrowBalance uint64
	Mint          [32]byte
	Bump          uint8
	EscrowBump    uint8
}

func newStoredHire(h *listings.Hire) (*storedHire, error) {
	var times [3]uint64
	for i, v := range []int64{h.Expiry, h.CurrentStart, h.CurrentExpiry} {
		t, err := storedTime(v)
		if err != nil {
			return nil, err
		}
		times[i] = t
	}
	return &storedHire{
		State:         uint8(h.State),
		Amount:        h.Amount,
		Lender:        h.Lender,
		Borrower:      h.Borrower,
		Expiry:        times[0],
		CurrentStart:  times[1],
		CurrentExpiry: times[2],
		EscrowBalance: h.EscrowBalance,
		Mint:          h.Mint,
		Bump:          h.Bump,
		EscrowBump:    h.EscrowBump,
	}, nil
}

func (s *storedHire) toHire() (*listings.Hire, error) {
	var times [3]int64
	for i, v := range []uint64{s.Expiry, s.CurrentStart, s.CurrentExpiry} {
		t, err := loadedTime(v)
		if err != nil {
			return nil, err
		}
		times[i] = t
	}
	return &listings.Hire{
		State:         listings.HireState(s.State),
		Amount:        s.Amount,
		Lender:        crypto.Address(s.Lender),
		Borrower:      crypto.Address(s.Borrower),
		Expiry:        times[0],
		CurrentStart:  times[1],
		CurrentExpiry: times[2],
		EscrowBalance: s.EscrowBalance,
		Mint:          crypto.Address(s.Mint),
		Bump:          s.Bump,
		EscrowBump:    s.EscrowBump,
	}, nil
}

type storedPool struct {
	Authority   [32]byte
	Collection  [32]byte
	FloorPrice  uint64
	BasisPoints uint32
	Duration    uint64
	Originated  uint64
	Volume      uint64
	Bump        uint8
	VaultBump   uint8
}

// LoanGet loads the loan of borrower against mint.
func (m *Manager) LoanGet(mint, borrower crypto.Address) (*listings.Loan, bool, error) {
	var stored storedLoan
	ok, err := m.KVGet(recordKey(loanPrefix, mint.Bytes(), borrower.Bytes()), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	loan, err := stored.toLoan()
	if err != nil {
		return nil, false, err
	}
	return loan, true, nil
}

// LoanPut stores the loan.
func (m *Manager) LoanPut(loan *listings.Loan) error {
	if loan == nil {
		return fmt.Errorf("state: nil loan")
	}
	stored, err := newStoredLoan(loan)
	if err != nil {
		return err
	}
	return m.KVPut(recordKey(loanPrefix, loan.Mint.Bytes(), loan.Borrower.Bytes()), stored)
}

// LoanDelete removes the loan.
func (m *Manager) LoanDelete(mint, borrower crypto.Address) error {
	return m.KVDelete(recordKey(loanPrefix, mint.Bytes(), borrower.Bytes()))
}

// CallOptionGet loads the option written by seller against mint.
func (m *Manager) CallOptionGet(mint, seller crypto.Address) (*listings.CallOption, bool, error) {
	var stored storedCallOption
	ok, err := m.KVGet(recordKey(callOptionPrefix, mint.Bytes(), seller.Bytes()), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	option, err := stored.toCallOption()
	if err != nil {
		return nil, false, err
	}
	return option, true, nil
}

// CallOptionPut stores the option.
func (m *Manager) CallOptionPut(option *listings.CallOption) error {
	if option == nil {
		return fmt.Errorf("state: nil call option")
	}
	stored, err := newStoredCallOption(option)
	if err != nil {
		return err
	}
	return m.KVPut(recordKey(callOptionPrefix, option.Mint.Bytes(), option.Seller.Bytes()), stored)
}

// CallOptionDelete removes the option.
func (m *Manager) CallOptionDelete(mint, seller crypto.Address) error {
	return m.KVDelete(recordKey(callOptionPrefix, mint.Bytes(), seller.Bytes()))
}

// HireGet loads the hire of mint listed by lender.
func (m *Manager) HireGet(mint, lender crypto.Address) (*listings.Hire, bool, error) {
	var stored storedHire
	ok, err := m.KVGet(recordKey(hirePrefix, mint.Bytes(), lender.Bytes()), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	hire, err := stored.toHire()
	if err != nil {
		return nil, false, err
	}
	return hire, true, nil
}

// HirePut stores the hire.
func (m *Manager) HirePut(hire *listings.Hire) error {
	if hire == nil {
		return fmt.Errorf("state: nil hire")
	}
	stored, err := newStoredHire(hire)
	if err != nil {
		return err
	}
	return m.KVPut(recordKey(hirePrefix, hire.Mint.Bytes(), hire.Lender.Bytes()), stored)
}

// HireDelete removes the hire.
func (m *Manager) HireDelete(mint, lender crypto.Address) error {
	return m.KVDelete(recordKey(hirePrefix, mint.Bytes(), lender.Bytes()))
}

// TokenManagerGet loads the lock record of the pair.
func (m *Manager) TokenManagerGet(mint, issuer crypto.Address) (*tokenmanager.TokenManager, bool, error) {
	var tm tokenmanager.TokenManager
	ok, err := m.KVGet(recordKey(tokenManagerPrefix, mint.Bytes(), issuer.Bytes()), &tm)
	if err != nil || !ok {
		return nil, false, err
	}
	return &tm, true, nil
}

// TokenManagerPut stores the lock record.
func (m *Manager) TokenManagerPut(tm *tokenmanager.TokenManager) error {
	if tm == nil {
		return fmt.Errorf("state: nil token manager")
	}
	return m.KVPut(recordKey(tokenManagerPrefix, tm.Mint.Bytes(), tm.Issuer.Bytes()), tm)
}

// CollectionGet loads the registry record of a collection mint.
func (m *Manager) CollectionGet(collection crypto.Address) (*pools.Collection, bool, error) {
	var record pools.Collection
	ok, err := m.KVGet(recordKey(collectionPrefix, collection.Bytes()), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// CollectionPut stores the collection record.
func (m *Manager) CollectionPut(record *pools.Collection) error {
	if record == nil {
		return fmt.Errorf("state: nil collection")
	}
	return m.KVPut(recordKey(collectionPrefix, record.Collection.Bytes()), record)
}

// PoolGet loads the pool run by authority over collection.
func (m *Manager) PoolGet(collection, authority crypto.Address) (*pools.Pool, bool, error) {
	var stored storedPool
	ok, err := m.KVGet(recordKey(poolPrefix, collection.Bytes(), authority.Bytes()), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	duration, err := loadedTime(stored.Duration)
	if err != nil {
		return nil, false, err
	}
	return &pools.Pool{
		Authority:   crypto.Address(stored.Authority),
		Collection:  crypto.Address(stored.Collection),
		FloorPrice:  stored.FloorPrice,
		BasisPoints: stored.BasisPoints,
		Duration:    duration,
		Originated:  stored.Originated,
		Volume:      stored.Volume,
		Bump:        stored.Bump,
		VaultBump:   stored.VaultBump,
	}, true, nil
}

// PoolPut stores the pool.
func (m *Manager) PoolPut(pool *pools.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	duration, err := storedTime(pool.Duration)
	if err != nil {
		return err
	}
	stored := &storedPool{
		Authority:   pool.Authority,
		Collection:  pool.Collection,
		FloorPrice:  pool.FloorPrice,
		BasisPoints: pool.BasisPoints,
		Duration:    duration,
		Originated:  pool.Originated,
		Volume:      pool.Volume,
		Bump:        pool.Bump,
		VaultBump:   pool.VaultBump,
	}
	return m.KVPut(recordKey(poolPrefix, pool.Collection.Bytes(), pool.Authority.Bytes()), stored)
}

// PoolDelete removes the pool.
func (m *Manager) PoolDelete(collection, authority crypto.Address) error {
	return m.KVDelete(recordKey(poolPrefix, collection.Bytes(), authority.Bytes()))
}
