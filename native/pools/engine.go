package pools

import (
	"time"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/fees"
	"nftlend/native/listings"
)

type engineState interface {
	CollectionGet(collection crypto.Address) (*Collection, bool, error)
	CollectionPut(collection *Collection) error
	PoolGet(collection, authority crypto.Address) (*Pool, bool, error)
	PoolPut(pool *Pool) error
	PoolDelete(collection, authority crypto.Address) error
}

// loanDesk is the part of the listings engine a pool lends through.
type loanDesk interface {
	InitLoan(borrower, mint crypto.Address, terms listings.LoanTerms) (*listings.Loan, error)
	GiveLoan(lender, mint, borrower crypto.Address) (*listings.Loan, error)
	GetLoan(mint, borrower crypto.Address) (*listings.Loan, error)
	RepossessTo(lender, mint, borrower, recipient crypto.Address) (*listings.Loan, error)
}

// Engine manages the collection registry and the lending pools built on it.
type Engine struct {
	state     engineState
	programID crypto.Address
	admin     crypto.Address
	loans     loanDesk
	funds     common.FundLedger
	registry  common.AssetRegistry
	pauses    common.PauseView
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine constructs a pools engine deriving its accounts under programID.
func NewEngine(programID crypto.Address) *Engine {
	return &Engine{
		programID: programID,
		emitter:   events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin configures the only address allowed to register collections.
func (e *Engine) SetAdmin(admin crypto.Address) { e.admin = admin }

// SetLoans configures the loan desk used to originate and seize pool loans.
func (e *Engine) SetLoans(loans loanDesk) { e.loans = loans }

// SetFunds configures the fund ledger holding pool vaults.
func (e *Engine) SetFunds(funds common.FundLedger) { e.funds = funds }

// SetRegistry configures the asset registry used to check collections.
func (e *Engine) SetRegistry(registry common.AssetRegistry) { e.registry = registry }

// SetPauses wires the pause view consulted before mutating operations.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.funds == nil {
		return errNilFunds
	}
	return common.Guard(e.pauses, ModulePools)
}

// CollectionAddress derives the registry record of a collection mint.
func (e *Engine) CollectionAddress(collection crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveProgramAddress(e.programID, []byte(CollectionPrefix), collection.Bytes())
}

// PoolAddress derives the record of the pool run by authority.
func (e *Engine) PoolAddress(collection, authority crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveProgramAddress(e.programID, []byte(PoolPrefix), collection.Bytes(), authority.Bytes())
}

// VaultAddress derives the account holding the pool's lendable funds.
func (e *Engine) VaultAddress(collection, authority crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveProgramAddress(e.programID, []byte(VaultPrefix), collection.Bytes(), authority.Bytes())
}

// InitCollection registers a collection. Only the admin may do so.
func (e *Engine) InitCollection(admin, collection crypto.Address) (*Collection, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.admin.IsZero() || !admin.Equals(e.admin) {
		return nil, ErrNotAdmin
	}
	if _, exists, err := e.state.CollectionGet(collection); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrCollectionExists
	}
	_, bump, err := e.CollectionAddress(collection)
	if err != nil {
		return nil, err
	}
	record := &Collection{Authority: admin, Collection: collection, Bump: bump}
	if err := e.state.CollectionPut(record); err != nil {
		return nil, err
	}
	e.emit(CollectionEvent(record))
	return record.Clone(), nil
}

// CreatePool opens an empty pool lending against a registered collection.
func (e *Engine) CreatePool(authority, collection crypto.Address, terms PoolTerms) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	loanTerms := listings.LoanTerms{Amount: terms.FloorPrice, BasisPoints: terms.BasisPoints, Duration: terms.Duration}
	if err := loanTerms.Validate(); err != nil {
		return nil, ErrInvalidTerms
	}
	if _, ok, err := e.state.CollectionGet(collection); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrCollectionNotFound
	}
	if _, exists, err := e.state.PoolGet(collection, authority); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrPoolExists
	}
	_, bump, err := e.PoolAddress(collection, authority)
	if err != nil {
		return nil, err
	}
	_, vaultBump, err := e.VaultAddress(collection, authority)
	if err != nil {
		return nil, err
	}
	pool := &Pool{
		Authority:   authority,
		Collection:  collection,
		FloorPrice:  terms.FloorPrice,
		BasisPoints: terms.BasisPoints,
		Duration:    terms.Duration,
		Bump:        bump,
		VaultBump:   vaultBump,
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(PoolEvent(EventTypePoolCreated, pool))
	return pool.Clone(), nil
}

// Deposit moves funds from the authority into the pool vault.
func (e *Engine) Deposit(authority, collection crypto.Address, amount uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	pool, vault, err := e.loadPool(collection, authority)
	if err != nil {
		return 0, err
	}
	if err := e.funds.Transfer(authority, vault, amount); err != nil {
		return 0, err
	}
	balance, err := e.funds.BalanceOf(vault)
	if err != nil {
		return 0, err
	}
	e.emit(VaultEvent(EventTypePoolDeposited, pool, amount, balance))
	return balance, nil
}

// Withdraw returns funds from the vault to the authority.
func (e *Engine) Withdraw(authority, collection crypto.Address, amount uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	pool, vault, err := e.loadPool(collection, authority)
	if err != nil {
		return 0, err
	}
	balance, err := e.funds.BalanceOf(vault)
	if err != nil {
		return 0, err
	}
	if amount > balance {
		return 0, ErrInsufficientFunds
	}
	if err := e.funds.Transfer(vault, authority, amount); err != nil {
		return 0, err
	}
	balance -= amount
	e.emit(VaultEvent(EventTypePoolWithdrawn, pool, amount, balance))
	return balance, nil
}

// BorrowFromPool lists the borrower's token for a loan at the pool's terms
// and funds it from the vault in one step. The vault becomes the lender, so
// an ordinary repayment flows back into the pool.
func (e *Engine) BorrowFromPool(borrower, mint, authority, collection crypto.Address) (*listings.Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.loans == nil {
		return nil, errNilLoans
	}
	if e.registry == nil {
		return nil, errNilRegistry
	}
	pool, vault, err := e.loadPool(collection, authority)
	if err != nil {
		return nil, err
	}
	meta, err := e.registry.Lookup(mint)
	if err != nil {
		return nil, err
	}
	if meta.Collection.IsZero() {
		return nil, ErrCollectionUnset
	}
	if !meta.Collection.Equals(pool.Collection) {
		return nil, ErrCollectionMismatch
	}
	balance, err := e.funds.BalanceOf(vault)
	if err != nil {
		return nil, err
	}
	if balance < pool.FloorPrice {
		return nil, ErrInsufficientFunds
	}
	terms := listings.LoanTerms{Amount: pool.FloorPrice, BasisPoints: pool.BasisPoints, Duration: pool.Duration}
	if _, err := e.loans.InitLoan(borrower, mint, terms); err != nil {
		return nil, err
	}
	loan, err := e.loans.GiveLoan(vault, mint, borrower)
	if err != nil {
		return nil, err
	}
	volume, err := fees.CheckedAdd(pool.Volume, pool.FloorPrice)
	if err != nil {
		return nil, err
	}
	pool.Originated++
	pool.Volume = volume
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(PoolLoanEvent(EventTypePoolBorrowed, pool, loan))
	return loan, nil
}

// RepossessFromPool seizes the collateral of an overdue pool loan and
// delivers it to the pool authority.
func (e *Engine) RepossessFromPool(authority, collection, mint, borrower crypto.Address) (*listings.Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.loans == nil {
		return nil, errNilLoans
	}
	pool, vault, err := e.loadPool(collection, authority)
	if err != nil {
		return nil, err
	}
	current, err := e.loans.GetLoan(mint, borrower)
	if err != nil {
		return nil, err
	}
	if !current.Lender.Equals(vault) {
		return nil, ErrNotPoolLoan
	}
	loan, err := e.loans.RepossessTo(vault, mint, borrower, authority)
	if err != nil {
		return nil, err
	}
	e.emit(PoolLoanEvent(EventTypePoolRepossessed, pool, loan))
	return loan, nil
}

// ClosePool removes a pool whose vault has been emptied.
func (e *Engine) ClosePool(authority, collection crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, vault, err := e.loadPool(collection, authority)
	if err != nil {
		return err
	}
	balance, err := e.funds.BalanceOf(vault)
	if err != nil {
		return err
	}
	if balance > 0 {
		return ErrVaultNotEmpty
	}
	if err := e.state.PoolDelete(collection, authority); err != nil {
		return err
	}
	e.emit(PoolEvent(EventTypePoolClosed, pool))
	return nil
}

// GetCollection returns the registry record of a collection.
func (e *Engine) GetCollection(collection crypto.Address) (*Collection, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.CollectionGet(collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return record, nil
}

// GetPool returns the pool together with its current vault balance.
func (e *Engine) GetPool(collection, authority crypto.Address) (*Pool, uint64, error) {
	if e == nil || e.state == nil {
		return nil, 0, errNilState
	}
	if e.funds == nil {
		return nil, 0, errNilFunds
	}
	pool, vault, err := e.loadPool(collection, authority)
	if err != nil {
		return nil, 0, err
	}
	balance, err := e.funds.BalanceOf(vault)
	if err != nil {
		return nil, 0, err
	}
	return pool, balance, nil
}

func (e *Engine) loadPool(collection, authority crypto.Address) (*Pool, crypto.Address, error) {
	pool, ok, err := e.state.PoolGet(collection, authority)
	if err != nil {
		return nil, crypto.ZeroAddress, err
	}
	if !ok {
		return nil, crypto.ZeroAddress, ErrPoolNotFound
	}
	vault, _, err := e.VaultAddress(collection, authority)
	if err != nil {
		return nil, crypto.ZeroAddress, err
	}
	return pool, vault, nil
}
