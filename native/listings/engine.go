package listings

import (
	"time"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/escrow"
	"nftlend/native/tokenmanager"
)

type engineState interface {
	LoanGet(mint, borrower crypto.Address) (*Loan, bool, error)
	LoanPut(loan *Loan) error
	LoanDelete(mint, borrower crypto.Address) error
	CallOptionGet(mint, seller crypto.Address) (*CallOption, bool, error)
	CallOptionPut(option *CallOption) error
	CallOptionDelete(mint, seller crypto.Address) error
	HireGet(mint, lender crypto.Address) (*Hire, bool, error)
	HirePut(hire *Hire) error
	HireDelete(mint, lender crypto.Address) error
	TokenManagerGet(mint, issuer crypto.Address) (*tokenmanager.TokenManager, bool, error)
	TokenManagerPut(tm *tokenmanager.TokenManager) error
}

// Policy resolves behaviour the protocol leaves to the operator.
type Policy struct {
	// AllowLateRepayment lets a borrower repay an Active loan after its term
	// has elapsed, as long as the lender has not repossessed yet.
	AllowLateRepayment bool
	// ClampHireExtension rejects extensions that run past the hire's listed
	// expiry.
	ClampHireExtension bool
}

// DefaultPolicy permits late repayment and clamps hire extensions.
func DefaultPolicy() Policy {
	return Policy{AllowLateRepayment: true, ClampHireExtension: true}
}

// Engine runs the loan, call option and hire state machines. Every exported
// operation either applies all of its effects or returns an error; callers
// run each operation inside one state transaction so that fund and token
// movements are discarded together with record writes on failure.
type Engine struct {
	state     engineState
	programID crypto.Address
	tokens    *tokenmanager.Coordinator
	escrow    *escrow.Ledger
	ledger    common.TokenLedger
	funds     common.FundTransfer
	registry  common.AssetRegistry
	pauses    common.PauseView
	emitter   events.Emitter
	nowFn     func() int64
	policy    Policy
}

// NewEngine constructs an engine deriving its accounts under programID.
func NewEngine(programID crypto.Address) *Engine {
	return &Engine{
		programID: programID,
		tokens:    tokenmanager.NewCoordinator(programID),
		escrow:    escrow.NewLedger(programID),
		emitter:   events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		policy: DefaultPolicy(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the token ledger used to lock and move collateral.
func (e *Engine) SetTokenLedger(ledger common.TokenLedger) {
	e.ledger = ledger
	e.tokens.SetLedger(ledger)
}

// SetFunds configures the native currency transfer capability.
func (e *Engine) SetFunds(funds common.FundTransfer) {
	e.funds = funds
	e.escrow.SetFunds(funds)
}

// SetRegistry configures the asset registry consulted for royalties.
func (e *Engine) SetRegistry(registry common.AssetRegistry) { e.registry = registry }

// SetPauses wires the pause view consulted before mutating operations.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetPolicy overrides the operator policy.
func (e *Engine) SetPolicy(policy Policy) { e.policy = policy }

// SetEmitter configures the event emitter used by the engine and its
// collaborators.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.tokens.SetEmitter(emitter)
	e.escrow.SetEmitter(emitter)
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

func (e *Engine) ready(module string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.funds == nil {
		return errNilFunds
	}
	return common.Guard(e.pauses, module)
}

// tokenManager loads the lock record for the pair, creating an unlocked one
// when none exists yet.
func (e *Engine) tokenManager(mint, issuer crypto.Address) (*tokenmanager.TokenManager, error) {
	tm, ok, err := e.state.TokenManagerGet(mint, issuer)
	if err != nil {
		return nil, err
	}
	if ok {
		return tm, nil
	}
	return e.tokens.New(mint, issuer)
}

// requireOwner checks that caller currently holds the collateral.
func (e *Engine) requireOwner(mint, caller crypto.Address) error {
	owner, err := e.ledger.Owner(mint)
	if err != nil {
		return err
	}
	if !owner.Equals(caller) {
		return ErrNotTokenOwner
	}
	return nil
}

// requireHired checks the layered-claim precondition: a claim written while
// the hire lock is held must come from the lender of a hire that is taken.
func (e *Engine) requireHired(mint, issuer crypto.Address) error {
	hire, ok, err := e.state.HireGet(mint, issuer)
	if err != nil {
		return err
	}
	if !ok || hire.State != HireHired {
		return ErrHireNotHired
	}
	return nil
}

// closeHireForTransfer settles and deletes the hire of issuer when collateral
// leaves the issuer for good. It reports whether a hire lock has to be
// released with the transfer.
func (e *Engine) closeHireForTransfer(tm *tokenmanager.TokenManager, mint, issuer crypto.Address) (bool, error) {
	if !tm.Hire {
		return false, nil
	}
	hire, ok, err := e.state.HireGet(mint, issuer)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrHireNotFound
	}
	if hire.EscrowBalance > 0 {
		acct, err := e.escrowAccount(hire)
		if err != nil {
			return false, err
		}
		if _, err := e.escrow.Settle(acct, hire.Lender, hire.Borrower, e.now()); err != nil {
			return false, err
		}
		hire.EscrowBalance = acct.Balance
	}
	if err := e.state.HireDelete(mint, issuer); err != nil {
		return false, err
	}
	e.emit(HireEvent(EventTypeHireClosed, hire))
	return true, nil
}

func (e *Engine) escrowAccount(hire *Hire) (*escrow.Account, error) {
	addr, _, err := e.escrow.Address(hire.Mint, hire.Lender)
	if err != nil {
		return nil, err
	}
	return &escrow.Account{
		Address: addr,
		Balance: hire.EscrowBalance,
		Start:   hire.CurrentStart,
		Expiry:  hire.CurrentExpiry,
	}, nil
}

// syncEscrow copies the ledger's view of the escrow back onto the hire.
func syncEscrow(hire *Hire, acct *escrow.Account) {
	hire.EscrowBalance = acct.Balance
	if hire.HasWindow() {
		hire.CurrentStart = acct.Start
	}
}

func (e *Engine) derive(prefix string, mint, counterparty crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveProgramAddress(e.programID, []byte(prefix), mint.Bytes(), counterparty.Bytes())
}

// LoanAddress returns the deterministic address of the loan record.
func (e *Engine) LoanAddress(mint, borrower crypto.Address) (crypto.Address, error) {
	addr, _, err := e.derive(LoanPrefix, mint, borrower)
	return addr, err
}

// CallOptionAddress returns the deterministic address of the option record.
func (e *Engine) CallOptionAddress(mint, seller crypto.Address) (crypto.Address, error) {
	addr, _, err := e.derive(CallOptionPrefix, mint, seller)
	return addr, err
}

// HireAddress returns the deterministic address of the hire record.
func (e *Engine) HireAddress(mint, lender crypto.Address) (crypto.Address, error) {
	addr, _, err := e.derive(HirePrefix, mint, lender)
	return addr, err
}

// EscrowAddress returns the escrow account of the hire of mint by lender.
func (e *Engine) EscrowAddress(mint, lender crypto.Address) (crypto.Address, error) {
	addr, _, err := e.escrow.Address(mint, lender)
	return addr, err
}

// TokenManagerAuthority returns the delegate that locks collateral pledged by
// issuer.
func (e *Engine) TokenManagerAuthority(mint, issuer crypto.Address) (crypto.Address, error) {
	tm, err := e.tokens.New(mint, issuer)
	if err != nil {
		return crypto.ZeroAddress, err
	}
	return e.tokens.Authority(tm)
}
