package listings

import (
	"errors"
	"testing"

	"nftlend/core/events"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/common/hosttest"
	"nftlend/native/fees"
	"nftlend/native/tokenmanager"
)

var (
	testProgram  = crypto.AddressFromLabel("listings.test.program")
	testMint     = crypto.AddressFromLabel("listings.test.mint")
	testOwner    = crypto.AddressFromLabel("listings.test.owner")
	testLender   = crypto.AddressFromLabel("listings.test.lender")
	testBuyer    = crypto.AddressFromLabel("listings.test.buyer")
	testHirer    = crypto.AddressFromLabel("listings.test.hirer")
	testCreator  = crypto.AddressFromLabel("listings.test.creator")
	testOutsider = crypto.AddressFromLabel("listings.test.outsider")
)

const (
	testStart = int64(1_700_000_000)
	day       = fees.SecondsPerDay
)

type pairKey struct {
	mint, counterparty crypto.Address
}

type mockState struct {
	loans    map[pairKey]*Loan
	options  map[pairKey]*CallOption
	hires    map[pairKey]*Hire
	managers map[pairKey]*tokenmanager.TokenManager
}

func newMockState() *mockState {
	return &mockState{
		loans:    make(map[pairKey]*Loan),
		options:  make(map[pairKey]*CallOption),
		hires:    make(map[pairKey]*Hire),
		managers: make(map[pairKey]*tokenmanager.TokenManager),
	}
}

func (m *mockState) LoanGet(mint, borrower crypto.Address) (*Loan, bool, error) {
	loan, ok := m.loans[pairKey{mint, borrower}]
	return loan.Clone(), ok, nil
}

func (m *mockState) LoanPut(loan *Loan) error {
	m.loans[pairKey{loan.Mint, loan.Borrower}] = loan.Clone()
	return nil
}

func (m *mockState) LoanDelete(mint, borrower crypto.Address) error {
	delete(m.loans, pairKey{mint, borrower})
	return nil
}

func (m *mockState) CallOptionGet(mint, seller crypto.Address) (*CallOption, bool, error) {
	option, ok := m.options[pairKey{mint, seller}]
	return option.Clone(), ok, nil
}

func (m *mockState) CallOptionPut(option *CallOption) error {
	m.options[pairKey{option.Mint, option.Seller}] = option.Clone()
	return nil
}

func (m *mockState) CallOptionDelete(mint, seller crypto.Address) error {
	delete(m.options, pairKey{mint, seller})
	return nil
}

func (m *mockState) HireGet(mint, lender crypto.Address) (*Hire, bool, error) {
	hire, ok := m.hires[pairKey{mint, lender}]
	return hire.Clone(), ok, nil
}

func (m *mockState) HirePut(hire *Hire) error {
	m.hires[pairKey{hire.Mint, hire.Lender}] = hire.Clone()
	return nil
}

func (m *mockState) HireDelete(mint, lender crypto.Address) error {
	delete(m.hires, pairKey{mint, lender})
	return nil
}

func (m *mockState) TokenManagerGet(mint, issuer crypto.Address) (*tokenmanager.TokenManager, bool, error) {
	tm, ok := m.managers[pairKey{mint, issuer}]
	return tm.Clone(), ok, nil
}

func (m *mockState) TokenManagerPut(tm *tokenmanager.TokenManager) error {
	m.managers[pairKey{tm.Mint, tm.Issuer}] = tm.Clone()
	return nil
}

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

type fixture struct {
	engine   *Engine
	state    *mockState
	tokens   *hosttest.TokenLedger
	funds    *hosttest.Funds
	registry *hosttest.Registry
	events   *events.Buffer
	now      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine:   NewEngine(testProgram),
		state:    newMockState(),
		tokens:   hosttest.NewTokenLedger(),
		funds:    hosttest.NewFunds(),
		registry: hosttest.NewRegistry(),
		events:   &events.Buffer{},
		now:      testStart,
	}
	f.tokens.Mint(testMint, testOwner)
	f.engine.SetState(f.state)
	f.engine.SetTokenLedger(f.tokens)
	f.engine.SetFunds(f.funds)
	f.engine.SetRegistry(f.registry)
	f.engine.SetEmitter(f.events)
	f.engine.SetNowFunc(func() int64 { return f.now })
	return f
}

func (f *fixture) requireOwner(t *testing.T, want crypto.Address, frozen bool) {
	t.Helper()
	owner, err := f.tokens.Owner(testMint)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if !owner.Equals(want) {
		t.Fatalf("expected owner %s, got %s", want, owner)
	}
	if got := f.tokens.Frozen(testMint); got != frozen {
		t.Fatalf("expected frozen=%v, got %v", frozen, got)
	}
}

func (f *fixture) hasEvent(eventType string) bool {
	for _, got := range f.events.Types() {
		if got == eventType {
			return true
		}
	}
	return false
}

func (f *fixture) tokenManager(t *testing.T, issuer crypto.Address) *tokenmanager.TokenManager {
	t.Helper()
	tm, err := f.engine.GetTokenManager(testMint, issuer)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return tm
}

func quarterLoan() LoanTerms {
	return LoanTerms{Amount: 1_000_000, BasisPoints: 1_000, Duration: fees.SecondsPerYear / 4}
}

func TestLoanLifecycleRepay(t *testing.T) {
	f := newFixture(t)
	loan, err := f.engine.InitLoan(testOwner, testMint, quarterLoan())
	if err != nil {
		t.Fatalf("init loan: %v", err)
	}
	if loan.State != LoanListed {
		t.Fatalf("expected listed, got %s", loan.State)
	}
	f.requireOwner(t, testOwner, true)
	if !f.tokenManager(t, testOwner).Loan {
		t.Fatalf("expected loan lock held")
	}

	f.funds.Credit(testLender, 1_000_000)
	f.now += 10
	loan, err = f.engine.GiveLoan(testLender, testMint, testOwner)
	if err != nil {
		t.Fatalf("give loan: %v", err)
	}
	if loan.StartDate != f.now || !loan.Lender.Equals(testLender) {
		t.Fatalf("unexpected funded loan %+v", loan)
	}
	if got := f.funds.Balance(testOwner); got != 1_000_000 {
		t.Fatalf("borrower balance = %d", got)
	}

	f.funds.Credit(testOwner, 25_000)
	f.now += day
	repayment, err := f.engine.RepayLoan(testOwner, testMint)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if repayment.AmountDue != 1_025_000 || repayment.ProRataFee != 25_000 {
		t.Fatalf("unexpected repayment %+v", repayment)
	}
	if got := f.funds.Balance(testLender); got != 1_025_000 {
		t.Fatalf("lender balance = %d", got)
	}
	if got := f.funds.Balance(testOwner); got != 0 {
		t.Fatalf("borrower balance = %d", got)
	}
	f.requireOwner(t, testOwner, false)
	if f.tokenManager(t, testOwner).Locked() {
		t.Fatalf("expected all locks released")
	}
	if _, err := f.engine.GetLoan(testMint, testOwner); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("expected loan closed, got %v", err)
	}
	if !f.hasEvent(EventTypeLoanRepaid) {
		t.Fatalf("expected repaid event, got %v", f.events.Types())
	}
}

func TestInitLoanValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitLoan(testOwner, testMint, LoanTerms{Duration: 1}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.engine.InitLoan(testOwner, testMint, LoanTerms{Amount: 1}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := f.engine.InitLoan(testOwner, testMint, LoanTerms{Amount: 1, Duration: MaxLoanDuration + 1}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration past the maximum term, got %v", err)
	}
	unrepayable := LoanTerms{Amount: 1 << 62, BasisPoints: 10_000, Duration: MaxLoanDuration}
	if _, err := f.engine.InitLoan(testOwner, testMint, unrepayable); !errors.Is(err, common.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow for unrepayable terms, got %v", err)
	}
	if f.tokenManager(t, testOwner).Locked() || f.tokens.Frozen(testMint) {
		t.Fatalf("rejected terms must not lock the collateral")
	}
	if _, err := f.engine.InitLoan(testOutsider, testMint, quarterLoan()); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("expected ErrNotTokenOwner, got %v", err)
	}
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
		t.Fatalf("init loan: %v", err)
	}
	_, err := f.engine.InitLoan(testOwner, testMint, quarterLoan())
	if !errors.Is(err, ErrLoanExists) || !errors.Is(err, common.ErrConflictingClaim) {
		t.Fatalf("expected ErrLoanExists, got %v", err)
	}
	if _, err := f.engine.GiveLoan(testOwner, testMint, testOwner); !errors.Is(err, ErrSelfDealing) {
		t.Fatalf("expected ErrSelfDealing, got %v", err)
	}
}

func TestRepossessRequiresFullDuration(t *testing.T) {
	f := newFixture(t)
	terms := quarterLoan()
	if _, err := f.engine.InitLoan(testOwner, testMint, terms); err != nil {
		t.Fatalf("init loan: %v", err)
	}
	f.funds.Credit(testLender, terms.Amount)
	if _, err := f.engine.GiveLoan(testLender, testMint, testOwner); err != nil {
		t.Fatalf("give loan: %v", err)
	}

	f.now = testStart + terms.Duration - 1
	_, err := f.engine.Repossess(testLender, testMint, testOwner)
	if !errors.Is(err, ErrNotOverdue) || !errors.Is(err, common.ErrNotYetEligible) {
		t.Fatalf("expected ErrNotOverdue, got %v", err)
	}
	f.now = testStart + terms.Duration
	if _, err := f.engine.Repossess(testOutsider, testMint, testOwner); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	loan, err := f.engine.Repossess(testLender, testMint, testOwner)
	if err != nil {
		t.Fatalf("repossess: %v", err)
	}
	if loan.State != LoanDefaulted {
		t.Fatalf("expected defaulted, got %s", loan.State)
	}
	f.requireOwner(t, testLender, false)
	if f.tokenManager(t, testOwner).Locked() {
		t.Fatalf("expected locks cleared after repossession")
	}

	if err := f.engine.CloseLoan(testOwner, testMint); err != nil {
		t.Fatalf("close defaulted loan: %v", err)
	}
	if _, err := f.engine.GetLoan(testMint, testOwner); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("expected loan closed, got %v", err)
	}
}

func TestRepossessWithHireSettlesEscrow(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 100*day}); err != nil {
		t.Fatalf("init hire: %v", err)
	}
	f.funds.Credit(testHirer, 10_000)
	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 100); err != nil {
		t.Fatalf("take hire: %v", err)
	}
	terms := quarterLoan()
	if _, err := f.engine.InitLoan(testOwner, testMint, terms); err != nil {
		t.Fatalf("layered loan: %v", err)
	}
	f.funds.Credit(testLender, terms.Amount)
	if _, err := f.engine.GiveLoan(testLender, testMint, testOwner); err != nil {
		t.Fatalf("give loan: %v", err)
	}
	f.requireOwner(t, testHirer, true)

	// 91.25 of 100 days elapsed
	f.now = testStart + terms.Duration
	loan, err := f.engine.Repossess(testLender, testMint, testOwner)
	if err != nil {
		t.Fatalf("repossess: %v", err)
	}
	if loan.State != LoanDefaulted {
		t.Fatalf("expected defaulted, got %s", loan.State)
	}
	if got := f.funds.Balance(testOwner); got != terms.Amount+9_125 {
		t.Fatalf("hire lender balance = %d", got)
	}
	if got := f.funds.Balance(testHirer); got != 875 {
		t.Fatalf("hirer refund = %d", got)
	}
	escrowAddr, err := f.engine.EscrowAddress(testMint, testOwner)
	if err != nil {
		t.Fatalf("escrow address: %v", err)
	}
	if got := f.funds.Balance(escrowAddr); got != 0 {
		t.Fatalf("escrow left with %d", got)
	}
	if _, err := f.engine.GetHire(testMint, testOwner); !errors.Is(err, ErrHireNotFound) {
		t.Fatalf("expected hire deleted, got %v", err)
	}
	tm := f.tokenManager(t, testOwner)
	if tm.Loan || tm.CallOption || tm.Hire {
		t.Fatalf("expected all locks cleared, got %+v", tm)
	}
	f.requireOwner(t, testLender, false)
	if !f.hasEvent(EventTypeHireClosed) || !f.hasEvent(EventTypeLoanRepossessed) {
		t.Fatalf("missing events: %v", f.events.Types())
	}
}

func TestLayeredCloseKeepsCollateralFrozen(t *testing.T) {
	t.Run("close hire under loan", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
			t.Fatalf("init loan: %v", err)
		}
		if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
			t.Fatalf("init hire: %v", err)
		}
		f.tokens.ResetCalls()
		if err := f.engine.CloseHire(testOwner, testMint); err != nil {
			t.Fatalf("close hire: %v", err)
		}
		if n := f.tokens.Count(hosttest.OpThaw); n != 0 {
			t.Fatalf("expected no thaw while the loan lock remains, got %d", n)
		}
		tm := f.tokenManager(t, testOwner)
		if !tm.Loan || tm.Hire {
			t.Fatalf("unexpected locks %+v", tm)
		}
		f.requireOwner(t, testOwner, true)
	})

	t.Run("close option under hire", func(t *testing.T) {
		f := newFixture(t)
		option := CallOptionTerms{Amount: 50, StrikePrice: 10_000, Expiry: testStart + day}
		if _, err := f.engine.InitCallOption(testOwner, testMint, option); err != nil {
			t.Fatalf("init option: %v", err)
		}
		if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
			t.Fatalf("init hire: %v", err)
		}
		f.tokens.ResetCalls()
		if err := f.engine.CloseCallOption(testOwner, testMint); err != nil {
			t.Fatalf("close option: %v", err)
		}
		if n := f.tokens.Count(hosttest.OpThaw); n != 0 {
			t.Fatalf("expected no thaw while the hire lock remains, got %d", n)
		}
		tm := f.tokenManager(t, testOwner)
		if tm.CallOption || !tm.Hire {
			t.Fatalf("unexpected locks %+v", tm)
		}
		f.requireOwner(t, testOwner, true)
	})

	t.Run("repay loan under taken hire", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
			t.Fatalf("init hire: %v", err)
		}
		f.funds.Credit(testHirer, 300)
		if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 3); err != nil {
			t.Fatalf("take hire: %v", err)
		}
		if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
			t.Fatalf("layered loan: %v", err)
		}
		f.funds.Credit(testLender, 1_000_000)
		if _, err := f.engine.GiveLoan(testLender, testMint, testOwner); err != nil {
			t.Fatalf("give loan: %v", err)
		}
		f.funds.Credit(testOwner, 25_000)
		f.tokens.ResetCalls()
		if _, err := f.engine.RepayLoan(testOwner, testMint); err != nil {
			t.Fatalf("repay: %v", err)
		}
		if n := f.tokens.Count(hosttest.OpThaw); n != 0 {
			t.Fatalf("expected no thaw while the hire lock remains, got %d", n)
		}
		tm := f.tokenManager(t, testOwner)
		if tm.Loan || !tm.Hire {
			t.Fatalf("unexpected locks %+v", tm)
		}
		f.requireOwner(t, testHirer, true)
		hire, err := f.engine.GetHire(testMint, testOwner)
		if err != nil {
			t.Fatalf("get hire: %v", err)
		}
		if hire.State != HireHired || hire.EscrowBalance != 300 {
			t.Fatalf("hire must survive the repayment, got %+v", hire)
		}
	})

	t.Run("last release thaws", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
			t.Fatalf("init loan: %v", err)
		}
		if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
			t.Fatalf("init hire: %v", err)
		}
		f.funds.Credit(testHirer, 200)
		if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 2); err != nil {
			t.Fatalf("take hire: %v", err)
		}
		f.tokens.ResetCalls()
		if err := f.engine.CloseLoan(testOwner, testMint); err != nil {
			t.Fatalf("close loan: %v", err)
		}
		if n := f.tokens.Count(hosttest.OpThaw); n != 0 {
			t.Fatalf("expected no thaw while the hire lock remains, got %d", n)
		}
		f.requireOwner(t, testHirer, true)
		f.now = testStart + 2*day
		if _, err := f.engine.RecoverHire(testOwner, testMint); err != nil {
			t.Fatalf("recover hire: %v", err)
		}
		f.requireOwner(t, testOwner, true)
		if n := f.tokens.Count(hosttest.OpThaw); n != 1 {
			t.Fatalf("expected one thaw for the recovery handover, got %d", n)
		}
		if err := f.engine.CloseHire(testOwner, testMint); err != nil {
			t.Fatalf("close hire: %v", err)
		}
		f.requireOwner(t, testOwner, false)
		if f.tokenManager(t, testOwner).Locked() {
			t.Fatalf("expected all locks released")
		}
	})
}

func TestLateRepaymentPolicy(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPolicy(Policy{AllowLateRepayment: false, ClampHireExtension: true})
	terms := quarterLoan()
	if _, err := f.engine.InitLoan(testOwner, testMint, terms); err != nil {
		t.Fatalf("init loan: %v", err)
	}
	f.funds.Credit(testLender, terms.Amount)
	if _, err := f.engine.GiveLoan(testLender, testMint, testOwner); err != nil {
		t.Fatalf("give loan: %v", err)
	}
	f.funds.Credit(testOwner, 25_000)
	f.now = testStart + terms.Duration + 1
	_, err := f.engine.RepayLoan(testOwner, testMint)
	if !errors.Is(err, ErrLoanTermElapsed) || !errors.Is(err, common.ErrAlreadyExpired) {
		t.Fatalf("expected ErrLoanTermElapsed, got %v", err)
	}

	f.engine.SetPolicy(DefaultPolicy())
	if _, err := f.engine.RepayLoan(testOwner, testMint); err != nil {
		t.Fatalf("late repay with default policy: %v", err)
	}
}

func TestCloseLoanRejectsActive(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
		t.Fatalf("init loan: %v", err)
	}
	f.funds.Credit(testLender, 1_000_000)
	if _, err := f.engine.GiveLoan(testLender, testMint, testOwner); err != nil {
		t.Fatalf("give loan: %v", err)
	}
	if err := f.engine.CloseLoan(testOwner, testMint); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestClaimsAreMutuallyExclusive(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
		t.Fatalf("init loan: %v", err)
	}
	option := CallOptionTerms{Amount: 50, StrikePrice: 10_000, Expiry: testStart + day}
	if _, err := f.engine.InitCallOption(testOwner, testMint, option); !errors.Is(err, ErrLoanLocked) {
		t.Fatalf("expected ErrLoanLocked, got %v", err)
	}
	if err := f.engine.CloseLoan(testOwner, testMint); err != nil {
		t.Fatalf("close loan: %v", err)
	}
	f.requireOwner(t, testOwner, false)

	if _, err := f.engine.InitCallOption(testOwner, testMint, option); err != nil {
		t.Fatalf("init option: %v", err)
	}
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); !errors.Is(err, ErrCallOptionLocked) {
		t.Fatalf("expected ErrCallOptionLocked, got %v", err)
	}
	hire := HireTerms{Amount: 100, Expiry: testStart + 10*day}
	if _, err := f.engine.InitHire(testOwner, testMint, hire); err != nil {
		t.Fatalf("hire under option: %v", err)
	}
	if _, err := f.engine.InitHire(testOwner, testMint, hire); !errors.Is(err, ErrHireExists) {
		t.Fatalf("expected ErrHireExists, got %v", err)
	}
	tm := f.tokenManager(t, testOwner)
	if !tm.CallOption || !tm.Hire || tm.Loan {
		t.Fatalf("unexpected locks %+v", tm)
	}
}

func TestLoanOnListedHireRequiresHired(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
		t.Fatalf("init hire: %v", err)
	}
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); !errors.Is(err, ErrHireNotHired) {
		t.Fatalf("expected ErrHireNotHired, got %v", err)
	}
	f.funds.Credit(testHirer, 300)
	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 3); err != nil {
		t.Fatalf("take hire: %v", err)
	}
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); err != nil {
		t.Fatalf("layered loan: %v", err)
	}
	tm := f.tokenManager(t, testOwner)
	if !tm.Loan || !tm.Hire {
		t.Fatalf("expected loan and hire locks, got %+v", tm)
	}
	f.requireOwner(t, testHirer, true)
}

func TestExerciseWhileHiredSettlesEscrow(t *testing.T) {
	f := newFixture(t)
	f.registry.Set(&common.AssetMetadata{
		Mint:                 testMint,
		SellerFeeBasisPoints: 500,
		Creators:             []common.Creator{{Address: testCreator, Share: 100}},
	})
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 30*day}); err != nil {
		t.Fatalf("init hire: %v", err)
	}
	f.funds.Credit(testHirer, 500)
	hire, err := f.engine.TakeHire(testHirer, testMint, testOwner, 5)
	if err != nil {
		t.Fatalf("take hire: %v", err)
	}
	if hire.EscrowBalance != 500 || hire.CurrentExpiry != testStart+5*day {
		t.Fatalf("unexpected hire %+v", hire)
	}
	f.requireOwner(t, testHirer, true)

	terms := CallOptionTerms{Amount: 50, StrikePrice: 10_000, Expiry: testStart + 20*day}
	if _, err := f.engine.InitCallOption(testOwner, testMint, terms); err != nil {
		t.Fatalf("init option: %v", err)
	}
	f.funds.Credit(testBuyer, 10_050)
	if _, err := f.engine.BuyCallOption(testBuyer, testMint, testOwner); err != nil {
		t.Fatalf("buy option: %v", err)
	}

	f.now = testStart + day
	split, err := f.engine.ExerciseCallOption(testBuyer, testMint, testOwner)
	if err != nil {
		t.Fatalf("exercise: %v", err)
	}
	if split.CreatorTotal() != 500 || split.SellerProceeds() != 9_500 {
		t.Fatalf("unexpected split %+v", split)
	}
	if got := f.funds.Balance(testCreator); got != 500 {
		t.Fatalf("creator balance = %d", got)
	}
	// premium, strike proceeds and one day of rent
	if got := f.funds.Balance(testOwner); got != 50+9_500+100 {
		t.Fatalf("seller balance = %d", got)
	}
	if got := f.funds.Balance(testHirer); got != 400 {
		t.Fatalf("hirer refund = %d", got)
	}
	if got := f.funds.Balance(testBuyer); got != 0 {
		t.Fatalf("buyer balance = %d", got)
	}
	f.requireOwner(t, testBuyer, false)
	if f.tokenManager(t, testOwner).Locked() {
		t.Fatalf("expected all locks released")
	}
	if _, err := f.engine.GetHire(testMint, testOwner); !errors.Is(err, ErrHireNotFound) {
		t.Fatalf("expected hire closed, got %v", err)
	}
	option, err := f.engine.GetCallOption(testMint, testOwner)
	if err != nil {
		t.Fatalf("get option: %v", err)
	}
	if option.State != CallOptionExercised {
		t.Fatalf("expected exercised, got %s", option.State)
	}
	if err := f.engine.CloseCallOption(testOwner, testMint); err != nil {
		t.Fatalf("close exercised option: %v", err)
	}
	if !f.hasEvent(EventTypeHireClosed) || !f.hasEvent(EventTypeCallOptionExercised) {
		t.Fatalf("missing events: %v", f.events.Types())
	}
}

func TestExerciseRequiresBuyerAndUnexpired(t *testing.T) {
	f := newFixture(t)
	f.registry.Set(&common.AssetMetadata{Mint: testMint})
	terms := CallOptionTerms{Amount: 0, StrikePrice: 1_000, Expiry: testStart + day}
	if _, err := f.engine.InitCallOption(testOwner, testMint, terms); err != nil {
		t.Fatalf("init option: %v", err)
	}
	if _, err := f.engine.ExerciseCallOption(testBuyer, testMint, testOwner); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before purchase, got %v", err)
	}
	if _, err := f.engine.BuyCallOption(testBuyer, testMint, testOwner); err != nil {
		t.Fatalf("buy option: %v", err)
	}
	if _, err := f.engine.ExerciseCallOption(testOutsider, testMint, testOwner); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.CloseCallOption(testOwner, testMint); !errors.Is(err, ErrOptionNotExpired) {
		t.Fatalf("expected ErrOptionNotExpired, got %v", err)
	}
	f.now = terms.Expiry + 1
	if _, err := f.engine.ExerciseCallOption(testBuyer, testMint, testOwner); !errors.Is(err, ErrOptionExpired) {
		t.Fatalf("expected ErrOptionExpired, got %v", err)
	}
	if err := f.engine.CloseCallOption(testOwner, testMint); err != nil {
		t.Fatalf("close expired option: %v", err)
	}
	f.requireOwner(t, testOwner, false)
}

func TestInitCallOptionRejectsPastExpiry(t *testing.T) {
	f := newFixture(t)
	terms := CallOptionTerms{Amount: 1, StrikePrice: 1, Expiry: testStart}
	if _, err := f.engine.InitCallOption(testOwner, testMint, terms); !errors.Is(err, ErrInvalidExpiry) {
		t.Fatalf("expected ErrInvalidExpiry, got %v", err)
	}
}

func TestHireTakeExtendRecover(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
		t.Fatalf("init hire: %v", err)
	}
	f.requireOwner(t, testOwner, true)
	f.funds.Credit(testHirer, 1_000)

	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 11); !errors.Is(err, ErrHireTooLong) {
		t.Fatalf("expected ErrHireTooLong, got %v", err)
	}
	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 0); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}
	if _, err := f.engine.TakeHire(testOwner, testMint, testOwner, 1); !errors.Is(err, ErrSelfDealing) {
		t.Fatalf("expected ErrSelfDealing, got %v", err)
	}
	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 3); err != nil {
		t.Fatalf("take hire: %v", err)
	}
	f.requireOwner(t, testHirer, true)
	if _, err := f.engine.TakeHire(testBuyer, testMint, testOwner, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	if _, err := f.engine.ExtendHire(testBuyer, testMint, testOwner, 1); !errors.Is(err, ErrBorrowerMismatch) {
		t.Fatalf("expected ErrBorrowerMismatch, got %v", err)
	}
	hire, err := f.engine.ExtendHire(testHirer, testMint, testOwner, 2)
	if err != nil {
		t.Fatalf("extend hire: %v", err)
	}
	if hire.CurrentExpiry != testStart+5*day || hire.EscrowBalance != 500 {
		t.Fatalf("unexpected extended hire %+v", hire)
	}
	if _, err := f.engine.ExtendHire(testHirer, testMint, testOwner, 6); !errors.Is(err, ErrHireTooLong) {
		t.Fatalf("expected ErrHireTooLong, got %v", err)
	}

	f.now = testStart + 4*day
	_, err = f.engine.RecoverHire(testOwner, testMint)
	if !errors.Is(err, ErrHireNotExpired) || !errors.Is(err, common.ErrNotYetEligible) {
		t.Fatalf("expected ErrHireNotExpired, got %v", err)
	}
	f.now = testStart + 5*day
	hire, err = f.engine.RecoverHire(testOwner, testMint)
	if err != nil {
		t.Fatalf("recover hire: %v", err)
	}
	if hire.State != HireListed || hire.HasBorrower() || hire.HasWindow() || hire.EscrowBalance != 0 {
		t.Fatalf("unexpected recovered hire %+v", hire)
	}
	if got := f.funds.Balance(testOwner); got != 500 {
		t.Fatalf("lender rent = %d", got)
	}
	f.requireOwner(t, testOwner, true)

	if err := f.engine.CloseHire(testOwner, testMint); err != nil {
		t.Fatalf("close hire: %v", err)
	}
	f.requireOwner(t, testOwner, false)
}

func TestExtendWithoutClampAllowsOverrun(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPolicy(Policy{AllowLateRepayment: true, ClampHireExtension: false})
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 1, Expiry: testStart + 2*day}); err != nil {
		t.Fatalf("init hire: %v", err)
	}
	f.funds.Credit(testHirer, 10)
	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 2); err != nil {
		t.Fatalf("take hire: %v", err)
	}
	hire, err := f.engine.ExtendHire(testHirer, testMint, testOwner, 3)
	if err != nil {
		t.Fatalf("extend hire: %v", err)
	}
	if hire.CurrentExpiry != testStart+5*day {
		t.Fatalf("unexpected current expiry %d", hire.CurrentExpiry)
	}
}

func TestWithdrawFromHireEscrowProrates(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Amount: 100, Expiry: testStart + 10*day}); err != nil {
		t.Fatalf("init hire: %v", err)
	}
	f.funds.Credit(testHirer, 400)
	if _, err := f.engine.TakeHire(testHirer, testMint, testOwner, 4); err != nil {
		t.Fatalf("take hire: %v", err)
	}

	f.now = testStart + day
	quoted, err := f.engine.EscrowWithdrawable(testMint, testOwner)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	amount, err := f.engine.WithdrawFromHireEscrow(testOwner, testMint)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount != 100 || quoted != amount {
		t.Fatalf("expected 100 withdrawn (quoted %d), got %d", quoted, amount)
	}
	again, err := f.engine.WithdrawFromHireEscrow(testOwner, testMint)
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected nothing left to withdraw at the same instant, got %d", again)
	}

	f.now = testStart + 3*day
	amount, err = f.engine.WithdrawFromHireEscrow(testOwner, testMint)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount != 200 {
		t.Fatalf("expected 200 withdrawn, got %d", amount)
	}
	hire, err := f.engine.GetHire(testMint, testOwner)
	if err != nil {
		t.Fatalf("get hire: %v", err)
	}
	if hire.EscrowBalance != 100 || hire.CurrentStart != f.now {
		t.Fatalf("unexpected hire after withdrawals %+v", hire)
	}
	if got := f.funds.Balance(testOwner); got != 300 {
		t.Fatalf("lender balance = %d", got)
	}
}

func TestNamedBorrowerHire(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.InitHire(testOwner, testMint, HireTerms{Expiry: testStart + day})
	if !errors.Is(err, ErrBorrowerNotNamed) {
		t.Fatalf("expected ErrBorrowerNotNamed, got %v", err)
	}
	if _, err := f.engine.InitHire(testOwner, testMint, HireTerms{Expiry: testStart + 3*day, Borrower: testHirer}); err != nil {
		t.Fatalf("init free hire: %v", err)
	}
	if _, err := f.engine.TakeHire(testBuyer, testMint, testOwner, 1); !errors.Is(err, ErrBorrowerMismatch) {
		t.Fatalf("expected ErrBorrowerMismatch, got %v", err)
	}
	if err := f.engine.CloseHire(testOwner, testMint); !errors.Is(err, ErrHireOccupied) {
		t.Fatalf("expected ErrHireOccupied, got %v", err)
	}
	hire, err := f.engine.TakeHire(testHirer, testMint, testOwner, 1)
	if err != nil {
		t.Fatalf("take free hire: %v", err)
	}
	if hire.EscrowBalance != 0 {
		t.Fatalf("free hire must not collect rent, got %d", hire.EscrowBalance)
	}
	if err := f.engine.CloseHire(testOwner, testMint); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPausedModuleRejectsOperations(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPauses(pauseSet{ModuleLoans: true})
	if _, err := f.engine.InitLoan(testOwner, testMint, quarterLoan()); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	terms := CallOptionTerms{Amount: 1, StrikePrice: 1, Expiry: testStart + day}
	if _, err := f.engine.InitCallOption(testOwner, testMint, terms); err != nil {
		t.Fatalf("options must stay open: %v", err)
	}
}

func TestEngineRequiresCollaborators(t *testing.T) {
	engine := NewEngine(testProgram)
	if _, err := engine.InitLoan(testOwner, testMint, quarterLoan()); !errors.Is(err, errNilState) {
		t.Fatalf("expected errNilState, got %v", err)
	}
	engine.SetState(newMockState())
	if _, err := engine.InitLoan(testOwner, testMint, quarterLoan()); !errors.Is(err, errNilLedger) {
		t.Fatalf("expected errNilLedger, got %v", err)
	}
}
