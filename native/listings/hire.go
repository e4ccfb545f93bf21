package listings

import (
	"nftlend/crypto"
	"nftlend/native/fees"
	"nftlend/native/tokenmanager"
)

// InitHire lists the lender's collateral for hire and locks it. A free hire
// must name its borrower.
func (e *Engine) InitHire(lender, mint crypto.Address, terms HireTerms) (*Hire, error) {
	if err := e.ready(ModuleHires); err != nil {
		return nil, err
	}
	if terms.Expiry <= e.now() {
		return nil, ErrInvalidExpiry
	}
	if terms.Amount == 0 && terms.Borrower.IsZero() {
		return nil, ErrBorrowerNotNamed
	}
	if terms.Borrower.Equals(lender) {
		return nil, ErrSelfDealing
	}
	if _, exists, err := e.state.HireGet(mint, lender); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrHireExists
	}
	tm, err := e.tokenManager(mint, lender)
	if err != nil {
		return nil, err
	}
	if tm.Hire {
		return nil, ErrHireLocked
	}
	if err := e.requireOwner(mint, lender); err != nil {
		return nil, err
	}
	_, bump, err := e.derive(HirePrefix, mint, lender)
	if err != nil {
		return nil, err
	}
	_, escrowBump, err := e.escrow.Address(mint, lender)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.Acquire(tm, tokenmanager.KindHire); err != nil {
		return nil, err
	}
	hire := &Hire{
		State:      HireListed,
		Amount:     terms.Amount,
		Lender:     lender,
		Borrower:   terms.Borrower,
		Expiry:     terms.Expiry,
		Mint:       mint,
		Bump:       bump,
		EscrowBump: escrowBump,
	}
	if err := e.state.TokenManagerPut(tm); err != nil {
		return nil, err
	}
	if err := e.state.HirePut(hire); err != nil {
		return nil, err
	}
	e.emit(HireEvent(EventTypeHireListed, hire))
	return hire.Clone(), nil
}

// TakeHire hires the collateral for the given number of days. Rent for the
// whole period is paid into escrow up front and the token moves to the
// borrower, still frozen under the token manager's authority.
func (e *Engine) TakeHire(borrower, mint, lender crypto.Address, days uint16) (*Hire, error) {
	if err := e.ready(ModuleHires); err != nil {
		return nil, err
	}
	hire, err := e.loadHire(mint, lender)
	if err != nil {
		return nil, err
	}
	if hire.State != HireListed {
		return nil, ErrInvalidState
	}
	if days == 0 {
		return nil, ErrInvalidDays
	}
	if borrower.Equals(hire.Lender) {
		return nil, ErrSelfDealing
	}
	if hire.HasBorrower() && !hire.Borrower.Equals(borrower) {
		return nil, ErrBorrowerMismatch
	}
	now := e.now()
	currentExpiry := now + fees.HireSpan(days)
	if currentExpiry > hire.Expiry {
		return nil, ErrHireTooLong
	}
	acct, err := e.escrowAccount(hire)
	if err != nil {
		return nil, err
	}
	if acct.Balance > 0 {
		if _, err := e.escrow.Withdraw(acct, hire.Lender, now); err != nil {
			return nil, err
		}
	}
	acct.Start, acct.Expiry = now, currentExpiry
	if hire.Amount > 0 {
		cost, err := fees.HireCost(hire.Amount, days)
		if err != nil {
			return nil, err
		}
		if err := e.escrow.Deposit(acct, borrower, cost); err != nil {
			return nil, err
		}
	}
	tm, err := e.tokenManager(mint, lender)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.TransferLocked(tm, borrower); err != nil {
		return nil, err
	}
	hire.State = HireHired
	hire.Borrower = borrower
	hire.CurrentStart = now
	hire.CurrentExpiry = currentExpiry
	hire.EscrowBalance = acct.Balance
	if err := e.state.TokenManagerPut(tm); err != nil {
		return nil, err
	}
	if err := e.state.HirePut(hire); err != nil {
		return nil, err
	}
	e.emit(HireEvent(EventTypeHireTaken, hire))
	return hire.Clone(), nil
}

// ExtendHire pushes the current hire period out by days and collects the
// extra rent into escrow.
func (e *Engine) ExtendHire(borrower, mint, lender crypto.Address, days uint16) (*Hire, error) {
	if err := e.ready(ModuleHires); err != nil {
		return nil, err
	}
	hire, err := e.loadHire(mint, lender)
	if err != nil {
		return nil, err
	}
	if hire.State != HireHired || !hire.HasWindow() {
		return nil, ErrInvalidState
	}
	if !hire.Borrower.Equals(borrower) {
		return nil, ErrBorrowerMismatch
	}
	if days == 0 {
		return nil, ErrInvalidDays
	}
	newExpiry := hire.CurrentExpiry + fees.HireSpan(days)
	if e.policy.ClampHireExtension && newExpiry > hire.Expiry {
		return nil, ErrHireTooLong
	}
	acct, err := e.escrowAccount(hire)
	if err != nil {
		return nil, err
	}
	acct.Expiry = newExpiry
	if hire.Amount > 0 {
		cost, err := fees.HireCost(hire.Amount, days)
		if err != nil {
			return nil, err
		}
		if err := e.escrow.Deposit(acct, borrower, cost); err != nil {
			return nil, err
		}
	}
	hire.CurrentExpiry = newExpiry
	syncEscrow(hire, acct)
	if err := e.state.HirePut(hire); err != nil {
		return nil, err
	}
	e.emit(HireEvent(EventTypeHireExtended, hire))
	return hire.Clone(), nil
}

// RecoverHire returns hired collateral to the lender once the current period
// has ended and pays out the rent left in escrow.
func (e *Engine) RecoverHire(lender, mint crypto.Address) (*Hire, error) {
	if err := e.ready(ModuleHires); err != nil {
		return nil, err
	}
	hire, err := e.loadHire(mint, lender)
	if err != nil {
		return nil, err
	}
	if hire.State != HireHired || !hire.HasWindow() {
		return nil, ErrInvalidState
	}
	now := e.now()
	if hire.CurrentExpiry > now {
		return nil, ErrHireNotExpired
	}
	acct, err := e.escrowAccount(hire)
	if err != nil {
		return nil, err
	}
	if _, err := e.escrow.Withdraw(acct, hire.Lender, now); err != nil {
		return nil, err
	}
	tm, err := e.tokenManager(mint, lender)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.TransferLocked(tm, hire.Lender); err != nil {
		return nil, err
	}
	previous := hire.Borrower
	hire.EscrowBalance = acct.Balance
	hire.State = HireListed
	hire.Borrower = crypto.ZeroAddress
	hire.CurrentStart = 0
	hire.CurrentExpiry = 0
	if err := e.state.TokenManagerPut(tm); err != nil {
		return nil, err
	}
	if err := e.state.HirePut(hire); err != nil {
		return nil, err
	}
	e.emit(HireRecoveredEvent(hire, previous))
	return hire.Clone(), nil
}

// WithdrawFromHireEscrow pays the lender the rent earned so far without
// ending the hire.
func (e *Engine) WithdrawFromHireEscrow(lender, mint crypto.Address) (uint64, error) {
	if err := e.ready(ModuleHires); err != nil {
		return 0, err
	}
	hire, err := e.loadHire(mint, lender)
	if err != nil {
		return 0, err
	}
	acct, err := e.escrowAccount(hire)
	if err != nil {
		return 0, err
	}
	amount, err := e.escrow.Withdraw(acct, hire.Lender, e.now())
	if err != nil {
		return 0, err
	}
	syncEscrow(hire, acct)
	if err := e.state.HirePut(hire); err != nil {
		return 0, err
	}
	e.emit(HireWithdrawnEvent(hire, amount))
	return amount, nil
}

// CloseHire removes a hire that is neither taken nor committed to a borrower.
// The collateral stays frozen while a loan or option lock remains.
func (e *Engine) CloseHire(lender, mint crypto.Address) error {
	if err := e.ready(ModuleHires); err != nil {
		return err
	}
	hire, err := e.loadHire(mint, lender)
	if err != nil {
		return err
	}
	if hire.State == HireHired {
		return ErrInvalidState
	}
	if hire.HasBorrower() {
		return ErrHireOccupied
	}
	if hire.EscrowBalance > 0 {
		acct, err := e.escrowAccount(hire)
		if err != nil {
			return err
		}
		if _, err := e.escrow.Settle(acct, hire.Lender, crypto.ZeroAddress, e.now()); err != nil {
			return err
		}
	}
	tm, err := e.tokenManager(mint, lender)
	if err != nil {
		return err
	}
	if tm.Hire {
		if err := e.tokens.Release(tm, tokenmanager.KindHire); err != nil {
			return err
		}
		if err := e.state.TokenManagerPut(tm); err != nil {
			return err
		}
	}
	if err := e.state.HireDelete(mint, lender); err != nil {
		return err
	}
	e.emit(HireEvent(EventTypeHireClosed, hire))
	return nil
}

func (e *Engine) loadHire(mint, lender crypto.Address) (*Hire, error) {
	hire, ok, err := e.state.HireGet(mint, lender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHireNotFound
	}
	return hire, nil
}
