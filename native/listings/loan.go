package listings

import (
	"nftlend/crypto"
	"nftlend/native/fees"
	"nftlend/native/tokenmanager"
)

// InitLoan lists collateral for a loan and locks it. The borrower must hold
// the token, or be the lender of a hire that is currently taken, in which
// case the loan layers on top of the hire lock.
func (e *Engine) InitLoan(borrower, mint crypto.Address, terms LoanTerms) (*Loan, error) {
	if err := e.ready(ModuleLoans); err != nil {
		return nil, err
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if _, exists, err := e.state.LoanGet(mint, borrower); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrLoanExists
	}
	tm, err := e.tokenManager(mint, borrower)
	if err != nil {
		return nil, err
	}
	if tm.Loan {
		return nil, ErrLoanLocked
	}
	if tm.CallOption {
		return nil, ErrCallOptionLocked
	}
	if tm.Hire {
		if err := e.requireHired(mint, borrower); err != nil {
			return nil, err
		}
	} else if err := e.requireOwner(mint, borrower); err != nil {
		return nil, err
	}
	_, bump, err := e.derive(LoanPrefix, mint, borrower)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.Acquire(tm, tokenmanager.KindLoan); err != nil {
		return nil, err
	}
	loan := &Loan{
		State:       LoanListed,
		Amount:      terms.Amount,
		Borrower:    borrower,
		BasisPoints: terms.BasisPoints,
		Duration:    terms.Duration,
		Mint:        mint,
		Bump:        bump,
	}
	if err := e.state.TokenManagerPut(tm); err != nil {
		return nil, err
	}
	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(LoanEvent(EventTypeLoanListed, loan))
	return loan.Clone(), nil
}

// GiveLoan funds a listed loan: the lender pays the principal to the
// borrower and the term starts now.
func (e *Engine) GiveLoan(lender, mint, borrower crypto.Address) (*Loan, error) {
	if err := e.ready(ModuleLoans); err != nil {
		return nil, err
	}
	loan, err := e.loadLoan(mint, borrower)
	if err != nil {
		return nil, err
	}
	if loan.State != LoanListed {
		return nil, ErrInvalidState
	}
	if lender.Equals(loan.Borrower) {
		return nil, ErrSelfDealing
	}
	if err := e.funds.Transfer(lender, loan.Borrower, loan.Amount); err != nil {
		return nil, err
	}
	loan.State = LoanActive
	loan.Lender = lender
	loan.StartDate = e.now()
	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(LoanEvent(EventTypeLoanFunded, loan))
	return loan.Clone(), nil
}

// RepayLoan settles an active loan. The borrower pays principal plus the
// pro-rata fee for the listed duration; the loan lock is released and the
// record closed.
func (e *Engine) RepayLoan(borrower, mint crypto.Address) (fees.LoanRepayment, error) {
	if err := e.ready(ModuleLoans); err != nil {
		return fees.LoanRepayment{}, err
	}
	loan, err := e.loadLoan(mint, borrower)
	if err != nil {
		return fees.LoanRepayment{}, err
	}
	if loan.State != LoanActive {
		return fees.LoanRepayment{}, ErrInvalidState
	}
	if !e.policy.AllowLateRepayment && e.now() > loan.DueAt() {
		return fees.LoanRepayment{}, ErrLoanTermElapsed
	}
	repayment, err := fees.CalculateLoanRepayment(loan.Amount, loan.BasisPoints, loan.Duration)
	if err != nil {
		return fees.LoanRepayment{}, err
	}
	if err := e.funds.Transfer(borrower, loan.Lender, repayment.AmountDue); err != nil {
		return fees.LoanRepayment{}, err
	}
	tm, err := e.tokenManager(mint, borrower)
	if err != nil {
		return fees.LoanRepayment{}, err
	}
	if err := e.tokens.Release(tm, tokenmanager.KindLoan); err != nil {
		return fees.LoanRepayment{}, err
	}
	if err := e.state.TokenManagerPut(tm); err != nil {
		return fees.LoanRepayment{}, err
	}
	if err := e.state.LoanDelete(mint, borrower); err != nil {
		return fees.LoanRepayment{}, err
	}
	e.emit(LoanRepaidEvent(loan, repayment))
	return repayment, nil
}

// Repossess lets the lender seize the collateral of an overdue loan.
func (e *Engine) Repossess(lender, mint, borrower crypto.Address) (*Loan, error) {
	return e.RepossessTo(lender, mint, borrower, lender)
}

// RepossessTo seizes the collateral of an overdue loan on behalf of lender
// and delivers it to recipient. A hire layered on the collateral is settled
// and closed, since the token leaves the borrower for good.
func (e *Engine) RepossessTo(lender, mint, borrower, recipient crypto.Address) (*Loan, error) {
	if err := e.ready(ModuleLoans); err != nil {
		return nil, err
	}
	loan, err := e.loadLoan(mint, borrower)
	if err != nil {
		return nil, err
	}
	if loan.State != LoanActive {
		return nil, ErrInvalidState
	}
	if !loan.Lender.Equals(lender) {
		return nil, ErrUnauthorized
	}
	if e.now()-loan.StartDate < loan.Duration {
		return nil, ErrNotOverdue
	}
	tm, err := e.tokenManager(mint, borrower)
	if err != nil {
		return nil, err
	}
	kinds := []tokenmanager.Kind{tokenmanager.KindLoan}
	closedHire, err := e.closeHireForTransfer(tm, mint, borrower)
	if err != nil {
		return nil, err
	}
	if closedHire {
		kinds = append(kinds, tokenmanager.KindHire)
	}
	if err := e.tokens.ReleaseAndTransfer(tm, recipient, kinds...); err != nil {
		return nil, err
	}
	loan.State = LoanDefaulted
	if err := e.state.TokenManagerPut(tm); err != nil {
		return nil, err
	}
	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(LoanEvent(EventTypeLoanRepossessed, loan))
	return loan.Clone(), nil
}

// CloseLoan removes a loan that was never funded or has been repossessed.
// No funds move.
func (e *Engine) CloseLoan(borrower, mint crypto.Address) error {
	if err := e.ready(ModuleLoans); err != nil {
		return err
	}
	loan, err := e.loadLoan(mint, borrower)
	if err != nil {
		return err
	}
	if loan.State != LoanListed && loan.State != LoanDefaulted {
		return ErrInvalidState
	}
	tm, err := e.tokenManager(mint, borrower)
	if err != nil {
		return err
	}
	if tm.Loan {
		if err := e.tokens.Release(tm, tokenmanager.KindLoan); err != nil {
			return err
		}
		if err := e.state.TokenManagerPut(tm); err != nil {
			return err
		}
	}
	if err := e.state.LoanDelete(mint, borrower); err != nil {
		return err
	}
	e.emit(LoanEvent(EventTypeLoanClosed, loan))
	return nil
}

func (e *Engine) loadLoan(mint, borrower crypto.Address) (*Loan, error) {
	loan, ok, err := e.state.LoanGet(mint, borrower)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLoanNotFound
	}
	return loan, nil
}
