package listings

import (
	"nftlend/crypto"
	"nftlend/native/fees"
	"nftlend/native/tokenmanager"
)

// GetLoan returns the loan of borrower against mint.
func (e *Engine) GetLoan(mint, borrower crypto.Address) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadLoan(mint, borrower)
}

// GetCallOption returns the option written by seller against mint.
func (e *Engine) GetCallOption(mint, seller crypto.Address) (*CallOption, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadCallOption(mint, seller)
}

// GetHire returns the hire of mint listed by lender.
func (e *Engine) GetHire(mint, lender crypto.Address) (*Hire, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadHire(mint, lender)
}

// GetTokenManager returns the lock record of the pair. An unlocked record is
// returned when the pair never held a lock.
func (e *Engine) GetTokenManager(mint, issuer crypto.Address) (*tokenmanager.TokenManager, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.tokenManager(mint, issuer)
}

// QuoteRepayment returns what the borrower would pay to repay the loan now.
func (e *Engine) QuoteRepayment(mint, borrower crypto.Address) (fees.LoanRepayment, error) {
	loan, err := e.GetLoan(mint, borrower)
	if err != nil {
		return fees.LoanRepayment{}, err
	}
	return fees.CalculateLoanRepayment(loan.Amount, loan.BasisPoints, loan.Duration)
}

// EscrowWithdrawable returns the rent the lender could withdraw now.
func (e *Engine) EscrowWithdrawable(mint, lender crypto.Address) (uint64, error) {
	hire, err := e.GetHire(mint, lender)
	if err != nil {
		return 0, err
	}
	return fees.EscrowWithdrawable(hire.EscrowBalance, hire.CurrentStart, hire.CurrentExpiry, e.now())
}
