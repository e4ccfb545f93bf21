package escrow

import (
	"errors"
	"strconv"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/fees"
)

var (
	errNilFunds   = errors.New("escrow ledger: fund transfer not configured")
	errNilAccount = errors.New("escrow ledger: account required")

	ErrBalanceOverflow = common.NewError(common.ErrArithmeticOverflow, "escrow ledger: balance overflow")
)

// Ledger moves funds into and out of program-owned hire escrow accounts.
type Ledger struct {
	programID crypto.Address
	funds     common.FundTransfer
	emitter   events.Emitter
}

// NewLedger constructs a ledger deriving escrow accounts under programID.
func NewLedger(programID crypto.Address) *Ledger {
	return &Ledger{programID: programID, emitter: events.NoopEmitter{}}
}

// SetFunds configures the fund transfer capability.
func (l *Ledger) SetFunds(funds common.FundTransfer) { l.funds = funds }

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Address derives the escrow account for a hire of mint by lender.
func (l *Ledger) Address(mint, lender crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveProgramAddress(l.programID, []byte(Prefix), mint.Bytes(), lender.Bytes())
}

// Deposit moves amount from payer into the escrow.
func (l *Ledger) Deposit(acct *Account, payer crypto.Address, amount uint64) error {
	if err := l.ready(acct); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	balance, err := fees.CheckedAdd(acct.Balance, amount)
	if err != nil {
		return ErrBalanceOverflow
	}
	if err := l.funds.Transfer(payer, acct.Address, amount); err != nil {
		return err
	}
	acct.Balance = balance
	l.emit(movementEvent(EventTypeDeposited, acct, payer, amount))
	return nil
}

// Withdraw pays the lender the share of the balance earned since acct.Start
// and moves Start to now, so a later withdrawal only covers time not yet paid
// for.
func (l *Ledger) Withdraw(acct *Account, lender crypto.Address, now int64) (uint64, error) {
	if err := l.ready(acct); err != nil {
		return 0, err
	}
	amount, err := fees.EscrowWithdrawable(acct.Balance, acct.Start, acct.Expiry, now)
	if err != nil {
		return 0, err
	}
	if amount > 0 {
		if err := l.funds.Transfer(acct.Address, lender, amount); err != nil {
			return 0, err
		}
		acct.Balance -= amount
		l.emit(movementEvent(EventTypeWithdrawn, acct, lender, amount))
	}
	if now > acct.Start {
		acct.Start = now
	}
	return amount, nil
}

// Settle closes out the escrow: the lender receives the earned share and the
// borrower is refunded the rest. Without a borrower the remainder goes to the
// lender.
func (l *Ledger) Settle(acct *Account, lender, borrower crypto.Address, now int64) (Settlement, error) {
	earned, err := l.Withdraw(acct, lender, now)
	if err != nil {
		return Settlement{}, err
	}
	settlement := Settlement{Earned: earned}
	if remainder := acct.Balance; remainder > 0 {
		recipient := borrower
		if recipient.IsZero() {
			recipient = lender
		}
		if err := l.funds.Transfer(acct.Address, recipient, remainder); err != nil {
			return Settlement{}, err
		}
		acct.Balance = 0
		if recipient.Equals(lender) {
			settlement.Earned += remainder
		} else {
			settlement.Refunded = remainder
		}
	}
	l.emit(settledEvent(acct, lender, borrower, settlement))
	return settlement, nil
}

func (l *Ledger) ready(acct *Account) error {
	if acct == nil {
		return errNilAccount
	}
	if l.funds == nil {
		return errNilFunds
	}
	return nil
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || evt == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(WrapEvent(evt))
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
