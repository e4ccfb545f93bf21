package escrow

import (
	"errors"
	"testing"

	"nftlend/core/events"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/common/hosttest"
)

var (
	testProgram  = crypto.AddressFromLabel("escrow.test.program")
	testMint     = crypto.AddressFromLabel("escrow.test.mint")
	testLender   = crypto.AddressFromLabel("escrow.test.lender")
	testBorrower = crypto.AddressFromLabel("escrow.test.borrower")
)

func newTestLedger(t *testing.T) (*Ledger, *hosttest.Funds, *Account) {
	t.Helper()
	funds := hosttest.NewFunds()
	ledger := NewLedger(testProgram)
	ledger.SetFunds(funds)
	addr, _, err := ledger.Address(testMint, testLender)
	if err != nil {
		t.Fatalf("derive escrow: %v", err)
	}
	return ledger, funds, &Account{Address: addr}
}

func TestDepositRequiresFunds(t *testing.T) {
	ledger, funds, acct := newTestLedger(t)
	if err := ledger.Deposit(acct, testBorrower, 10); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("balance must not change on failure")
	}
	funds.Credit(testBorrower, 10)
	if err := ledger.Deposit(acct, testBorrower, 10); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if acct.Balance != 10 || funds.Balance(acct.Address) != 10 {
		t.Fatalf("unexpected balances: record=%d escrow=%d", acct.Balance, funds.Balance(acct.Address))
	}
}

func TestWithdrawResetsStart(t *testing.T) {
	ledger, funds, acct := newTestLedger(t)
	funds.Credit(testBorrower, 1_000)
	acct.Start, acct.Expiry = 0, 1_000
	if err := ledger.Deposit(acct, testBorrower, 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	paid, err := ledger.Withdraw(acct, testLender, 250)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if paid != 250 || acct.Balance != 750 || acct.Start != 250 {
		t.Fatalf("unexpected state paid=%d balance=%d start=%d", paid, acct.Balance, acct.Start)
	}
	paid, err = ledger.Withdraw(acct, testLender, 250)
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if paid != 0 {
		t.Fatalf("same instant must not pay twice, got %d", paid)
	}
	if funds.Balance(testLender) != 250 {
		t.Fatalf("expected lender balance 250, got %d", funds.Balance(testLender))
	}
}

func TestWithdrawSplitMatchesSingleWithdrawal(t *testing.T) {
	const start, expiry = int64(100), int64(100 + 9*86_400)
	times := []int64{start + 86_400 + 17, start + 2*86_400 + 5, start + 4*86_400 + 3}
	n := uint64(len(times))
	// 9_999 does not divide evenly and loses a lamport to the split.
	for _, balance := range []uint64{90_001, 9_999, 4_001, 1_001} {
		split, splitFunds, splitAcct := newTestLedger(t)
		single, singleFunds, singleAcct := newTestLedger(t)
		for _, pair := range []struct {
			funds *hosttest.Funds
			acct  *Account
			l     *Ledger
		}{{splitFunds, splitAcct, split}, {singleFunds, singleAcct, single}} {
			pair.funds.Credit(testBorrower, balance)
			pair.acct.Start, pair.acct.Expiry = start, expiry
			if err := pair.l.Deposit(pair.acct, testBorrower, balance); err != nil {
				t.Fatalf("deposit: %v", err)
			}
		}
		for _, now := range times {
			if _, err := split.Withdraw(splitAcct, testLender, now); err != nil {
				t.Fatalf("withdraw at %d: %v", now, err)
			}
		}
		if _, err := single.Withdraw(singleAcct, testLender, times[len(times)-1]); err != nil {
			t.Fatalf("withdraw single: %v", err)
		}
		a, b := splitFunds.Balance(testLender), singleFunds.Balance(testLender)
		if a > b || b-a > n-1 {
			t.Fatalf("balance %d: %d split withdrawals paid %d, single paid %d", balance, n, a, b)
		}
		if a+splitAcct.Balance != balance {
			t.Fatalf("balance %d: split withdrawals lost funds (paid %d, left %d)", balance, a, splitAcct.Balance)
		}
	}
}

func TestSettleRefundsBorrower(t *testing.T) {
	ledger, funds, acct := newTestLedger(t)
	buffer := &events.Buffer{}
	ledger.SetEmitter(buffer)
	funds.Credit(testBorrower, 500)
	acct.Start, acct.Expiry = 1_000, 2_000
	if err := ledger.Deposit(acct, testBorrower, 500); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	settlement, err := ledger.Settle(acct, testLender, testBorrower, 1_400)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settlement.Earned != 200 || settlement.Refunded != 300 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	if acct.Balance != 0 || funds.Balance(acct.Address) != 0 {
		t.Fatalf("escrow must be empty after settlement")
	}
	if funds.Balance(testLender) != 200 || funds.Balance(testBorrower) != 300 {
		t.Fatalf("unexpected payouts lender=%d borrower=%d", funds.Balance(testLender), funds.Balance(testBorrower))
	}
	types := buffer.Types()
	if len(types) == 0 || types[len(types)-1] != EventTypeSettled {
		t.Fatalf("expected settled event last, got %v", types)
	}
}

func TestSettleWithoutBorrowerPaysLender(t *testing.T) {
	ledger, funds, acct := newTestLedger(t)
	funds.Credit(testBorrower, 100)
	acct.Start, acct.Expiry = 0, 100
	if err := ledger.Deposit(acct, testBorrower, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	settlement, err := ledger.Settle(acct, testLender, crypto.ZeroAddress, 10)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settlement.Earned != 100 || settlement.Refunded != 0 || funds.Balance(testLender) != 100 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
}

func TestLedgerRequiresFunds(t *testing.T) {
	ledger := NewLedger(testProgram)
	if _, err := ledger.Withdraw(&Account{}, testLender, 1); err == nil {
		t.Fatalf("expected error without fund transfer")
	}
	ledger.SetFunds(hosttest.NewFunds())
	if err := ledger.Deposit(nil, testLender, 1); err == nil {
		t.Fatalf("expected error for nil account")
	}
}
