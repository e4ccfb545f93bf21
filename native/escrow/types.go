package escrow

import "nftlend/crypto"

// Prefix is the derivation seed of a hire escrow account.
const Prefix = "hire_escrow"

// Account is the view of a hire escrow the ledger operates on. Balance is the
// prepaid amount not yet recognised as earned; [Start, Expiry] is the window
// the balance pays for.
type Account struct {
	Address crypto.Address
	Balance uint64
	Start   int64
	Expiry  int64
}

// Settlement is the outcome of closing out an escrow.
type Settlement struct {
	Earned   uint64
	Refunded uint64
}
