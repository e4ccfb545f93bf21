package listings

import (
	"strconv"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
	"nftlend/native/fees"
)

const (
	EventTypeLoanListed      = "loan.listed"
	EventTypeLoanFunded      = "loan.funded"
	EventTypeLoanRepaid      = "loan.repaid"
	EventTypeLoanRepossessed = "loan.repossessed"
	EventTypeLoanClosed      = "loan.closed"

	EventTypeCallOptionListed    = "call_option.listed"
	EventTypeCallOptionBought    = "call_option.bought"
	EventTypeCallOptionExercised = "call_option.exercised"
	EventTypeCallOptionClosed    = "call_option.closed"

	EventTypeHireListed    = "hire.listed"
	EventTypeHireTaken     = "hire.taken"
	EventTypeHireExtended  = "hire.extended"
	EventTypeHireRecovered = "hire.recovered"
	EventTypeHireWithdrawn = "hire.withdrawn"
	EventTypeHireClosed    = "hire.closed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func setAddress(attrs map[string]string, key string, addr crypto.Address) {
	if !addr.IsZero() {
		attrs[key] = addr.String()
	}
}

// LoanEvent describes a loan lifecycle transition.
func LoanEvent(eventType string, loan *Loan) *types.Event {
	attrs := map[string]string{
		"mint":        loan.Mint.String(),
		"borrower":    loan.Borrower.String(),
		"state":       loan.State.String(),
		"amount":      formatUint(loan.Amount),
		"basisPoints": strconv.FormatUint(uint64(loan.BasisPoints), 10),
		"duration":    formatInt(loan.Duration),
	}
	setAddress(attrs, "lender", loan.Lender)
	if loan.StartDate != 0 {
		attrs["startDate"] = formatInt(loan.StartDate)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// LoanRepaidEvent records the amounts settled on repayment.
func LoanRepaidEvent(loan *Loan, repayment fees.LoanRepayment) *types.Event {
	evt := LoanEvent(EventTypeLoanRepaid, loan)
	evt.Attributes["proRataFee"] = formatUint(repayment.ProRataFee)
	evt.Attributes["amountDue"] = formatUint(repayment.AmountDue)
	return evt
}

// CallOptionEvent describes a call option lifecycle transition.
func CallOptionEvent(eventType string, option *CallOption) *types.Event {
	attrs := map[string]string{
		"mint":        option.Mint.String(),
		"seller":      option.Seller.String(),
		"state":       option.State.String(),
		"amount":      formatUint(option.Amount),
		"strikePrice": formatUint(option.StrikePrice),
		"expiry":      formatInt(option.Expiry),
	}
	setAddress(attrs, "buyer", option.Buyer)
	return &types.Event{Type: eventType, Attributes: attrs}
}

// CallOptionExercisedEvent records the royalty split of an exercise.
func CallOptionExercisedEvent(option *CallOption, split fees.RoyaltySplit) *types.Event {
	evt := CallOptionEvent(EventTypeCallOptionExercised, option)
	evt.Attributes["royalties"] = formatUint(split.CreatorTotal())
	evt.Attributes["sellerProceeds"] = formatUint(split.SellerProceeds())
	return evt
}

// HireEvent describes a hire lifecycle transition.
func HireEvent(eventType string, hire *Hire) *types.Event {
	attrs := map[string]string{
		"mint":          hire.Mint.String(),
		"lender":        hire.Lender.String(),
		"state":         hire.State.String(),
		"amount":        formatUint(hire.Amount),
		"expiry":        formatInt(hire.Expiry),
		"escrowBalance": formatUint(hire.EscrowBalance),
	}
	setAddress(attrs, "borrower", hire.Borrower)
	if hire.HasWindow() {
		attrs["currentStart"] = formatInt(hire.CurrentStart)
		attrs["currentExpiry"] = formatInt(hire.CurrentExpiry)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

// HireRecoveredEvent names the borrower the collateral was recovered from.
func HireRecoveredEvent(hire *Hire, previous crypto.Address) *types.Event {
	evt := HireEvent(EventTypeHireRecovered, hire)
	setAddress(evt.Attributes, "previousBorrower", previous)
	return evt
}

// HireWithdrawnEvent records rent paid out of escrow to the lender.
func HireWithdrawnEvent(hire *Hire, amount uint64) *types.Event {
	evt := HireEvent(EventTypeHireWithdrawn, hire)
	evt.Attributes["withdrawn"] = formatUint(amount)
	return evt
}
