package escrow

import (
	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
)

const (
	EventTypeDeposited = "escrow.deposited"
	EventTypeWithdrawn = "escrow.withdrawn"
	EventTypeSettled   = "escrow.settled"
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

func movementEvent(eventType string, acct *Account, counterparty crypto.Address, amount uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"escrow":       acct.Address.String(),
			"counterparty": counterparty.String(),
			"amount":       formatUint(amount),
			"balance":      formatUint(acct.Balance),
		},
	}
}

func settledEvent(acct *Account, lender, borrower crypto.Address, s Settlement) *types.Event {
	attrs := map[string]string{
		"escrow":   acct.Address.String(),
		"lender":   lender.String(),
		"earned":   formatUint(s.Earned),
		"refunded": formatUint(s.Refunded),
	}
	if !borrower.IsZero() {
		attrs["borrower"] = borrower.String()
	}
	return &types.Event{Type: EventTypeSettled, Attributes: attrs}
}
