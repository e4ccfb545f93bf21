package tokenmanager

import (
	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
)

const (
	// EventTypeLockAcquired is emitted when a claim takes the collateral lock.
	EventTypeLockAcquired = "token_manager.lock.acquired"
	// EventTypeLockReleased is emitted when a claim gives the lock up.
	EventTypeLockReleased = "token_manager.lock.released"
	// EventTypeFrozen is emitted when the collateral is delegated and frozen.
	EventTypeFrozen = "token_manager.frozen"
	// EventTypeThawed is emitted when the collateral is thawed and released.
	EventTypeThawed = "token_manager.thawed"
	// EventTypeTransferred is emitted when locked collateral changes holder.
	EventTypeTransferred = "token_manager.transferred"
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

// LockEvent describes a change of a single lock flag.
func LockEvent(eventType string, tm *TokenManager, kind Kind) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"mint":   tm.Mint.String(),
			"issuer": tm.Issuer.String(),
			"kind":   kind.String(),
		},
	}
}

// PhysicalEvent describes a freeze or thaw of the collateral.
func PhysicalEvent(eventType string, tm *TokenManager) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"mint":   tm.Mint.String(),
			"issuer": tm.Issuer.String(),
		},
	}
}

// TransferEvent describes collateral moving to a new holder.
func TransferEvent(tm *TokenManager, to crypto.Address) *types.Event {
	return &types.Event{
		Type: EventTypeTransferred,
		Attributes: map[string]string{
			"mint":   tm.Mint.String(),
			"issuer": tm.Issuer.String(),
			"to":     to.String(),
		},
	}
}
