package pools

import (
	"strconv"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/native/listings"
)

const (
	EventTypeCollectionRegistered = "collection.registered"
	EventTypePoolCreated          = "pool.created"
	EventTypePoolDeposited        = "pool.deposited"
	EventTypePoolWithdrawn        = "pool.withdrawn"
	EventTypePoolBorrowed         = "pool.borrowed"
	EventTypePoolRepossessed      = "pool.repossessed"
	EventTypePoolClosed           = "pool.closed"
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

// CollectionEvent records a collection registration.
func CollectionEvent(c *Collection) *types.Event {
	return &types.Event{
		Type: EventTypeCollectionRegistered,
		Attributes: map[string]string{
			"collection": c.Collection.String(),
			"authority":  c.Authority.String(),
		},
	}
}

// PoolEvent describes a pool lifecycle transition.
func PoolEvent(eventType string, pool *Pool) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"collection":  pool.Collection.String(),
			"authority":   pool.Authority.String(),
			"floorPrice":  formatUint(pool.FloorPrice),
			"basisPoints": strconv.FormatUint(uint64(pool.BasisPoints), 10),
			"duration":    strconv.FormatInt(pool.Duration, 10),
			"originated":  formatUint(pool.Originated),
			"volume":      formatUint(pool.Volume),
		},
	}
}

// VaultEvent records funds moving into or out of a pool vault.
func VaultEvent(eventType string, pool *Pool, amount, balance uint64) *types.Event {
	evt := PoolEvent(eventType, pool)
	evt.Attributes["amount"] = formatUint(amount)
	evt.Attributes["vaultBalance"] = formatUint(balance)
	return evt
}

// PoolLoanEvent links a pool to a loan it funded.
func PoolLoanEvent(eventType string, pool *Pool, loan *listings.Loan) *types.Event {
	evt := PoolEvent(eventType, pool)
	evt.Attributes["mint"] = loan.Mint.String()
	evt.Attributes["borrower"] = loan.Borrower.String()
	evt.Attributes["loanState"] = loan.State.String()
	return evt
}
