package tokenmanager

import (
	"errors"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
	"nftlend/native/common"
)

var (
	ErrLockHeld    = common.NewError(common.ErrPreconditionViolation, "token manager: lock already held")
	ErrLockNotHeld = common.NewError(common.ErrPreconditionViolation, "token manager: lock not held")
	ErrNotLocked   = common.NewError(common.ErrPreconditionViolation, "token manager: collateral not locked")
	ErrUnknownKind = common.NewError(common.ErrPreconditionViolation, "token manager: unknown claim kind")

	errNilLedger  = errors.New("token manager: token ledger not configured")
	errNilManager = errors.New("token manager: record required")
)

// Coordinator is the only component that freezes, thaws, delegates or
// revokes collateral. Claim engines express intent through Acquire, Release
// and the transfer helpers; the coordinator decides whether the physical
// token state has to change.
type Coordinator struct {
	programID crypto.Address
	ledger    common.TokenLedger
	emitter   events.Emitter
}

// NewCoordinator constructs a coordinator whose signing authority is derived
// under programID.
func NewCoordinator(programID crypto.Address) *Coordinator {
	return &Coordinator{programID: programID, emitter: events.NoopEmitter{}}
}

// SetLedger configures the token ledger capability.
func (c *Coordinator) SetLedger(ledger common.TokenLedger) { c.ledger = ledger }

// SetEmitter configures the event emitter used by the coordinator.
func (c *Coordinator) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// New returns an unlocked record for the pair with its derivation bump set.
func (c *Coordinator) New(mint, issuer crypto.Address) (*TokenManager, error) {
	_, bump, err := c.derive(mint, issuer)
	if err != nil {
		return nil, err
	}
	return &TokenManager{Mint: mint, Issuer: issuer, Bump: bump}, nil
}

// Authority returns the derived delegate that freezes and moves collateral on
// behalf of the record.
func (c *Coordinator) Authority(tm *TokenManager) (crypto.Address, error) {
	if tm == nil {
		return crypto.ZeroAddress, errNilManager
	}
	addr, _, err := c.derive(tm.Mint, tm.Issuer)
	return addr, err
}

func (c *Coordinator) derive(mint, issuer crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveProgramAddress(c.programID, []byte(Prefix), mint.Bytes(), issuer.Bytes())
}

// Acquire sets the lock for kind. The first lock on an unlocked record
// delegates the token to the authority and freezes it.
func (c *Coordinator) Acquire(tm *TokenManager, kind Kind) error {
	if err := c.check(tm, kind); err != nil {
		return err
	}
	if tm.Held(kind) {
		return ErrLockHeld
	}
	wasLocked := tm.Locked()
	tm.set(kind, true)
	if !wasLocked {
		if err := c.lock(tm); err != nil {
			tm.set(kind, false)
			return err
		}
	}
	c.emit(LockEvent(EventTypeLockAcquired, tm, kind))
	return nil
}

// Release clears the lock for kind. The token is thawed and the delegate
// revoked only when no other lock remains.
func (c *Coordinator) Release(tm *TokenManager, kind Kind) error {
	if err := c.check(tm, kind); err != nil {
		return err
	}
	if !tm.Held(kind) {
		return ErrLockNotHeld
	}
	tm.set(kind, false)
	if !tm.Locked() {
		if err := c.unlock(tm); err != nil {
			tm.set(kind, true)
			return err
		}
	}
	c.emit(LockEvent(EventTypeLockReleased, tm, kind))
	return nil
}

// TransferLocked moves locked collateral to a new holder and locks it again
// under that holder. The set of locks is unchanged.
func (c *Coordinator) TransferLocked(tm *TokenManager, to crypto.Address) error {
	if tm == nil {
		return errNilManager
	}
	if !tm.Locked() {
		return ErrNotLocked
	}
	if err := c.move(tm, to); err != nil {
		return err
	}
	if err := c.relock(tm, to); err != nil {
		return err
	}
	c.emit(TransferEvent(tm, to))
	return nil
}

// ReleaseAndTransfer clears the given locks while moving the collateral to a
// new holder. The token is only frozen again when another lock survives.
func (c *Coordinator) ReleaseAndTransfer(tm *TokenManager, to crypto.Address, kinds ...Kind) error {
	if tm == nil {
		return errNilManager
	}
	if !tm.Locked() {
		return ErrNotLocked
	}
	for _, kind := range kinds {
		if !kind.Valid() {
			return ErrUnknownKind
		}
		if !tm.Held(kind) {
			return ErrLockNotHeld
		}
	}
	for _, kind := range kinds {
		tm.set(kind, false)
	}
	if err := c.move(tm, to); err != nil {
		return err
	}
	if tm.Locked() {
		if err := c.relock(tm, to); err != nil {
			return err
		}
	} else {
		c.emit(PhysicalEvent(EventTypeThawed, tm))
	}
	for _, kind := range kinds {
		c.emit(LockEvent(EventTypeLockReleased, tm, kind))
	}
	c.emit(TransferEvent(tm, to))
	return nil
}

func (c *Coordinator) check(tm *TokenManager, kind Kind) error {
	if tm == nil {
		return errNilManager
	}
	if !kind.Valid() {
		return ErrUnknownKind
	}
	if c.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (c *Coordinator) lock(tm *TokenManager) error {
	authority, err := c.Authority(tm)
	if err != nil {
		return err
	}
	owner, err := c.ledger.Owner(tm.Mint)
	if err != nil {
		return err
	}
	if err := c.ledger.Approve(tm.Mint, owner, authority); err != nil {
		return err
	}
	if err := c.ledger.Freeze(tm.Mint, authority); err != nil {
		return err
	}
	c.emit(PhysicalEvent(EventTypeFrozen, tm))
	return nil
}

func (c *Coordinator) unlock(tm *TokenManager) error {
	authority, err := c.Authority(tm)
	if err != nil {
		return err
	}
	if err := c.ledger.Thaw(tm.Mint, authority); err != nil {
		return err
	}
	if err := c.ledger.Revoke(tm.Mint, authority); err != nil {
		return err
	}
	c.emit(PhysicalEvent(EventTypeThawed, tm))
	return nil
}

// move thaws the collateral and hands it to the new holder using the
// authority's delegation. The new holder's account carries no delegate.
func (c *Coordinator) move(tm *TokenManager, to crypto.Address) error {
	if c.ledger == nil {
		return errNilLedger
	}
	authority, err := c.Authority(tm)
	if err != nil {
		return err
	}
	if err := c.ledger.Thaw(tm.Mint, authority); err != nil {
		return err
	}
	return c.ledger.Transfer(tm.Mint, authority, to)
}

func (c *Coordinator) relock(tm *TokenManager, holder crypto.Address) error {
	authority, err := c.Authority(tm)
	if err != nil {
		return err
	}
	if err := c.ledger.Approve(tm.Mint, holder, authority); err != nil {
		return err
	}
	return c.ledger.Freeze(tm.Mint, authority)
}

func (c *Coordinator) emit(evt *types.Event) {
	if c == nil || evt == nil || c.emitter == nil {
		return
	}
	c.emitter.Emit(WrapEvent(evt))
}
