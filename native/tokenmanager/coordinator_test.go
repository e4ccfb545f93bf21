package tokenmanager

import (
	"errors"
	"math/rand"
	"testing"

	"nftlend/core/events"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/common/hosttest"
)

var (
	testProgram = crypto.AddressFromLabel("tokenmanager.test.program")
	testMint    = crypto.AddressFromLabel("tokenmanager.test.mint")
	testOwner   = crypto.AddressFromLabel("tokenmanager.test.owner")
	testHolder  = crypto.AddressFromLabel("tokenmanager.test.holder")
)

func newTestCoordinator(t *testing.T) (*Coordinator, *hosttest.TokenLedger, *TokenManager) {
	t.Helper()
	ledger := hosttest.NewTokenLedger()
	ledger.Mint(testMint, testOwner)
	coord := NewCoordinator(testProgram)
	coord.SetLedger(ledger)
	tm, err := coord.New(testMint, testOwner)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	return coord, ledger, tm
}

func TestAcquireFreezesOnlyOnFirstLock(t *testing.T) {
	coord, ledger, tm := newTestCoordinator(t)

	if err := coord.Acquire(tm, KindHire); err != nil {
		t.Fatalf("acquire hire: %v", err)
	}
	if !ledger.Frozen(testMint) {
		t.Fatalf("expected token frozen after first lock")
	}
	authority, err := coord.Authority(tm)
	if err != nil {
		t.Fatalf("authority: %v", err)
	}
	if !ledger.Delegate(testMint).Equals(authority) {
		t.Fatalf("expected delegate to be the derived authority")
	}
	if err := coord.Acquire(tm, KindLoan); err != nil {
		t.Fatalf("acquire loan: %v", err)
	}
	if got := ledger.Count(hosttest.OpFreeze); got != 1 {
		t.Fatalf("expected one freeze, got %d", got)
	}

	if err := coord.Release(tm, KindLoan); err != nil {
		t.Fatalf("release loan: %v", err)
	}
	if got := ledger.Count(hosttest.OpThaw); got != 0 {
		t.Fatalf("expected no thaw while hire lock remains, got %d", got)
	}
	if !ledger.Frozen(testMint) {
		t.Fatalf("expected token to stay frozen")
	}
	if err := coord.Release(tm, KindHire); err != nil {
		t.Fatalf("release hire: %v", err)
	}
	if got := ledger.Count(hosttest.OpThaw); got != 1 {
		t.Fatalf("expected one thaw, got %d", got)
	}
	if ledger.Frozen(testMint) || !ledger.Delegate(testMint).IsZero() {
		t.Fatalf("expected token thawed and delegate revoked")
	}
}

func TestAcquireReleasePreconditions(t *testing.T) {
	coord, _, tm := newTestCoordinator(t)
	if err := coord.Release(tm, KindLoan); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld, got %v", err)
	}
	if err := coord.Acquire(tm, KindLoan); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	err := coord.Acquire(tm, KindLoan)
	if !errors.Is(err, ErrLockHeld) || !errors.Is(err, common.ErrPreconditionViolation) {
		t.Fatalf("expected ErrLockHeld precondition violation, got %v", err)
	}
	if err := coord.Acquire(tm, Kind(9)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestAcquireWithoutLedger(t *testing.T) {
	coord := NewCoordinator(testProgram)
	tm, err := coord.New(testMint, testOwner)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := coord.Acquire(tm, KindLoan); err == nil {
		t.Fatalf("expected error without ledger")
	}
	if tm.Locked() {
		t.Fatalf("flag must not be set on failure")
	}
}

func TestAcquireRevertsFlagWhenFreezeFails(t *testing.T) {
	coord, ledger, tm := newTestCoordinator(t)
	// Token owned by someone else: approval by the recorded owner fails.
	ledger.Mint(testMint, testHolder)
	coord.SetLedger(&strictOwnerLedger{TokenLedger: ledger, owner: testOwner})
	if err := coord.Acquire(tm, KindCallOption); err == nil {
		t.Fatalf("expected approve failure")
	}
	if tm.CallOption {
		t.Fatalf("flag must be reverted")
	}
}

type strictOwnerLedger struct {
	*hosttest.TokenLedger
	owner crypto.Address
}

func (l *strictOwnerLedger) Owner(crypto.Address) (crypto.Address, error) { return l.owner, nil }

// For every sequence of acquire/release calls the physical frozen state
// equals the OR of the flags, and freeze/thaw only happen on boundary
// crossings.
func TestFreezeStateTracksLogicalLocks(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	kinds := []Kind{KindLoan, KindCallOption, KindHire}
	for round := 0; round < 50; round++ {
		coord, ledger, tm := newTestCoordinator(t)
		for step := 0; step < 40; step++ {
			kind := kinds[rng.Intn(len(kinds))]
			before := tm.Locked()
			freezes, thaws := ledger.Count(hosttest.OpFreeze), ledger.Count(hosttest.OpThaw)
			var err error
			if tm.Held(kind) {
				err = coord.Release(tm, kind)
			} else {
				err = coord.Acquire(tm, kind)
			}
			if err != nil {
				t.Fatalf("round %d step %d: %v", round, step, err)
			}
			after := tm.Locked()
			if ledger.Frozen(testMint) != after {
				t.Fatalf("round %d step %d: frozen=%v locked=%v", round, step, ledger.Frozen(testMint), after)
			}
			dFreeze := ledger.Count(hosttest.OpFreeze) - freezes
			dThaw := ledger.Count(hosttest.OpThaw) - thaws
			wantFreeze, wantThaw := 0, 0
			if !before && after {
				wantFreeze = 1
			}
			if before && !after {
				wantThaw = 1
			}
			if dFreeze != wantFreeze || dThaw != wantThaw {
				t.Fatalf("round %d step %d: freeze %d/%d thaw %d/%d", round, step, dFreeze, wantFreeze, dThaw, wantThaw)
			}
		}
	}
}

func TestTransferLockedKeepsLocks(t *testing.T) {
	coord, ledger, tm := newTestCoordinator(t)
	if err := coord.TransferLocked(tm, testHolder); !errors.Is(err, ErrNotLocked) {
		t.Fatalf("expected ErrNotLocked, got %v", err)
	}
	if err := coord.Acquire(tm, KindHire); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := coord.TransferLocked(tm, testHolder); err != nil {
		t.Fatalf("transfer locked: %v", err)
	}
	owner, _ := ledger.Owner(testMint)
	if !owner.Equals(testHolder) {
		t.Fatalf("expected holder to own token")
	}
	if !ledger.Frozen(testMint) || !tm.Hire {
		t.Fatalf("expected lock and freeze to persist")
	}
	if err := coord.TransferLocked(tm, testOwner); err != nil {
		t.Fatalf("transfer back: %v", err)
	}
	owner, _ = ledger.Owner(testMint)
	if !owner.Equals(testOwner) || !ledger.Frozen(testMint) {
		t.Fatalf("expected owner to hold frozen token again")
	}
}

func TestReleaseAndTransfer(t *testing.T) {
	coord, ledger, tm := newTestCoordinator(t)
	buffer := &events.Buffer{}
	coord.SetEmitter(buffer)
	for _, kind := range []Kind{KindCallOption, KindHire} {
		if err := coord.Acquire(tm, kind); err != nil {
			t.Fatalf("acquire %s: %v", kind, err)
		}
	}
	if err := coord.ReleaseAndTransfer(tm, testHolder, KindLoan); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld, got %v", err)
	}
	if err := coord.ReleaseAndTransfer(tm, testHolder, KindCallOption); err != nil {
		t.Fatalf("release one: %v", err)
	}
	if !ledger.Frozen(testMint) || !tm.Hire || tm.CallOption {
		t.Fatalf("expected hire lock to keep the token frozen")
	}
	if err := coord.ReleaseAndTransfer(tm, testOwner, KindHire); err != nil {
		t.Fatalf("release last: %v", err)
	}
	owner, _ := ledger.Owner(testMint)
	if !owner.Equals(testOwner) || ledger.Frozen(testMint) || !ledger.Delegate(testMint).IsZero() {
		t.Fatalf("expected free token with owner")
	}
	found := false
	for _, typ := range buffer.Types() {
		if typ == EventTypeThawed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected thaw event, got %v", buffer.Types())
	}
}
