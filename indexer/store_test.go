package indexer

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nftlend/core/events"
	"nftlend/core/types"
	"nftlend/crypto"
	"nftlend/native/listings"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store, err := New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type bareEvent string

func (e bareEvent) EventType() string { return string(e) }

func loanEvent(eventType string, mint crypto.Address) events.Event {
	loan := &listings.Loan{
		State:    listings.LoanListed,
		Amount:   1_000,
		Borrower: crypto.AddressFromLabel("borrower"),
		Mint:     mint,
		Duration: 86_400,
	}
	return listings.WrapEvent(listings.LoanEvent(eventType, loan))
}

func TestRecordAndList(t *testing.T) {
	store := newStore(t)
	first := crypto.AddressFromLabel("first")
	second := crypto.AddressFromLabel("second")

	store.Emit(loanEvent(listings.EventTypeLoanListed, first))
	store.Emit(loanEvent(listings.EventTypeLoanListed, second))
	store.Emit(loanEvent(listings.EventTypeLoanFunded, first))

	all, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Sequence)
	require.Equal(t, uint64(3), all[2].Sequence)
	require.Equal(t, "loan", all[0].Module)

	byMint, err := store.List(Filter{Mint: first.String()})
	require.NoError(t, err)
	require.Len(t, byMint, 2)
	require.Equal(t, listings.EventTypeLoanFunded, byMint[1].Type)

	attrs, err := byMint[0].DecodeAttributes()
	require.NoError(t, err)
	require.Equal(t, "1000", attrs["amount"])

	paged, err := store.List(Filter{After: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, uint64(2), paged[0].Sequence)

	byType, err := store.List(Filter{Type: listings.EventTypeLoanFunded})
	require.NoError(t, err)
	require.Len(t, byType, 1)
}

func TestRecordEventWithoutPayload(t *testing.T) {
	store := newStore(t)
	record, err := store.Record(bareEvent("custom"))
	require.NoError(t, err)
	require.Equal(t, "custom", record.Module)
	require.Equal(t, "{}", record.Attributes)

	_, err = store.Record(nil)
	require.ErrorIs(t, err, errNilEvent)
}

func TestSequenceResumesAfterReopen(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store, err := New(db, nil)
	require.NoError(t, err)
	_, err = store.Record(listings.WrapEvent(&types.Event{Type: "hire.listed", Attributes: map[string]string{}}))
	require.NoError(t, err)

	reopened, err := New(db, nil)
	require.NoError(t, err)
	record, err := reopened.Record(bareEvent("hire.closed"))
	require.NoError(t, err)
	require.Equal(t, uint64(2), record.Sequence)
	require.NoError(t, reopened.Close())
}
