package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"nftlend/core/types"
	"nftlend/native/listings"
)

func TestEventStreamFiltersSubscribers(t *testing.T) {
	stream := NewEventStream()
	loans, cancelLoans := stream.subscribe(streamFilter{module: "loan"})
	defer cancelLoans()
	hires, cancelHires := stream.subscribe(streamFilter{module: "hire"})
	defer cancelHires()

	stream.Emit(listings.WrapEvent(&types.Event{Type: "loan.listed", Attributes: map[string]string{"mint": "m"}}))

	select {
	case msg := <-loans:
		if msg.Type != "loan.listed" || msg.Attributes["mint"] != "m" {
			t.Fatalf("unexpected message %+v", msg)
		}
	default:
		t.Fatalf("loan subscriber missed the event")
	}
	select {
	case msg := <-hires:
		t.Fatalf("hire subscriber received %+v", msg)
	default:
	}

	cancelLoans()
	cancelLoans()
	if got := stream.subscribers(); got != 1 {
		t.Fatalf("expected one subscriber left, got %d", got)
	}
}

func TestEventStreamDropsForSlowSubscribers(t *testing.T) {
	stream := NewEventStream()
	_, cancel := stream.subscribe(streamFilter{})
	defer cancel()
	for i := 0; i < streamBufferLength+3; i++ {
		stream.Emit(listings.WrapEvent(&types.Event{Type: "loan.listed"}))
	}
	if got := stream.Dropped(); got != 3 {
		t.Fatalf("expected 3 dropped messages, got %d", got)
	}
}

func TestEventsWebsocketDeliversCommittedEvents(t *testing.T) {
	h := newRPCHarness(t, RateLimit{})
	srv := httptest.NewServer(h.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?module=loan&mint=" + h.mint.String()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	params := loanInitParams{Mint: h.mint.String(), Amount: "1000", BasisPoints: 100, Duration: 86_400}
	if _, resp := h.call(t, h.token(t, h.alice), "loan_init", params); resp.Error != nil {
		t.Fatalf("init: %+v", resp.Error)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != listings.EventTypeLoanListed || msg.Attributes["borrower"] != h.alice.String() {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestEventsWebsocketRejectsBadMint(t *testing.T) {
	h := newRPCHarness(t, RateLimit{})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?mint=not-base58!", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", rec.Code)
	}
}
