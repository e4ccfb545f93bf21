package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"nftlend/core/events"
	"nftlend/observability"
)

const (
	wsWriteTimeout     = 10 * time.Second
	streamBufferLength = 64
)

// StreamMessage is one committed event as written to websocket subscribers.
type StreamMessage struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type streamFilter struct {
	eventType string
	module    string
	mint      string
}

func (f streamFilter) match(msg StreamMessage) bool {
	if f.eventType != "" && f.eventType != msg.Type {
		return false
	}
	if f.module != "" && !strings.HasPrefix(msg.Type, f.module+".") {
		return false
	}
	if f.mint != "" && msg.Attributes["mint"] != f.mint {
		return false
	}
	return true
}

type subscriber struct {
	filter streamFilter
	ch     chan StreamMessage
}

// EventStream fans committed events out to live subscribers. Subscribers that
// fall behind lose messages rather than stalling the protocol.
type EventStream struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  uint64
	dropped atomic.Uint64
}

func NewEventStream() *EventStream {
	return &EventStream{subs: make(map[uint64]*subscriber)}
}

// Emit implements events.Emitter.
func (s *EventStream) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	msg := StreamMessage{Type: evt.EventType()}
	if payload, ok := evt.(events.Payload); ok {
		if e := payload.Event(); e != nil {
			msg.Attributes = e.Attributes
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if !sub.filter.match(msg) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			s.dropped.Add(1)
			observability.ModuleMetrics().RecordThrottle("stream", "slow_subscriber")
		}
	}
}

// Dropped reports how many messages slow subscribers have missed.
func (s *EventStream) Dropped() uint64 { return s.dropped.Load() }

func (s *EventStream) subscribe(filter streamFilter) (<-chan StreamMessage, func()) {
	sub := &subscriber{filter: filter, ch: make(chan StreamMessage, streamBufferLength)}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *EventStream) subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		http.Error(w, "event stream not configured", http.StatusServiceUnavailable)
		return
	}
	query := r.URL.Query()
	filter := streamFilter{
		eventType: strings.TrimSpace(query.Get("type")),
		module:    strings.TrimSpace(query.Get("module")),
		mint:      strings.TrimSpace(query.Get("mint")),
	}
	if filter.mint != "" {
		if _, err := parseAddress("mint", filter.mint); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	updates, cancel := s.stream.subscribe(filter)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, updates); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, updates <-chan StreamMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeStreamMessage(ctx, conn, msg); err != nil {
				return err
			}
		}
	}
}

func writeStreamMessage(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
