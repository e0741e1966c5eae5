// Package sse streams FAQ collection changes to browsers as Server-Sent
// Events.
//
// Record mutations made through the API are announced individually
// (faq.created, faq.deleted). Every change, including hand edits of the
// backing file, is also folded into a throttled collection.changed so a
// client that only mirrors the list refetches at most once per interval and
// always after the last change.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event types sent to clients.
const (
	TypeFaqCreated        = "faq.created"
	TypeFaqDeleted        = "faq.deleted"
	TypeCollectionChanged = "collection.changed"
)

const (
	clientBuffer = 64
	// historySize bounds the frames kept for Last-Event-ID replay.
	historySize = 32
	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis = 3000
)

// Event is a single message on the stream.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// FaqRef is the payload of faq.created and faq.deleted.
type FaqRef struct {
	ID int `json:"id"`
}

// Change is the payload of collection.changed. Coalesced counts the record
// mutations and external edits folded into this notification.
type Change struct {
	Coalesced int `json:"coalesced"`
}

type sent struct {
	id  string
	raw []byte
}

type subscription struct {
	ch     chan []byte
	lastID string
}

type faqEvent struct {
	kind string
	id   int
}

// Broker fans events out to connected clients.
//
// The event loop goroutine owns the client set, the replay history and the
// throttle state. Public methods talk to it over channels.
type Broker struct {
	throttle  time.Duration
	keepAlive time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	faqEventCh    chan faqEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends collection.changed at most once per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle:      throttle,
		keepAlive:     15 * time.Second,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		faqEventCh:    make(chan faqEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// frame renders one SSE message under a fresh id.
func frame(event Event) (sent, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return sent{}, err
	}
	id := uuid.NewString()
	raw := []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload))
	return sent{id: id, raw: raw}, nil
}

// replayAfter returns the frames sent after lastID. An unknown id (too old
// or from another process) replays nothing.
func replayAfter(history []sent, lastID string) [][]byte {
	if lastID == "" {
		return nil
	}
	for i, s := range history {
		if s.id == lastID {
			out := make([][]byte, 0, len(history)-i-1)
			for _, later := range history[i+1:] {
				out = append(out, later.raw)
			}
			return out
		}
	}
	return nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]sent, 0, historySize)

	var (
		lastChanged time.Time
		pending     int
		flush       <-chan time.Time
		timer       *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	broadcast := func(event Event) {
		s, err := frame(event)
		if err != nil {
			return
		}
		if len(history) == historySize {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, s)
		for ch := range clients {
			select {
			case ch <- s.raw:
			default:
				// Slow client; it catches up via collection.changed.
			}
		}
	}

	announce := func() {
		lastChanged = time.Now()
		broadcast(Event{Type: TypeCollectionChanged, Data: Change{Coalesced: pending}})
		pending = 0
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			for _, raw := range replayAfter(history, sub.lastID) {
				select {
				case sub.ch <- raw:
				default:
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case ev := <-b.faqEventCh:
			switch ev.kind {
			case "created":
				broadcast(Event{Type: TypeFaqCreated, Data: FaqRef{ID: ev.id}})
			case "deleted":
				broadcast(Event{Type: TypeFaqDeleted, Data: FaqRef{ID: ev.id}})
			}
			pending++
			if flush != nil {
				// Already scheduled; this change rides along.
				continue
			}
			if wait := b.throttle - time.Since(lastChanged); wait > 0 {
				timer = time.NewTimer(wait)
				flush = timer.C
				continue
			}
			announce()

		case <-flush:
			flush, timer = nil, nil
			announce()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. When lastEventID names a frame still in the
// replay history, every later frame is queued on the returned channel first.
func (b *Broker) Subscribe(lastEventID string) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, lastID: lastEventID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an arbitrary event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishFaqEvent records a mutation ("created", "deleted") or an external
// edit ("changed"). Its signature matches faqservice.EventFunc.
func (b *Broker) PublishFaqEvent(kind string, id int) {
	if b.closed.Load() {
		return
	}
	select {
	case b.faqEventCh <- faqEvent{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). It honours the
// Last-Event-ID header sent by reconnecting EventSource clients.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe(r.Header.Get("Last-Event-ID"))
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
