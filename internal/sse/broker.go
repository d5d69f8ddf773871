// Package sse streams workspace change notifications to connected clients
// over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// NoteEventKind identifies what happened to a note.
type NoteEventKind string

const (
	NoteCreated NoteEventKind = "created"
	NoteUpdated NoteEventKind = "updated"
)

// Event is a single server-sent event. Data is JSON-encoded into the
// event's data frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type noteEvent struct {
	kind NoteEventKind
	id   string
	path string
}

// Broker fans events out to subscribed SSE clients.
//
// Concurrency model: a single event loop goroutine owns all mutable state
// (the client set, the graph throttle timestamp). Public methods talk to the
// loop through channels, so no mutexes are required.
type Broker struct {
	graphMin  time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. graphThrottle bounds how often graph.updated
// events are emitted; keepAlive is the idle comment-frame interval.
func NewBroker(graphThrottle, keepAlive time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		keepAlive:     keepAlive,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	clients := make(map[chan []byte]struct{})
	var lastGraph time.Time

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop the frame rather than stall every
				// other stream.
			}
		}
	}
	emit := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		send([]byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)))
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			emit(event)

		case ev := <-b.noteEventCh:
			emit(Event{
				Type: "note." + string(ev.kind),
				Data: map[string]string{"id": ev.id, "path": ev.path},
			})
			if now := time.Now(); now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				emit(Event{Type: "graph.updated", Data: struct{}{}})
			}

		case <-ticker.C:
			// Comment frame; keeps idle connections from being reaped by
			// proxies in between real events.
			send([]byte(": keep-alive\n\n"))

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

// Subscribe registers a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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

// Publish broadcasts an arbitrary event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNote broadcasts a note change, plus a throttled graph.updated event.
func (b *Broker) PublishNote(kind NoteEventKind, id, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEvent{kind: kind, id: id, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
