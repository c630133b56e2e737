// Package sse streams link-graph change events to HTTP clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Event types.
const (
	EventIndexRebuilt  = "index.rebuilt"
	EventLinksResolved = "links.resolved"
	EventGraphUpdated  = "graph.updated"
)

const (
	clientBuffer     = 64
	defaultKeepAlive = 30 * time.Second
)

// Event is one frame on the stream. ID is assigned by the broker.
type Event struct {
	ID   uint64
	Type string
	Data any
}

func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, payload), nil
}

// Broker fans link-graph changes out to subscribers. Every change is
// followed by a graph.updated summary, at most one per interval; changes
// that arrive inside the interval are folded into one trailing summary.
//
// The subscriber set, the event sequence and the summary timer belong to
// one loop goroutine.
type Broker struct {
	interval  time.Duration
	keepAlive time.Duration
	logger    *slog.Logger

	join    chan chan []byte
	leave   chan chan []byte
	changes chan Event
	count   chan chan int

	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

// NewBroker starts a broker whose graph.updated summaries are spaced at
// least interval apart.
func NewBroker(interval time.Duration, logger *slog.Logger) *Broker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		interval:  interval,
		keepAlive: defaultKeepAlive,
		logger:    logger,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		changes:   make(chan Event, 256),
		count:     make(chan chan int),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	subs := map[chan []byte]struct{}{}
	var (
		seq         uint64
		lastSummary time.Time
		pending     *time.Timer
		pendingC    <-chan time.Time
	)

	send := func(typ string, data any) {
		seq++
		raw, err := Event{ID: seq, Type: typ, Data: data}.frame()
		if err != nil {
			b.logger.Warn("sse: encode event", slog.String("type", typ), slog.String("error", err.Error()))
			return
		}
		for ch := range subs {
			select {
			case ch <- raw:
			default:
				// Subscriber is behind; it misses this frame.
			}
		}
	}
	summary := func(now time.Time) {
		lastSummary = now
		send(EventGraphUpdated, map[string]any{})
	}

	for {
		select {
		case <-b.quit:
			if pending != nil {
				pending.Stop()
			}
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.join:
			subs[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case resp := <-b.count:
			resp <- len(subs)

		case ev := <-b.changes:
			send(ev.Type, ev.Data)
			if pendingC != nil {
				continue
			}
			now := time.Now()
			if wait := b.interval - now.Sub(lastSummary); wait > 0 {
				pending = time.NewTimer(wait)
				pendingC = pending.C
				continue
			}
			summary(now)

		case now := <-pendingC:
			pending, pendingC = nil, nil
			summary(now)
		}
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.quitOnce.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a subscriber. The returned func unregisters it; the
// channel is closed on unsubscribe or when the broker closes.
func (b *Broker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
		return ch, func() {}
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			select {
			case b.leave <- ch:
			case <-b.done:
			}
		})
	}
}

// Clients returns the number of subscribers.
func (b *Broker) Clients() int {
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
		return <-resp
	case <-b.done:
		return 0
	}
}

// GraphChanged queues a change of the given type. It never blocks on slow
// subscribers and is a no-op after Close.
func (b *Broker) GraphChanged(kind string, data any) {
	select {
	case b.changes <- Event{Type: kind, Data: data}:
	case <-b.done:
	}
}

// ServeHTTP streams events until the client goes away or the broker closes.
// Idle connections get a comment line every keep-alive period.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
		case raw, ok := <-events:
			if !ok {
				return
			}
			if _, err := w.Write(raw); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
