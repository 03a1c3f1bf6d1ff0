package session

import (
	"log/slog"
	"sync"

	"github.com/agentloom/loom/event"
)

// Handler consumes one delivered event.
type Handler func(event.Event)

// Subscription is the opaque handle returned by Attach. Detach is the only
// removal path; there is no ambient listener state to mutate.
type Subscription struct {
	id      int
	handler Handler
}

// dispatcher fans each published event out to every attached consumer,
// exactly once, in publication order. Events also accumulate in an
// append-only log so polling consumers can scan forward with a Reader
// instead of receiving push callbacks.
type dispatcher struct {
	mu     sync.Mutex
	log    []event.Event
	subs   map[int]*Subscription
	nextID int
	logger *slog.Logger
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	return &dispatcher{
		subs:   make(map[int]*Subscription),
		logger: logger,
	}
}

// publish appends ev to the log and delivers it to every subscriber
// attached before this call. A panicking handler is isolated: it is logged
// and does not prevent delivery to other consumers.
func (d *dispatcher) publish(ev event.Event) {
	d.mu.Lock()
	d.log = append(d.log, ev)
	handlers := make([]*Subscription, 0, len(d.subs))
	for _, sub := range d.subs {
		handlers = append(handlers, sub)
	}
	d.mu.Unlock()

	for _, sub := range handlers {
		d.deliver(sub, ev)
	}
}

func (d *dispatcher) deliver(sub *Subscription, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("consumer panicked", "event_type", ev.Type, "panic", r)
		}
	}()
	sub.handler(ev)
}

// attach registers a push consumer. The consumer receives every event
// published after attachment; there is no replay of past events.
func (d *dispatcher) attach(h Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	sub := &Subscription{id: d.nextID, handler: h}
	d.subs[sub.id] = sub
	return sub
}

// detach removes a subscription. It is a no-op for an already-detached
// handle.
func (d *dispatcher) detach(sub *Subscription) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, sub.id)
}

// Reader scans the buffered event log with a monotonic cursor. Each call
// to Next resumes from where the previous one left off, so a polling
// consumer never reprocesses an event.
type Reader struct {
	d   *dispatcher
	pos int
}

// newReader starts a reader at the current end of the log: like a push
// subscriber, it observes only events published after creation.
func (d *dispatcher) newReader() *Reader {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &Reader{d: d, pos: len(d.log)}
}

// Next returns the next undelivered event, advancing the cursor.
// The second result is false when the reader has caught up with the log.
func (r *Reader) Next() (event.Event, bool) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if r.pos >= len(r.d.log) {
		return event.Event{}, false
	}
	ev := r.d.log[r.pos]
	r.pos++
	return ev, true
}

// Pending returns how many events the reader has not yet consumed.
func (r *Reader) Pending() int {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return len(r.d.log) - r.pos
}
