package auth

import (
	"sync"
	"time"
)

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

type Event struct {
	Kind   EventKind `json:"state"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// Events broadcasts session changes. A listener that does not keep up misses
// events rather than blocking the sign-in path.
type Events struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func NewEvents() *Events {
	return &Events{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of future events and a function that ends the
// subscription and closes the channel.
func (e *Events) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.next
	e.next++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

func (e *Events) Emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Events) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}
