package feed

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"ledger-server/src/models"
)

var (
	ErrSlowConsumer = errors.New("subscriber fell behind the change feed")
	ErrFeedReset    = errors.New("change feed reconnected")
	ErrHubClosed    = errors.New("change feed closed")
)

// DefaultBuffer is the per-subscription queue length. Archiving the current
// partition emits one update per row in a single burst, so the buffer holds a
// large relabel; a burst beyond it closes the subscription and the owner's
// session reloads from the store.
const DefaultBuffer = 4096

// Hub fans change events out to the subscribers of each owner. Publish never
// blocks: a subscriber whose buffer is full is closed with ErrSlowConsumer.
type Hub struct {
	buffer int
	log    zerolog.Logger

	mu     sync.Mutex
	subs   map[int64]map[*Subscription]struct{}
	closed bool
}

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		log:    log,
		subs:   make(map[int64]map[*Subscription]struct{}),
	}
}

// Subscription receives the events of one owner until closed.
type Subscription struct {
	hub   *Hub
	owner int64
	ch    chan models.ChangeEvent
	err   error
}

func (s *Subscription) Events() <-chan models.ChangeEvent { return s.ch }

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.remove(s, nil)
}

// Err reports why the subscription ended, or nil if it was closed by its
// owner or is still open.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

func (h *Hub) Subscribe(owner int64) *Subscription {
	s := &Subscription{hub: h, owner: owner, ch: make(chan models.ChangeEvent, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.err = ErrHubClosed
		close(s.ch)
		return s
	}
	set, ok := h.subs[owner]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[owner] = set
	}
	set[s] = struct{}{}
	return s
}

// Publish delivers ev to every subscriber of ev.UserID.
func (h *Hub) Publish(ev models.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[ev.UserID] {
		select {
		case s.ch <- ev:
		default:
			h.log.Warn().Int64("user_id", ev.UserID).Msg("Dropping slow change feed subscriber")
			h.remove(s, ErrSlowConsumer)
		}
	}
}

// Reset closes every subscription with err. Subscribers are expected to
// resubscribe and reload.
func (h *Hub) Reset(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked(err)
}

// Close ends every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.resetLocked(ErrHubClosed)
}

// Subscribers returns the number of open subscriptions for owner.
func (h *Hub) Subscribers(owner int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner])
}

func (h *Hub) resetLocked(err error) {
	for _, set := range h.subs {
		for s := range set {
			h.remove(s, err)
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(s *Subscription, err error) {
	set, ok := h.subs[s.owner]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.owner)
	}
	s.err = err
	close(s.ch)
}
