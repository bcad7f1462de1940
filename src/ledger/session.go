package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ledger-server/src/models"
)

// Session is the server-side state of one signed-in owner: the partition
// cache, the current view and the clear flow. All mutations are serialised by
// mu; store calls are made without holding it so change events keep flowing
// while a request waits on the database.
type Session struct {
	owner     int64
	store     Store
	snapshots SnapshotStore
	log       zerolog.Logger

	mu       sync.Mutex
	proj     *Projector
	clear    ClearFlow
	loading  int
	pending  []models.ChangeEvent
	version  uint64
	lastUsed time.Time
	closed   bool

	// ready is closed once the first load has finished; loadErr is the
	// outcome of the most recent one.
	ready   chan struct{}
	settled bool
	loadErr error

	onChange func(owner int64)
	onLost   func(owner int64)
	sub      Subscription
	done     chan struct{}
}

type Option func(*Session)

// WithSnapshots enables snapshot copies in the clear flow.
func WithSnapshots(s SnapshotStore) Option {
	return func(sess *Session) { sess.snapshots = s }
}

// WithChangeHook is called, outside the session lock, after every change to
// the cached state.
func WithChangeHook(fn func(owner int64)) Option {
	return func(sess *Session) { sess.onChange = fn }
}

// WithLostHook is called, on its own goroutine, when the bound feed ends
// while the session is still open.
func WithLostHook(fn func(owner int64)) Option {
	return func(sess *Session) { sess.onLost = fn }
}

func NewSession(owner int64, store Store, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		owner:    owner,
		store:    store,
		log:      log.With().Int64("user_id", owner).Logger(),
		proj:     NewProjector(NewCache()),
		lastUsed: time.Now(),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Owner() int64 { return s.owner }

// LoadAll fetches every transaction of the owner and rebuilds the cache. On
// failure the cache and the displayed list are left empty. Events delivered
// while the fetch is in flight are replayed on top of the fresh state.
func (s *Session) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.loading++
	s.mu.Unlock()

	records, err := s.store.ListTransactions(ctx, s.owner)

	s.mu.Lock()
	s.loading--
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		s.proj.Reset()
		s.clear.Cancel()
		if s.loading == 0 {
			s.pending = nil
		}
		loadErr := fmt.Errorf("%w: %v", ErrLoadFailed, err)
		s.loadErr = loadErr
		s.settleLocked()
		s.touchLocked()
		s.mu.Unlock()
		s.changed()
		s.log.Error().Err(err).Msg("Failed to load transactions")
		return loadErr
	}

	s.proj.Load(records)
	for _, ev := range s.pending {
		if err := s.proj.Apply(ev); err != nil {
			s.log.Warn().Err(err).Msg("Dropped malformed change event")
		}
	}
	if s.loading == 0 {
		s.pending = nil
	}
	s.loadErr = nil
	s.settleLocked()
	s.touchLocked()
	s.mu.Unlock()
	s.changed()

	s.log.Info().Int("count", len(records)).Msg("Loaded transactions")
	return nil
}

// Wait blocks until the first load has finished and returns the outcome of
// the most recent load. A failed load is reported as ErrLoadFailed until a
// later LoadAll succeeds.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.loadErr
}

func (s *Session) settleLocked() {
	if !s.settled {
		s.settled = true
		close(s.ready)
	}
}

// SelectView switches the displayed list to the cached partition k.
func (s *Session) SelectView(k Key) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return s.proj.SelectView(k)
}

// View returns the active key and the displayed list.
func (s *Session) View() (Key, []models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return s.proj.Active(), s.proj.Displayed()
}

func (s *Session) Partition(k Key) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.cache.Partition(k)
}

func (s *Session) ArchiveNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.cache.ArchiveNames()
}

// Version increases on every change to the cached state.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Apply patches the cache with one change event. Events for another owner
// are ignored.
func (s *Session) Apply(ev models.ChangeEvent) error {
	if ev.UserID != s.owner {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.loading > 0 {
		s.pending = append(s.pending, ev)
	}
	err := s.proj.Apply(ev)
	if err == nil {
		s.version++
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.onChange != nil {
		s.onChange(s.owner)
	}
	return nil
}

// Bind starts consuming sub in a new goroutine. The session takes ownership
// of sub and closes it on Close.
func (s *Session) Bind(sub Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.consume(sub)
}

func (s *Session) consume(sub Subscription) {
	defer close(s.done)
	for ev := range sub.Events() {
		if err := s.Apply(ev); err != nil {
			s.log.Warn().Err(err).Str("op", ev.Op).Int64("id", ev.ID).Msg("Failed to apply change event")
		}
	}

	s.mu.Lock()
	lost := !s.closed
	s.mu.Unlock()
	if lost {
		s.log.Warn().Msg("Change feed ended, session is stale")
		if s.onLost != nil {
			go s.onLost(s.owner)
		}
	}
}

// Close discards the cache and stops consuming the feed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.settleLocked()
	s.proj.Reset()
	s.clear.Cancel()
	s.pending = nil
	sub, done := s.sub, s.done
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
		<-done
	}
}

// Submit validates and normalises d, then writes it. Nothing local changes;
// the realized record arrives through the change feed.
func (s *Session) Submit(ctx context.Context, d Draft) (*models.Transaction, error) {
	t, err := d.Normalize(s.owner)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	s.touch()
	return created, nil
}

func (s *Session) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, s.owner, id); err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	s.touch()
	return nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) touchLocked() {
	s.version++
	s.lastUsed = time.Now()
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s.owner)
	}
}
