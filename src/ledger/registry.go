package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns one Session per signed-in owner. Sessions are created on
// first use, dropped on sign-out, and swept after an idle period.
type Registry struct {
	store     Store
	snapshots SnapshotStore
	feed      Feed
	log       zerolog.Logger
	idle      time.Duration
	onChange  func(owner int64)

	mu       sync.Mutex
	sessions map[int64]*Session
}

type RegistryConfig struct {
	Store     Store
	Snapshots SnapshotStore
	Feed      Feed
	IdleTTL   time.Duration
	OnChange  func(owner int64)
}

func NewRegistry(cfg RegistryConfig, log zerolog.Logger) *Registry {
	return &Registry{
		store:     cfg.Store,
		snapshots: cfg.Snapshots,
		feed:      cfg.Feed,
		log:       log,
		idle:      cfg.IdleTTL,
		onChange:  cfg.OnChange,
		sessions:  make(map[int64]*Session),
	}
}

// Get returns the owner's session, creating, binding and loading it when
// absent. An existing session is returned once its first load has finished;
// if the last load failed it is retried. A load failure still returns the
// (empty) session with the error so the caller can surface it.
func (r *Registry) Get(ctx context.Context, owner int64) (*Session, error) {
	for {
		r.mu.Lock()
		s, ok := r.sessions[owner]
		if !ok {
			break
		}
		r.mu.Unlock()

		err := s.Wait(ctx)
		switch {
		case errors.Is(err, ErrSessionClosed):
			// Closed between lookup and wait; forget it and open a new one.
			r.dropSession(owner, s)
			continue
		case errors.Is(err, ErrLoadFailed):
			return s, s.LoadAll(ctx)
		}
		return s, err
	}

	opts := []Option{WithLostHook(r.lost)}
	if r.snapshots != nil {
		opts = append(opts, WithSnapshots(r.snapshots))
	}
	if r.onChange != nil {
		opts = append(opts, WithChangeHook(r.onChange))
	}
	s := NewSession(owner, r.store, r.log, opts...)
	r.sessions[owner] = s
	r.mu.Unlock()

	// Subscribe before loading so no change between the query and the
	// replace is missed.
	if r.feed != nil {
		s.Bind(r.feed.Subscribe(owner))
	}
	r.log.Info().Int64("user_id", owner).Msg("Opened ledger session")
	return s, s.LoadAll(ctx)
}

// Drop closes and forgets the owner's session, if any.
func (r *Registry) Drop(owner int64) {
	r.mu.Lock()
	s, ok := r.sessions[owner]
	delete(r.sessions, owner)
	r.mu.Unlock()

	if ok {
		s.Close()
		r.log.Info().Int64("user_id", owner).Msg("Closed ledger session")
	}
}

func (r *Registry) lost(owner int64) {
	r.mu.Lock()
	s, ok := r.sessions[owner]
	r.mu.Unlock()
	if ok {
		r.dropSession(owner, s)
	}
}

// dropSession forgets s only if it is still the registered session.
func (r *Registry) dropSession(owner int64, s *Session) {
	r.mu.Lock()
	if r.sessions[owner] == s {
		delete(r.sessions, owner)
	}
	r.mu.Unlock()
	s.Close()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions unused since before now minus the idle TTL.
func (r *Registry) Sweep(now time.Time) int {
	if r.idle <= 0 {
		return 0
	}
	r.mu.Lock()
	var stale []*Session
	for owner, s := range r.sessions {
		if now.Sub(s.LastUsed()) > r.idle {
			stale = append(stale, s)
			delete(r.sessions, owner)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.log.Info().Int("count", len(stale)).Msg("Swept idle ledger sessions")
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
