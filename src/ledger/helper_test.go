package ledger

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ledger-server/src/models"
)

var base = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

func label(s string) *string { return &s }

// tx builds a transaction created minute minutes after base.
func tx(id int64, amount float64, archive string, minute int) models.Transaction {
	t := models.Transaction{
		ID:        id,
		UserID:    1,
		Text:      "t",
		Amount:    amount,
		Category:  "Food",
		Type:      models.TypeExpense,
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
	}
	if amount > 0 {
		t.Type = models.TypeIncome
	}
	if archive != "" {
		t.ArchiveLabel = label(archive)
	}
	return t
}

func ids(list []models.Transaction) []int64 {
	out := []int64{}
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func nopLog() zerolog.Logger { return zerolog.New(io.Discard) }

// memStore is an in-memory Store that reports every write through emit, the
// way the database trigger feeds the change channel.
type memStore struct {
	mu      sync.Mutex
	rows    map[int64]models.Transaction
	nextID  int64
	clock   time.Time
	emit    func(models.ChangeEvent)
	listErr error
	failErr error

	// block, when set, holds ListTransactions until it is closed.
	block chan struct{}
	// listed is signalled once ListTransactions has read the rows.
	listed chan struct{}

	snaps  map[int64]models.Snapshot
	nextSn int64
}

func newMemStore(rows ...models.Transaction) *memStore {
	m := &memStore{
		rows:  make(map[int64]models.Transaction),
		clock: base.Add(24 * time.Hour),
		snaps: make(map[int64]models.Snapshot),
	}
	for _, r := range rows {
		m.rows[r.ID] = r
		if r.ID > m.nextID {
			m.nextID = r.ID
		}
	}
	return m
}

func (m *memStore) send(ev models.ChangeEvent) {
	if m.emit != nil {
		m.emit(ev)
	}
}

func (m *memStore) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	out := []models.Transaction{}
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if m.listed != nil {
		m.listed <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	return out, nil
}

func (m *memStore) CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	m.mu.Lock()
	if m.failErr != nil {
		m.mu.Unlock()
		return nil, m.failErr
	}
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	t.ID = m.nextID
	t.CreatedAt = m.clock
	m.rows[t.ID] = t
	m.mu.Unlock()

	rec := t
	m.send(models.ChangeEvent{Op: models.OpInsert, UserID: t.UserID, ID: t.ID, Record: &rec})
	return &t, nil
}

func (m *memStore) DeleteTransaction(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	if m.failErr != nil {
		m.mu.Unlock()
		return m.failErr
	}
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		m.mu.Unlock()
		return errors.New("transaction not found")
	}
	delete(m.rows, id)
	m.mu.Unlock()

	m.send(models.ChangeEvent{Op: models.OpDelete, UserID: userID, ID: id})
	return nil
}

func (m *memStore) RelabelCurrent(ctx context.Context, userID int64, l string) (int64, error) {
	m.mu.Lock()
	if m.failErr != nil {
		m.mu.Unlock()
		return 0, m.failErr
	}
	var changed []models.Transaction
	for id, r := range m.rows {
		if r.UserID == userID && r.ArchiveLabel == nil {
			r.ArchiveLabel = label(l)
			m.rows[id] = r
			changed = append(changed, r)
		}
	}
	m.mu.Unlock()

	for _, r := range changed {
		rec := r
		m.send(models.ChangeEvent{Op: models.OpUpdate, UserID: userID, ID: r.ID, Record: &rec})
	}
	return int64(len(changed)), nil
}

func (m *memStore) DeletePartition(ctx context.Context, userID int64, l *string) (int64, error) {
	m.mu.Lock()
	if m.failErr != nil {
		m.mu.Unlock()
		return 0, m.failErr
	}
	var gone []int64
	for id, r := range m.rows {
		if r.UserID != userID {
			continue
		}
		if (l == nil && r.ArchiveLabel == nil) || (l != nil && r.ArchiveLabel != nil && *r.ArchiveLabel == *l) {
			delete(m.rows, id)
			gone = append(gone, id)
		}
	}
	m.mu.Unlock()

	for _, id := range gone {
		m.send(models.ChangeEvent{Op: models.OpDelete, UserID: userID, ID: id})
	}
	return int64(len(gone)), nil
}

func (m *memStore) CreateSnapshot(ctx context.Context, s models.Snapshot) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSn++
	s.ID = m.nextSn
	s.CreatedAt = m.clock
	m.snaps[s.ID] = s
	return &s, nil
}

func (m *memStore) ListSnapshots(ctx context.Context, userID int64) ([]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Snapshot{}
	for _, s := range m.snaps {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetSnapshot(ctx context.Context, userID, id int64) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[id]
	if !ok || s.UserID != userID {
		return nil, errors.New("snapshot not found")
	}
	return &s, nil
}

func (m *memStore) DeleteSnapshot(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[id]; !ok {
		return errors.New("snapshot not found")
	}
	delete(m.snaps, id)
	return nil
}

// newLiveSession wires a session to store so that every write is applied
// synchronously, as if delivered by the change feed.
func newLiveSession(t *testing.T, store *memStore) *Session {
	t.Helper()
	s := NewSession(1, store, nopLog(), WithSnapshots(store))
	store.emit = func(ev models.ChangeEvent) {
		if err := s.Apply(ev); err != nil {
			t.Errorf("Apply(%+v) error = %v", ev, err)
		}
	}
	if err := s.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	return s
}

// chanSub is a Subscription backed by a plain channel.
type chanSub struct {
	ch   chan models.ChangeEvent
	once sync.Once
}

func newChanSub() *chanSub { return &chanSub{ch: make(chan models.ChangeEvent, 16)} }

func (c *chanSub) Events() <-chan models.ChangeEvent { return c.ch }
func (c *chanSub) Close()                            { c.once.Do(func() { close(c.ch) }) }
