package api

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	db "ledger-server/src/db/sql"
	"ledger-server/src/feed"
	"ledger-server/src/models"
)

func nopLog() zerolog.Logger { return zerolog.New(io.Discard) }

// fakeLedger stores transactions and snapshots in memory and publishes every
// row change to the hub, as the database trigger does.
type fakeLedger struct {
	mu       sync.Mutex
	rows     map[int64]models.Transaction
	snaps    map[int64]models.Snapshot
	next     int64
	nextSnap int64
	clock    time.Time
	hub      *feed.Hub
	failErr  error
}

func newFakeLedger(hub *feed.Hub) *fakeLedger {
	return &fakeLedger{
		rows:  make(map[int64]models.Transaction),
		snaps: make(map[int64]models.Snapshot),
		clock: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		hub:   hub,
	}
}

func (f *fakeLedger) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := []models.Transaction{}
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLedger) CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	f.mu.Lock()
	if f.failErr != nil {
		f.mu.Unlock()
		return nil, f.failErr
	}
	f.next++
	f.clock = f.clock.Add(time.Minute)
	t.ID = f.next
	t.CreatedAt = f.clock
	f.rows[t.ID] = t
	f.mu.Unlock()

	rec := t
	f.hub.Publish(models.ChangeEvent{Op: models.OpInsert, UserID: t.UserID, ID: t.ID, Record: &rec})
	return &t, nil
}

func (f *fakeLedger) DeleteTransaction(ctx context.Context, userID, id int64) error {
	f.mu.Lock()
	r, ok := f.rows[id]
	if !ok || r.UserID != userID {
		f.mu.Unlock()
		return fmt.Errorf("transaction %w", db.ErrNotFound)
	}
	delete(f.rows, id)
	f.mu.Unlock()

	f.hub.Publish(models.ChangeEvent{Op: models.OpDelete, UserID: userID, ID: id})
	return nil
}

func (f *fakeLedger) RelabelCurrent(ctx context.Context, userID int64, label string) (int64, error) {
	f.mu.Lock()
	var changed []models.Transaction
	for id, r := range f.rows {
		if r.UserID == userID && r.ArchiveLabel == nil {
			l := label
			r.ArchiveLabel = &l
			f.rows[id] = r
			changed = append(changed, r)
		}
	}
	f.mu.Unlock()

	for _, r := range changed {
		rec := r
		f.hub.Publish(models.ChangeEvent{Op: models.OpUpdate, UserID: userID, ID: r.ID, Record: &rec})
	}
	return int64(len(changed)), nil
}

func (f *fakeLedger) DeletePartition(ctx context.Context, userID int64, label *string) (int64, error) {
	f.mu.Lock()
	var gone []int64
	for id, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		if (label == nil && r.ArchiveLabel == nil) || (label != nil && r.Label() == *label) {
			delete(f.rows, id)
			gone = append(gone, id)
		}
	}
	f.mu.Unlock()

	for _, id := range gone {
		f.hub.Publish(models.ChangeEvent{Op: models.OpDelete, UserID: userID, ID: id})
	}
	return int64(len(gone)), nil
}

func (f *fakeLedger) CreateSnapshot(ctx context.Context, s models.Snapshot) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSnap++
	s.ID = f.nextSnap
	s.CreatedAt = f.clock
	f.snaps[s.ID] = s
	return &s, nil
}

func (f *fakeLedger) ListSnapshots(ctx context.Context, userID int64) ([]models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Snapshot{}
	for _, s := range f.snaps {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeLedger) GetSnapshot(ctx context.Context, userID, id int64) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[id]
	if !ok || s.UserID != userID {
		return nil, fmt.Errorf("snapshot %w", db.ErrNotFound)
	}
	return &s, nil
}

func (f *fakeLedger) DeleteSnapshot(ctx context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[id]
	if !ok || s.UserID != userID {
		return fmt.Errorf("snapshot %w", db.ErrNotFound)
	}
	delete(f.snaps, id)
	return nil
}

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*models.User)}
}

func (u *fakeUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %w", db.ErrNotFound)
	}
	cp := *user
	return &cp, nil
}

func (u *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %w", db.ErrNotFound)
}

func (u *fakeUsers) CreateUser(ctx context.Context, email string, hash []byte) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if user.Email == email {
			return nil, db.ErrEmailTaken
		}
	}
	u.nextID++
	user := &models.User{ID: u.nextID, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	u.byID[user.ID] = user
	cp := *user
	return &cp, nil
}

func (u *fakeUsers) UpdatePassword(ctx context.Context, userID int64, hash []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[userID]
	if !ok {
		return fmt.Errorf("user %w", db.ErrNotFound)
	}
	user.PasswordHash = hash
	return nil
}

func (u *fakeUsers) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byID[userID]; ok {
		user.LastLogin = &at
	}
	return nil
}
