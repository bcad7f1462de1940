package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ledger-server/src/models"
)

// LedgerStore binds the transaction queries to a pool.
type LedgerStore struct {
	Pool *pgxpool.Pool
}

func (s LedgerStore) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return GetTransactionsForUser(ctx, s.Pool, userID, AllLabels)
}

func (s LedgerStore) CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	return CreateTransaction(ctx, s.Pool, t)
}

func (s LedgerStore) DeleteTransaction(ctx context.Context, userID, id int64) error {
	return DeleteTransaction(ctx, s.Pool, userID, id)
}

func (s LedgerStore) RelabelCurrent(ctx context.Context, userID int64, label string) (int64, error) {
	return ArchiveCurrentTransactions(ctx, s.Pool, userID, label)
}

func (s LedgerStore) DeletePartition(ctx context.Context, userID int64, label *string) (int64, error) {
	return DeletePartition(ctx, s.Pool, userID, label)
}

// SnapshotStore binds the snapshot queries to a pool.
type SnapshotStore struct {
	Pool *pgxpool.Pool
}

func (s SnapshotStore) CreateSnapshot(ctx context.Context, snap models.Snapshot) (*models.Snapshot, error) {
	return CreateSnapshot(ctx, s.Pool, snap)
}

func (s SnapshotStore) ListSnapshots(ctx context.Context, userID int64) ([]models.Snapshot, error) {
	return GetSnapshotsForUser(ctx, s.Pool, userID)
}

func (s SnapshotStore) GetSnapshot(ctx context.Context, userID, id int64) (*models.Snapshot, error) {
	return GetSnapshotByID(ctx, s.Pool, userID, id)
}

func (s SnapshotStore) DeleteSnapshot(ctx context.Context, userID, id int64) error {
	return DeleteSnapshot(ctx, s.Pool, userID, id)
}

// UserStore binds the user queries to a pool.
type UserStore struct {
	Pool *pgxpool.Pool
}

func (s UserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return GetUserByID(ctx, s.Pool, id)
}

func (s UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return GetUserByEmail(ctx, s.Pool, email)
}

func (s UserStore) CreateUser(ctx context.Context, email string, passwordHash []byte) (*models.User, error) {
	return CreateUser(ctx, s.Pool, email, passwordHash)
}

func (s UserStore) UpdatePassword(ctx context.Context, userID int64, passwordHash []byte) error {
	return UpdateUserPassword(ctx, s.Pool, userID, passwordHash)
}

func (s UserStore) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	return UpdateUserLastLogin(ctx, s.Pool, userID, at)
}
