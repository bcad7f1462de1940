package ledger

import (
	"context"
	"errors"
	"fmt"

	"ledger-server/src/models"
)

var (
	ErrLoadFailed           = errors.New("failed to load transactions")
	ErrEmptyArchiveName     = errors.New("archive name is required")
	ErrNothingToArchive     = errors.New("no current transactions to archive")
	ErrEmptyPartition       = errors.New("nothing to clear")
	ErrInvalidStep          = errors.New("clear flow is not at that step")
	ErrConfirmationMismatch = errors.New("confirmation does not name the target")
	ErrSessionClosed        = errors.New("session closed")
)

// ValidationError reports a rejected draft before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Store is the ledger persistence collaborator. Every call is scoped to a
// single owner.
type Store interface {
	ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
	// RelabelCurrent assigns label to every unarchived transaction of the
	// owner in one write and returns the number of rows changed.
	RelabelCurrent(ctx context.Context, userID int64, label string) (int64, error)
	// DeletePartition removes every transaction whose archive label equals
	// label, or is absent when label is nil.
	DeletePartition(ctx context.Context, userID int64, label *string) (int64, error)
}

// SnapshotStore keeps immutable copies of a partition.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, s models.Snapshot) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context, userID int64) ([]models.Snapshot, error)
	GetSnapshot(ctx context.Context, userID, id int64) (*models.Snapshot, error)
	DeleteSnapshot(ctx context.Context, userID, id int64) error
}

// Subscription delivers change events for one owner until closed. The events
// channel is closed when the subscription ends for any reason.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Close()
}

type Feed interface {
	Subscribe(userID int64) Subscription
}

// FeedFunc adapts a function to Feed.
type FeedFunc func(userID int64) Subscription

func (f FeedFunc) Subscribe(userID int64) Subscription { return f(userID) }
