package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ledger-server/src/models"
)

var ErrSnapshotsDisabled = errors.New("snapshots are not configured")

// ArchiveCurrent moves every current transaction into the archive name with a
// single bulk relabel. The cache is not touched here; the relabelled records
// arrive as update events.
func (s *Session) ArchiveCurrent(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyArchiveName
	}
	if utf8.RuneCountInString(name) > MaxTextLength {
		return 0, &ValidationError{Field: "name", Message: fmt.Sprintf("archive name must be at most %d characters", MaxTextLength)}
	}

	s.mu.Lock()
	closed := s.closed
	n := len(s.proj.cache.Partition(Current))
	s.mu.Unlock()
	if closed {
		return 0, ErrSessionClosed
	}
	if n == 0 {
		return 0, ErrNothingToArchive
	}

	affected, err := s.store.RelabelCurrent(ctx, s.owner, name)
	if err != nil {
		return 0, fmt.Errorf("failed to archive current transactions as %q: %w", name, err)
	}
	if affected == 0 {
		return 0, ErrNothingToArchive
	}
	s.touch()
	s.log.Info().Str("archive", name).Int64("count", affected).Msg("Archived current transactions")
	return affected, nil
}

// clearPartition deletes every transaction of partition k. It is irreversible;
// callers go through the clear flow.
func (s *Session) clearPartition(ctx context.Context, k Key) (int64, error) {
	deleted, err := s.store.DeletePartition(ctx, s.owner, k.Label())
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", TargetName(k), err)
	}
	s.touch()
	s.log.Info().Str("target", TargetName(k)).Int64("count", deleted).Msg("Cleared partition")
	return deleted, nil
}

// Snapshot stores an immutable copy of partition k with its balance. An empty
// label defaults to the current time.
func (s *Session) Snapshot(ctx context.Context, k Key, label string) (*models.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	list := s.Partition(k)
	if len(list) == 0 {
		return nil, ErrEmptyPartition
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = time.Now().Format(time.DateTime)
	}

	snap, err := s.snapshots.CreateSnapshot(ctx, models.Snapshot{
		UserID:       s.owner,
		Label:        label,
		Transactions: list,
		Total:        Balance(list).StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	s.log.Info().Int64("snapshot_id", snap.ID).Int("count", len(list)).Msg("Stored snapshot")
	return snap, nil
}

func (s *Session) Snapshots(ctx context.Context) ([]models.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.ListSnapshots(ctx, s.owner)
}

func (s *Session) GetSnapshot(ctx context.Context, id int64) (*models.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.snapshots.GetSnapshot(ctx, s.owner, id)
}

func (s *Session) DeleteSnapshot(ctx context.Context, id int64) error {
	if s.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	return s.snapshots.DeleteSnapshot(ctx, s.owner, id)
}
