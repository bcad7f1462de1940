package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ledger-server/src/models"
)

func CreateSnapshot(ctx context.Context, pool *pgxpool.Pool, s models.Snapshot) (*models.Snapshot, error) {
	data, err := json.Marshal(s.Transactions)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	query := `
		INSERT INTO snapshots (user_id, label, data, total)
		VALUES ($1, $2, $3, $4::text::numeric)
		RETURNING id, created_at
	`
	err = pool.QueryRow(ctx, query, s.UserID, s.Label, data, s.Total).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func GetSnapshotsForUser(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]models.Snapshot, error) {
	query := `
		SELECT id, user_id, label, data, total::text, created_at
		FROM snapshots WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []models.Snapshot{}
	for rows.Next() {
		var (
			s    models.Snapshot
			data []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Label, &data, &s.Total, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &s.Transactions); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func GetSnapshotByID(ctx context.Context, pool *pgxpool.Pool, userID, id int64) (*models.Snapshot, error) {
	query := `
		SELECT id, user_id, label, data, total::text, created_at
		FROM snapshots WHERE id = $1 AND user_id = $2
	`
	var (
		s    models.Snapshot
		data []byte
	)
	err := pool.QueryRow(ctx, query, id, userID).Scan(&s.ID, &s.UserID, &s.Label, &data, &s.Total, &s.CreatedAt)
	if err != nil {
		return nil, notFound("snapshot", err)
	}
	if err := json.Unmarshal(data, &s.Transactions); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
	}
	return &s, nil
}

func DeleteSnapshot(ctx context.Context, pool *pgxpool.Pool, userID, id int64) error {
	query := `DELETE FROM snapshots WHERE id = $1 AND user_id = $2`
	cmd, err := pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("snapshot %w", ErrNotFound)
	}
	return nil
}
