package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledger-server/src/models"
)

const transactionColumns = `id, user_id, text, amount, category, type, archive_label, created_at`

// LabelFilter narrows a transaction query by archive label.
type LabelFilter struct {
	// Any disables label filtering.
	Any bool
	// Label selects one archive; nil selects the unarchived transactions.
	Label *string
}

var AllLabels = LabelFilter{Any: true}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.Amount, &t.Category, &t.Type, &t.ArchiveLabel, &t.CreatedAt)
	return t, err
}

func GetTransactionsForUser(ctx context.Context, pool *pgxpool.Pool, userID int64, filter LabelFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}
	switch {
	case filter.Any:
	case filter.Label == nil:
		query += ` AND archive_label IS NULL`
	default:
		query += ` AND archive_label = $2`
		args = append(args, *filter.Label)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func CreateTransaction(ctx context.Context, pool *pgxpool.Pool, t models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, text, amount, category, type, archive_label)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + transactionColumns
	created, err := scanTransaction(pool.QueryRow(ctx, query, t.UserID, t.Text, t.Amount, t.Category, t.Type, t.ArchiveLabel))
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func DeleteTransaction(ctx context.Context, pool *pgxpool.Pool, userID, id int64) error {
	query := `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	cmd, err := pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("transaction %w", ErrNotFound)
	}
	return nil
}

// ArchiveCurrentTransactions relabels every unarchived transaction of the
// user in a single statement.
func ArchiveCurrentTransactions(ctx context.Context, pool *pgxpool.Pool, userID int64, label string) (int64, error) {
	query := `
		UPDATE transactions
		SET archive_label = $1
		WHERE user_id = $2 AND archive_label IS NULL
	`
	cmd, err := pool.Exec(ctx, query, label, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// DeletePartition deletes the user's transactions carrying label, or no label
// when label is nil.
func DeletePartition(ctx context.Context, pool *pgxpool.Pool, userID int64, label *string) (int64, error) {
	query := `DELETE FROM transactions WHERE user_id = $1 AND archive_label IS NULL`
	args := []any{userID}
	if label != nil {
		query = `DELETE FROM transactions WHERE user_id = $1 AND archive_label = $2`
		args = append(args, *label)
	}
	cmd, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
