package models

import "time"

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

type Transaction struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Text         string    `json:"text"`
	Amount       float64   `json:"amount"`
	Category     string    `json:"category"`
	Type         string    `json:"type"`
	ArchiveLabel *string   `json:"archive_label"`
	CreatedAt    time.Time `json:"created_at"`
}

// Label returns the archive label, or "" for the current partition.
func (t Transaction) Label() string {
	if t.ArchiveLabel == nil {
		return ""
	}
	return *t.ArchiveLabel
}
