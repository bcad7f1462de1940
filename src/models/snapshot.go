package models

import "time"

type Snapshot struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	Label        string        `json:"label"`
	Transactions []Transaction `json:"transactions"`
	Total        string        `json:"total"`
	CreatedAt    time.Time     `json:"created_at"`
}
