package models

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// ChangeEvent is one row-level notification from the change feed. Delete
// events only guarantee ID and UserID.
type ChangeEvent struct {
	Op     string       `json:"op"`
	UserID int64        `json:"user_id"`
	ID     int64        `json:"id"`
	Record *Transaction `json:"record,omitempty"`
}
