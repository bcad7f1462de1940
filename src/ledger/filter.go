package ledger

import (
	"strings"

	"ledger-server/src/models"
)

// Filter keeps the transactions whose text contains query, ignoring case.
func Filter(list []models.Transaction, query string) []models.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := []models.Transaction{}
	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Text), q) {
			out = append(out, t)
		}
	}
	return out
}
