package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ledger-server/src/models"
)

// Limits on what a stored record can hold. Amounts must fit NUMERIC(14, 2) and
// text fields are bounded so the change notification stays under the
// payload limit of pg_notify.
const (
	MaxTextLength     = 200
	MaxCategoryLength = 64
)

var maxAmount = decimal.New(1, 12)

// Draft is a transaction as entered in the form, before validation.
type Draft struct {
	Text     string `json:"text"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

// Normalize validates d and returns the record to store. The amount sign is
// forced to match the type: expenses are stored negative, incomes positive.
func (d Draft) Normalize(owner int64) (models.Transaction, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return models.Transaction{}, &ValidationError{Field: "text", Message: "a title is required"}
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return models.Transaction{}, &ValidationError{Field: "text", Message: fmt.Sprintf("title must be at most %d characters", MaxTextLength)}
	}
	category := strings.TrimSpace(d.Category)
	if utf8.RuneCountInString(category) > MaxCategoryLength {
		return models.Transaction{}, &ValidationError{Field: "category", Message: fmt.Sprintf("category must be at most %d characters", MaxCategoryLength)}
	}

	raw := strings.ReplaceAll(strings.TrimSpace(d.Amount), ",", ".")
	if raw == "" {
		return models.Transaction{}, &ValidationError{Field: "amount", Message: "an amount is required"}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return models.Transaction{}, &ValidationError{Field: "amount", Message: "amount is not a number"}
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return models.Transaction{}, &ValidationError{Field: "amount", Message: "amount is too large"}
	}
	amount = amount.Round(2)
	if amount.IsZero() {
		return models.Transaction{}, &ValidationError{Field: "amount", Message: "amount must not be zero"}
	}

	typ := strings.ToLower(strings.TrimSpace(d.Type))
	switch typ {
	case "", models.TypeExpense:
		typ = models.TypeExpense
		amount = amount.Abs().Neg()
	case models.TypeIncome:
		amount = amount.Abs()
	default:
		return models.Transaction{}, &ValidationError{Field: "type", Message: "type must be income or expense"}
	}

	return models.Transaction{
		UserID:   owner,
		Text:     text,
		Amount:   amount.InexactFloat64(),
		Category: category,
		Type:     typ,
	}, nil
}
