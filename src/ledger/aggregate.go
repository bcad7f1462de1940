package ledger

import (
	"github.com/shopspring/decimal"

	"ledger-server/src/models"
)

const Uncategorized = "Uncategorized"

var hundred = decimal.NewFromInt(100)

func amountOf(t models.Transaction) decimal.Decimal {
	return decimal.NewFromFloat(t.Amount)
}

// Balance is the sum of every amount, rounded to cents.
func Balance(list []models.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range list {
		sum = sum.Add(amountOf(t))
	}
	return sum.Round(2)
}

// Income is the sum of strictly positive amounts, rounded to cents.
func Income(list []models.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range list {
		if a := amountOf(t); a.IsPositive() {
			sum = sum.Add(a)
		}
	}
	return sum.Round(2)
}

// Expense is the absolute sum of strictly negative amounts, rounded to cents.
func Expense(list []models.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range list {
		if a := amountOf(t); a.IsNegative() {
			sum = sum.Add(a)
		}
	}
	return sum.Abs().Round(2)
}

type CategoryShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

// Breakdown groups expenses by category in order of first appearance. It
// returns nil when the list holds no expense.
func Breakdown(list []models.Transaction) []CategoryShare {
	var (
		order []string
		sums  = map[string]decimal.Decimal{}
		total = decimal.Zero
	)
	for _, t := range list {
		a := amountOf(t)
		if !a.IsNegative() {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = Uncategorized
		}
		if _, ok := sums[cat]; !ok {
			order = append(order, cat)
		}
		sums[cat] = sums[cat].Add(a.Abs())
		total = total.Add(a.Abs())
	}
	if len(order) == 0 {
		return nil
	}

	shares := make([]CategoryShare, 0, len(order))
	for _, cat := range order {
		sum := sums[cat]
		shares = append(shares, CategoryShare{
			Category: cat,
			Amount:   sum.Round(2),
			Percent:  sum.Mul(hundred).Div(total).Round(1),
		})
	}
	return shares
}

type Summary struct {
	Count      int             `json:"count"`
	Balance    decimal.Decimal `json:"balance"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Categories []CategoryShare `json:"categories,omitempty"`
}

func Summarize(list []models.Transaction) Summary {
	return Summary{
		Count:      len(list),
		Balance:    Balance(list),
		Income:     Income(list),
		Expense:    Expense(list),
		Categories: Breakdown(list),
	}
}
