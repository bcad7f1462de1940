package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"ledger-server/src/ledger"
	"ledger-server/src/middleware"
)

type amountView struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted"`
}

type categoryView struct {
	Category  string `json:"category"`
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
	Percent   string `json:"percent"`
}

type summaryResponse struct {
	View       ledger.Key     `json:"view"`
	Currency   string         `json:"currency"`
	Count      int            `json:"count"`
	Balance    amountView     `json:"balance"`
	Negative   bool           `json:"negative"`
	Income     amountView     `json:"income"`
	Expense    amountView     `json:"expense"`
	Categories []categoryView `json:"categories"`
}

func amount(d decimal.Decimal, currency string) amountView {
	return amountView{Value: d.StringFixed(2), Formatted: ledger.FormatAmount(d, currency)}
}

// Summary computes the totals and the expense breakdown of a view, the
// active one unless the view parameter is given.
func Summary(sessions *ledger.Registry, cache SummaryCache, defaultCurrency string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
		if currency == "" {
			currency = defaultCurrency
		}
		if !ledger.SupportedCurrency(currency) {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
				"error": "unsupported currency",
				"field": "currency",
			})
			return
		}

		s, _, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		view, given := viewParam(r)
		if !given {
			view, _ = s.View()
		}

		version := s.Version()
		sum, hit := cache.Get(s.Owner(), view, version)
		if !hit {
			sum = ledger.Summarize(s.Partition(view))
			cache.Set(s.Owner(), view, version, sum)
		}

		resp := summaryResponse{
			View:       view,
			Currency:   currency,
			Count:      sum.Count,
			Balance:    amount(sum.Balance, currency),
			Negative:   sum.Balance.IsNegative(),
			Income:     amount(sum.Income, currency),
			Expense:    amount(sum.Expense, currency),
			Categories: []categoryView{},
		}
		for _, c := range sum.Categories {
			resp.Categories = append(resp.Categories, categoryView{
				Category:  c.Category,
				Amount:    c.Amount.StringFixed(2),
				Formatted: ledger.FormatAmount(c.Amount, currency),
				Percent:   c.Percent.StringFixed(1),
			})
		}
		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}
