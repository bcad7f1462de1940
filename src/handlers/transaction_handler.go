package handlers

import (
	"net/http"
	"strings"

	"ledger-server/src/config"
	"ledger-server/src/ledger"
	"ledger-server/src/middleware"
	"ledger-server/src/models"
)

type transactionsResponse struct {
	View         ledger.Key           `json:"view"`
	Archives     []string             `json:"archives"`
	Transactions []models.Transaction `json:"transactions"`
}

// Sync reloads the caller's ledger from the store.
func Sync(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		if err := s.LoadAll(r.Context()); err != nil {
			log.Error().Err(err).Msg("Failed to sync ledger")
			writeLedgerError(w, err, "failed to load transactions")
			return
		}

		view, shown := s.View()
		middleware.WriteJSON(w, http.StatusOK, transactionsResponse{
			View:         view,
			Archives:     s.ArchiveNames(),
			Transactions: shown,
		})
	}
}

// ListTransactions returns the displayed list, switching view first when the
// view parameter is given and narrowing by the q search text.
func ListTransactions(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		var (
			view  ledger.Key
			shown []models.Transaction
		)
		if k, given := viewParam(r); given {
			view, shown = k, s.SelectView(k)
		} else {
			view, shown = s.View()
		}

		middleware.WriteJSON(w, http.StatusOK, transactionsResponse{
			View:         view,
			Archives:     s.ArchiveNames(),
			Transactions: ledger.Filter(shown, r.URL.Query().Get("q")),
		})
	}
}

// CreateTransaction stores a new entry. The cached views pick it up from the
// change feed.
func CreateTransaction(sessions *ledger.Registry, catalog config.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		var draft ledger.Draft
		if !decode(w, r, &draft) {
			return
		}
		if strings.TrimSpace(draft.Category) == "" {
			draft.Category = catalog.DefaultCategory
		}

		created, err := s.Submit(r.Context(), draft)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create transaction")
			writeLedgerError(w, err, "failed to save transaction")
			return
		}

		log.Info().Int64("transaction_id", created.ID).Msg("Transaction created")
		middleware.WriteJSON(w, http.StatusCreated, created)
	}
}

func DeleteTransaction(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		if err := s.Delete(r.Context(), id); err != nil {
			log.Error().Err(err).Int64("transaction_id", id).Msg("Failed to delete transaction")
			writeLedgerError(w, err, "failed to delete transaction")
			return
		}

		log.Info().Int64("transaction_id", id).Msg("Transaction deleted")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
	}
}
