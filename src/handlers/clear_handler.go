package handlers

import (
	"net/http"

	"ledger-server/src/ledger"
	"ledger-server/src/middleware"
)

// BeginClear starts the clear flow for a view and offers to keep a copy.
func BeginClear(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		var req struct {
			View ledger.Key `json:"view"`
		}
		if !decode(w, r, &req) {
			return
		}

		st, err := s.BeginClear(req.View)
		if err != nil {
			log.Error().Err(err).Str("view", string(req.View)).Msg("Failed to begin clear")
			writeLedgerError(w, err, "failed to begin clear")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, st)
	}
}

// ClearArchive accepts the offer: a snapshot of the target is kept.
func ClearArchive(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		var req struct {
			Label string `json:"label"`
		}
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}

		st, err := s.ClearArchive(r.Context(), req.Label)
		if err != nil {
			log.Error().Err(err).Msg("Failed to keep a copy before clearing")
			writeLedgerError(w, err, "failed to store snapshot")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, st)
	}
}

func ClearSkip(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		st, err := s.ClearSkip()
		if err != nil {
			writeLedgerError(w, err, "failed to skip archive")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, st)
	}
}

// ClearConfirm deletes the target once the confirmation text names it.
func ClearConfirm(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		var req struct {
			Confirm string `json:"confirm"`
		}
		if !decode(w, r, &req) {
			return
		}

		st, err := s.ClearConfirm(r.Context(), req.Confirm)
		if err != nil {
			log.Error().Err(err).Str("target", st.Target).Msg("Failed to clear")
			writeLedgerError(w, err, "failed to clear transactions")
			return
		}
		log.Info().Str("target", st.Target).Int64("deleted", st.Deleted).Msg("Cleared transactions")
		middleware.WriteJSON(w, http.StatusOK, st)
	}
}

func CancelClear(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		middleware.WriteJSON(w, http.StatusOK, s.ClearCancel())
	}
}
