package handlers

import (
	"net/http"
	"strings"

	"ledger-server/src/ledger"
	"ledger-server/src/middleware"
)

func ListArchives(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string][]string{"archives": s.ArchiveNames()})
	}
}

// ArchiveCurrent moves every current transaction under the given archive
// name.
func ArchiveCurrent(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if !decode(w, r, &req) {
			return
		}

		n, err := s.ArchiveCurrent(r.Context(), req.Name)
		if err != nil {
			log.Error().Err(err).Str("archive", req.Name).Msg("Failed to archive current transactions")
			writeLedgerError(w, err, "failed to archive transactions")
			return
		}

		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"name":     strings.TrimSpace(req.Name),
			"archived": n,
		})
	}
}
