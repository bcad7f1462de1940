package handlers

import (
	"net/http"

	"ledger-server/src/config"
	"ledger-server/src/middleware"
)

func Categories(catalog config.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, catalog)
	}
}
