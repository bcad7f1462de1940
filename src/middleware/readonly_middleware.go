package middleware

import (
	"net/http"
)

// ReadOnlyMiddleware rejects mutating requests other than the allowed session
// posts when readOnly is set.
func ReadOnlyMiddleware(readOnly bool) func(http.Handler) http.Handler {
	allowedPosts := map[string]bool{
		"/api/login":  true,
		"/api/logout": true,
		"/api/sync":   true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !readOnly || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method == http.MethodPost && allowedPosts[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusForbidden, "read-only mode: changes are disabled")
		})
	}
}
