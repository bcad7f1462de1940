package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	db "ledger-server/src/db/sql"
	"ledger-server/src/ledger"
	"ledger-server/src/logger"
	"ledger-server/src/middleware"
	"ledger-server/src/models"
)

// Users is the account store behind the auth handlers.
type Users interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, email string, passwordHash []byte) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash []byte) error
	TouchLogin(ctx context.Context, userID int64, at time.Time) error
}

// SummaryCache holds computed summaries keyed by the ledger version they
// were computed from.
type SummaryCache interface {
	Get(owner int64, view ledger.Key, version uint64) (ledger.Summary, bool)
	Set(owner int64, view ledger.Key, version uint64, s ledger.Summary)
}

// openSession resolves the caller's ledger session, writing the error
// response itself when it cannot.
func openSession(w http.ResponseWriter, r *http.Request, sessions *ledger.Registry) (*ledger.Session, zerolog.Logger, bool) {
	log := logger.FromContext(r.Context())
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "missing token")
		return nil, log, false
	}
	log = log.With().Int64("user_id", userID).Logger()

	s, err := sessions.Get(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open ledger session")
		writeLedgerError(w, err, "failed to load transactions")
		return nil, log, false
	}
	return s, log, true
}

// writeLedgerError maps core and store errors onto HTTP responses. fallback
// is the message for unexpected failures.
func writeLedgerError(w http.ResponseWriter, err error, fallback string) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, ledger.ErrEmptyArchiveName):
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"field": "name",
		})
	case errors.Is(err, ledger.ErrNothingToArchive),
		errors.Is(err, ledger.ErrEmptyPartition),
		errors.Is(err, ledger.ErrConfirmationMismatch),
		errors.Is(err, ledger.ErrInvalidStep):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, db.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrSnapshotsDisabled):
		middleware.WriteError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, ledger.ErrSessionClosed):
		middleware.WriteError(w, http.StatusUnauthorized, "signed out")
	case errors.Is(err, ledger.ErrLoadFailed):
		middleware.WriteError(w, http.StatusInternalServerError, ledger.ErrLoadFailed.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		middleware.WriteError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// viewParam returns the view query parameter and whether it was given. An
// empty value names the current view.
func viewParam(r *http.Request) (ledger.Key, bool) {
	q := r.URL.Query()
	if !q.Has("view") {
		return ledger.Current, false
	}
	return ledger.Key(q.Get("view")), true
}
