package handlers

import (
	"errors"
	"net/http"
	"time"

	"ledger-server/src/auth"
	db "ledger-server/src/db/sql"
	"ledger-server/src/ledger"
	"ledger-server/src/logger"
	"ledger-server/src/middleware"
	"ledger-server/src/models"
	"ledger-server/src/util"
)

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func Signup(users Users, tokens *auth.Tokens, events *auth.Events) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req models.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		req.Email = util.NormalizeEmail(req.Email)

		if !util.ValidateEmail(req.Email) {
			log.Error().Str("email", req.Email).Msg("Email validation failed during sign-up")
			middleware.WriteError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		if !util.ValidatePassword(req.Password) {
			log.Error().Str("email", req.Email).Msg("Password validation failed during sign-up")
			middleware.WriteError(w, http.StatusBadRequest, "password must be at least 8 characters with uppercase, lowercase, digit, and special character")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Str("email", req.Email).Msg("Failed to hash password")
			middleware.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := users.CreateUser(r.Context(), req.Email, hash)
		if err != nil {
			if errors.Is(err, db.ErrEmailTaken) {
				log.Error().Str("email", req.Email).Msg("Sign-up failed, email already registered")
				middleware.WriteError(w, http.StatusConflict, "email already registered")
				return
			}
			log.Error().Err(err).Str("email", req.Email).Msg("Failed to create user")
			middleware.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, _, err := tokens.Issue(user.ID, user.Email)
		if err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
			middleware.WriteError(w, http.StatusInternalServerError, "error generating token")
			return
		}

		events.Emit(auth.Event{Kind: auth.SignedIn, UserID: user.ID})
		log.Info().Int64("user_id", user.ID).Msg("Successful sign-up")
		middleware.WriteJSON(w, http.StatusCreated, models.RegisterResponse{
			ID:    user.ID,
			Email: user.Email,
			Token: token,
		})
	}
}

func Login(users Users, tokens *auth.Tokens, events *auth.Events) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var credentials struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decode(w, r, &credentials) {
			return
		}
		email := util.NormalizeEmail(credentials.Email)

		user, err := users.GetUserByEmail(r.Context(), email)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				log.Error().Err(err).Str("email", email).Msg("Failed to look up user during login")
				middleware.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			log.Error().Str("email", email).Msg("Login for unknown email")
			middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		if err := auth.CheckPassword(user.PasswordHash, credentials.Password); err != nil {
			log.Error().Str("email", email).Str("remote_addr", r.RemoteAddr).Msg("Invalid password attempt")
			middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, exp, err := tokens.Issue(user.ID, user.Email)
		if err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
			middleware.WriteError(w, http.StatusInternalServerError, "error generating token")
			return
		}

		now := time.Now()
		if err := users.TouchLogin(r.Context(), user.ID, now); err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to update last_login")
		} else {
			user.LastLogin = &now
		}

		events.Emit(auth.Event{Kind: auth.SignedIn, UserID: user.ID})
		log.Info().Int64("user_id", user.ID).Msg("Successful login")
		middleware.WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: user})
	}
}

// Logout revokes the caller's token and drops their ledger session.
func Logout(tokens *auth.Tokens, events *auth.Events, sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "missing token")
			return
		}

		tokens.Revoke(claims)
		sessions.Drop(claims.UserID)
		events.Emit(auth.Event{Kind: auth.SignedOut, UserID: claims.UserID})

		log := logger.FromContext(r.Context())
		log.Info().Int64("user_id", claims.UserID).Msg("Signed out")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
	}
}

type sessionResponse struct {
	User      *models.User      `json:"user"`
	View      ledger.Key        `json:"view"`
	Archives  []string          `json:"archives"`
	Count     int               `json:"count"`
	Clear     ledger.ClearState `json:"clear"`
	SyncError string            `json:"sync_error,omitempty"`
}

// Session describes the signed-in user and the state of their ledger. A
// failed load is reported in sync_error rather than failing the request.
func Session(users Users, sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "missing token")
			return
		}

		user, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get user")
			if errors.Is(err, db.ErrNotFound) {
				middleware.WriteError(w, http.StatusUnauthorized, "user not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := sessionResponse{User: user}
		s, err := sessions.Get(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load ledger for session")
			resp.SyncError = ledger.ErrLoadFailed.Error()
		}
		if s != nil {
			view, shown := s.View()
			resp.View = view
			resp.Count = len(shown)
			resp.Archives = s.ArchiveNames()
			resp.Clear = s.ClearState()
		}
		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}
