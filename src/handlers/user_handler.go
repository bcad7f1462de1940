package handlers

import (
	"net/http"

	"ledger-server/src/auth"
	"ledger-server/src/logger"
	"ledger-server/src/middleware"
	"ledger-server/src/util"
)

func ChangePassword(users Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "missing token")
			return
		}

		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if !decode(w, r, &req) {
			return
		}

		user, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get user for password change")
			middleware.WriteError(w, http.StatusNotFound, "user not found")
			return
		}

		if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
			log.Error().Int64("user_id", userID).Msg("Invalid current password on password change")
			middleware.WriteError(w, http.StatusForbidden, "current password is incorrect")
			return
		}

		if !util.ValidatePassword(req.NewPassword) {
			middleware.WriteError(w, http.StatusBadRequest, "password must be at least 8 characters with uppercase, lowercase, digit, and special character")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to hash password")
			middleware.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := users.UpdatePassword(r.Context(), userID, hash); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to update password")
			middleware.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		log.Info().Int64("user_id", userID).Msg("Password changed")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated successfully"})
	}
}
