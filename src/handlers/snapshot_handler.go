package handlers

import (
	"net/http"

	"ledger-server/src/ledger"
	"ledger-server/src/middleware"
)

func ListSnapshots(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		snaps, err := s.Snapshots(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to list snapshots")
			writeLedgerError(w, err, "failed to list snapshots")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, snaps)
	}
}

// CreateSnapshot stores a copy of a view, the current one by default.
func CreateSnapshot(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		var req struct {
			View  ledger.Key `json:"view"`
			Label string     `json:"label"`
		}
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}

		snap, err := s.Snapshot(r.Context(), req.View, req.Label)
		if err != nil {
			log.Error().Err(err).Str("view", string(req.View)).Msg("Failed to create snapshot")
			writeLedgerError(w, err, "failed to store snapshot")
			return
		}
		log.Info().Int64("snapshot_id", snap.ID).Msg("Snapshot created")
		middleware.WriteJSON(w, http.StatusCreated, snap)
	}
}

func GetSnapshot(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		snap, err := s.GetSnapshot(r.Context(), id)
		if err != nil {
			log.Error().Err(err).Int64("snapshot_id", id).Msg("Failed to get snapshot")
			writeLedgerError(w, err, "failed to get snapshot")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, snap)
	}
}

func DeleteSnapshot(sessions *ledger.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		s, log, ok := openSession(w, r, sessions)
		if !ok {
			return
		}
		if err := s.DeleteSnapshot(r.Context(), id); err != nil {
			log.Error().Err(err).Int64("snapshot_id", id).Msg("Failed to delete snapshot")
			writeLedgerError(w, err, "failed to delete snapshot")
			return
		}
		log.Info().Int64("snapshot_id", id).Msg("Snapshot deleted")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "snapshot deleted"})
	}
}
