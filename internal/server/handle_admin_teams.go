package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func handleAdminListTeams(store AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := store.ListAllTeams(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

type AdminDisableRequest struct {
	Disabled bool `json:"disabled"`
}

// handleAdminSetTeamDisabled flips a team's disabled flag. Disabled
// teams keep their data but drop off the leaderboard and cannot act.
func handleAdminSetTeamDisabled(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")
		var req AdminDisableRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := store.SetTeamDisabled(r.Context(), teamID, req.Disabled)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		action := "admin_enable_team"
		if req.Disabled {
			action = "admin_disable_team"
		}
		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, action, map[string]any{"teamId": teamID})
		w.WriteHeader(http.StatusNoContent)
	}
}

type AdminPointsRequest struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}

type AdminPointsResponse struct {
	Balance float64 `json:"balance"`
}

func handleAdminAdjustPoints(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")
		var req AdminPointsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Delta == 0 {
			writeError(w, http.StatusUnprocessableEntity, "delta must be non-zero")
			return
		}

		balance, err := store.AdjustTeamPoints(r.Context(), teamID, req.Delta)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_adjust_points", map[string]any{
			"teamId": teamID, "delta": req.Delta, "reason": req.Reason, "balance": balance,
		})
		writeJSON(w, http.StatusOK, AdminPointsResponse{Balance: balance})
	}
}

type AdminRoomOverrideRequest struct {
	RoomID string `json:"roomId"`
}

func handleAdminOverrideRoom(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")
		var req AdminRoomOverrideRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.RoomID == "" {
			writeError(w, http.StatusUnprocessableEntity, "roomId is required")
			return
		}

		err := store.OverrideTeamRoom(r.Context(), teamID, req.RoomID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team or room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_override_room", map[string]any{
			"teamId": teamID, "roomId": req.RoomID,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
