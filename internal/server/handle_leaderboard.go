package server

import (
	"net/http"
	"time"
)

// handleLeaderboard recomputes standings on demand. Statuses come from
// the authoritative timestamps, never from the stored hints alone, and
// disabled teams are filtered out by the store query.
func handleLeaderboard(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.Leaderboard(r.Context(), time.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
