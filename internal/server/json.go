package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flagforge/arena/internal/game"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeGameError maps the game error taxonomy onto HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	var ge *game.Error
	if !errors.As(err, &ge) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusConflict
	switch ge.Kind {
	case game.KindAuthorization:
		status = http.StatusForbidden
	case game.KindValidation:
		status = http.StatusUnprocessableEntity
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindTemporal:
		if errors.Is(ge, game.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
	}

	writeJSON(w, status, map[string]string{"error": ge.Message, "code": ge.Code})
}
