package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flagforge/arena/internal/game"
)

// Each puzzle carries at most three clues.
const maxCluesPerPuzzle = 3

func handleAdminListRooms(store AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := store.ListAllRooms(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if rooms == nil {
			rooms = []Room{}
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func handleAdminCreateRoom(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" || req.OrderIndex < 1 {
			writeError(w, http.StatusUnprocessableEntity, "name and a positive orderIndex are required")
			return
		}

		room, err := store.CreateRoom(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_create_room", map[string]any{
			"roomId": room.ID, "name": room.Name, "orderIndex": room.OrderIndex,
		})
		writeJSON(w, http.StatusCreated, room)
	}
}

func handleAdminUpdateRoom(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		var req AdminRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		room, err := store.UpdateRoom(r.Context(), roomID, req)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_update_room", map[string]any{"roomId": roomID})
		writeJSON(w, http.StatusOK, room)
	}
}

func handleAdminDeleteRoom(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		err := store.DeleteRoom(r.Context(), roomID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_delete_room", map[string]any{"roomId": roomID})
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminCreatePuzzle(store AdminStore, hasher game.Hasher, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		var req AdminPuzzleRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" || req.Flag == "" {
			writeError(w, http.StatusUnprocessableEntity, "title and flag are required")
			return
		}
		if err := game.ValidateFlagFormat(req.Flag); err != nil {
			writeGameError(w, err)
			return
		}
		if req.IsChallenge && req.TimerMinutes < 1 {
			writeError(w, http.StatusUnprocessableEntity, "timed challenges need a positive timerMinutes")
			return
		}

		// Only the digest is stored; the plaintext flag never leaves
		// this handler.
		puzzle, err := store.CreatePuzzle(r.Context(), roomID, req, hasher.Hash(req.Flag))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_create_puzzle", map[string]any{
			"puzzleId": puzzle.ID, "roomId": roomID, "title": puzzle.Title,
		})
		writeJSON(w, http.StatusCreated, puzzle)
	}
}

func handleAdminUpdatePuzzle(store AdminStore, hasher game.Hasher, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		puzzleID := chi.URLParam(r, "puzzleID")
		var req AdminPuzzleRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Flag == "" {
			writeError(w, http.StatusUnprocessableEntity, "flag is required")
			return
		}
		if err := game.ValidateFlagFormat(req.Flag); err != nil {
			writeGameError(w, err)
			return
		}

		err := store.UpdatePuzzle(r.Context(), puzzleID, req, hasher.Hash(req.Flag))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "puzzle not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_update_puzzle", map[string]any{"puzzleId": puzzleID})
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminDeletePuzzle(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		puzzleID := chi.URLParam(r, "puzzleID")
		err := store.DeletePuzzle(r.Context(), puzzleID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "puzzle not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_delete_puzzle", map[string]any{"puzzleId": puzzleID})
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminCreateClue(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		puzzleID := chi.URLParam(r, "puzzleID")
		var req AdminClueRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Text == "" || req.Cost < 0 {
			writeError(w, http.StatusUnprocessableEntity, "text and a non-negative cost are required")
			return
		}

		count, err := store.ClueCount(r.Context(), puzzleID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if count >= maxCluesPerPuzzle {
			writeError(w, http.StatusUnprocessableEntity, "puzzle already has the maximum number of clues")
			return
		}

		clue, err := store.CreateClue(r.Context(), puzzleID, req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_create_clue", map[string]any{
			"clueId": clue.ID, "puzzleId": puzzleID,
		})
		writeJSON(w, http.StatusCreated, clue)
	}
}

func handleAdminDeleteClue(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clueID := chi.URLParam(r, "clueID")
		err := store.DeleteClue(r.Context(), clueID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "clue not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_delete_clue", map[string]any{"clueId": clueID})
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminCreatePerk(store AdminStore, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminPerkRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" || req.Cost < 0 {
			writeError(w, http.StatusUnprocessableEntity, "name and a non-negative cost are required")
			return
		}

		perk, err := store.CreatePerk(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sess := adminFrom(r)
		audit.Log(r.Context(), sess.AdminID, "admin_create_perk", map[string]any{
			"perkId": perk.ID, "name": perk.Name,
		})
		writeJSON(w, http.StatusCreated, perk)
	}
}
