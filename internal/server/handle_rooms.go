package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flagforge/arena/internal/game"
)

type RoomListItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	OrderIndex int     `json:"orderIndex"`
	Brief      string  `json:"brief,omitempty"`
	UnlockCost float64 `json:"unlockCost"`
	Unlocked   bool    `json:"unlocked"`
	Current    bool    `json:"current"`
}

// handleListRooms shows the unlock path. The brief is only revealed for
// rooms the team has reached.
func handleListRooms(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}
		if sess.TeamID == "" {
			writeGameError(w, game.ErrNotInTeam)
			return
		}

		team, err := store.TeamByID(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		currentIndex := 0
		if team.CurrentRoomID != "" {
			room, err := store.RoomByID(r.Context(), team.CurrentRoomID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			currentIndex = room.OrderIndex
		}

		rooms, err := store.ListRooms(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := []RoomListItem{}
		for _, room := range rooms {
			item := RoomListItem{
				ID:         room.ID,
				Name:       room.Name,
				OrderIndex: room.OrderIndex,
				UnlockCost: room.UnlockCost,
				Unlocked:   room.OrderIndex <= currentIndex,
				Current:    room.ID == team.CurrentRoomID,
			}
			if item.Unlocked {
				item.Brief = room.Brief
			}
			items = append(items, item)
		}

		writeJSON(w, http.StatusOK, items)
	}
}

type UnlockRoomResponse struct {
	Message string `json:"message"`
}

// handleUnlockRoom enforces the strict linear unlock order and deducts
// the unlock cost atomically with the room pointer update.
func handleUnlockRoom(store Store, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}
		if sess.TeamID == "" {
			writeGameError(w, game.ErrNotInTeam)
			return
		}
		if sess.Role != "captain" {
			writeGameError(w, game.ErrNotCaptain)
			return
		}

		roomID := chi.URLParam(r, "roomID")
		var unlocked Room

		err = store.Update(r.Context(), func(tx Tx) error {
			team, _, err := tx.UserTeam(r.Context(), sess.UserID)
			if err != nil {
				return err
			}
			if team.Disabled {
				return game.ErrTeamDisabled
			}

			room, err := tx.Room(r.Context(), roomID)
			if errors.Is(err, ErrNotFound) || (err == nil && !room.Active) {
				return game.ErrRoomNotFound
			}
			if err != nil {
				return err
			}

			currentIndex := 0
			if team.CurrentRoomID != "" {
				current, err := tx.Room(r.Context(), team.CurrentRoomID)
				if err != nil {
					return err
				}
				currentIndex = current.OrderIndex
			}
			if !game.CanUnlock(currentIndex, room.OrderIndex) {
				return game.ErrOutOfOrderUnlock
			}

			if team.Points < room.UnlockCost {
				return game.ErrInsufficientPoints
			}
			team.Points -= room.UnlockCost
			team.CurrentRoomID = room.ID

			// Watermark is monotonic and independent of the room pointer.
			if team.HighestRoomID == "" {
				team.HighestRoomID = room.ID
			} else {
				highest, err := tx.Room(r.Context(), team.HighestRoomID)
				if err != nil {
					return err
				}
				if room.OrderIndex > highest.OrderIndex {
					team.HighestRoomID = room.ID
				}
			}

			unlocked = room
			return tx.SaveTeam(r.Context(), team)
		})
		if err != nil {
			writeGameError(w, err)
			return
		}

		audit.Log(r.Context(), sess.UserID, "unlock_room", map[string]any{
			"teamId": sess.TeamID, "roomId": unlocked.ID, "orderIndex": unlocked.OrderIndex,
			"cost": unlocked.UnlockCost,
		})

		writeJSON(w, http.StatusOK, UnlockRoomResponse{
			Message: fmt.Sprintf("Unlocked %s!", unlocked.Name),
		})
	}
}

type ClueListItem struct {
	ID         string  `json:"id"`
	Cost       float64 `json:"cost"`
	OrderIndex int     `json:"orderIndex"`
	Purchased  bool    `json:"purchased"`
	Text       string  `json:"text,omitempty"`
}

type PuzzleListItem struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Type         string         `json:"type"`
	Description  string         `json:"description"`
	Points       float64        `json:"points"`
	IsChallenge  bool           `json:"isChallenge"`
	TimerMinutes int            `json:"timerMinutes,omitempty"`
	Multiplier   float64        `json:"multiplier,omitempty"`
	Solved       bool           `json:"solved"`
	ClueCount    int            `json:"clueCount"`
	Clues        []ClueListItem `json:"clues"`
}

// handleRoomPuzzles lists the puzzles of an unlocked room. Flag hashes
// never leave the store layer's callers.
func handleRoomPuzzles(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}
		if sess.TeamID == "" {
			writeGameError(w, game.ErrNotInTeam)
			return
		}

		roomID := chi.URLParam(r, "roomID")
		room, err := store.RoomByID(r.Context(), roomID)
		if errors.Is(err, ErrNotFound) {
			writeGameError(w, game.ErrRoomNotFound)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		team, err := store.TeamByID(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		currentIndex := 0
		if team.CurrentRoomID != "" {
			current, err := store.RoomByID(r.Context(), team.CurrentRoomID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			currentIndex = current.OrderIndex
		}
		if room.OrderIndex > currentIndex {
			writeGameError(w, game.ErrRoomNotUnlocked)
			return
		}

		puzzles, err := store.PuzzlesByRoom(r.Context(), roomID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		solved, err := store.SolvedPuzzleIDs(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		purchased, err := store.PurchasedClueIDs(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := []PuzzleListItem{}
		for _, p := range puzzles {
			clues, err := store.CluesByPuzzle(r.Context(), p.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			// Clue text is revealed only once the team has paid for it.
			clueItems := []ClueListItem{}
			for _, c := range clues {
				ci := ClueListItem{
					ID:         c.ID,
					Cost:       c.Cost,
					OrderIndex: c.OrderIndex,
					Purchased:  purchased[c.ID],
				}
				if ci.Purchased {
					ci.Text = c.Text
				}
				clueItems = append(clueItems, ci)
			}
			item := PuzzleListItem{
				ID:          p.ID,
				Title:       p.Title,
				Type:        p.Type,
				Description: p.Description,
				Points:      p.Points,
				IsChallenge: p.IsChallenge,
				Solved:      solved[p.ID],
				ClueCount:   len(clues),
				Clues:       clueItems,
			}
			if p.IsChallenge {
				item.TimerMinutes = p.TimerMinutes
				item.Multiplier = p.Multiplier
			}
			items = append(items, item)
		}

		writeJSON(w, http.StatusOK, items)
	}
}
