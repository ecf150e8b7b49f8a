package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flagforge/arena/internal/game"
)

type BuyClueResponse struct {
	Message  string `json:"message"`
	ClueText string `json:"clueText"`
}

func handleBuyClue(store Store, audit *Auditor) http.HandlerFunc {
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

		clueID := chi.URLParam(r, "clueID")
		var clue Clue

		err = store.Update(r.Context(), func(tx Tx) error {
			team, _, err := tx.UserTeam(r.Context(), sess.UserID)
			if err != nil {
				return err
			}
			if team.Disabled {
				return game.ErrTeamDisabled
			}

			clue, err = tx.Clue(r.Context(), clueID)
			if errors.Is(err, ErrNotFound) {
				return game.ErrClueNotFound
			}
			if err != nil {
				return err
			}

			bought, err := tx.HasPurchase(r.Context(), team.ID, clue.ID, "")
			if err != nil {
				return err
			}
			if bought {
				return game.ErrAlreadyPurchased
			}

			if team.Points < clue.Cost {
				return game.ErrInsufficientPoints
			}
			team.Points -= clue.Cost
			if err := tx.SaveTeam(r.Context(), team); err != nil {
				return err
			}
			return tx.InsertPurchase(r.Context(), team.ID, clue.ID, "", clue.Cost)
		})
		if err != nil {
			writeGameError(w, err)
			return
		}

		audit.Log(r.Context(), sess.UserID, "buy_clue", map[string]any{
			"teamId": sess.TeamID, "clueId": clue.ID, "cost": clue.Cost,
		})

		writeJSON(w, http.StatusOK, BuyClueResponse{
			Message:  "Clue purchased.",
			ClueText: clue.Text,
		})
	}
}

func handleListPerks(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := playerFromRequest(r, store); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}
		perks, err := store.ListPerks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if perks == nil {
			perks = []Perk{}
		}
		writeJSON(w, http.StatusOK, perks)
	}
}

type BuyPerkResponse struct {
	Message string `json:"message"`
}

func handleBuyPerk(store Store, audit *Auditor) http.HandlerFunc {
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

		perkID := chi.URLParam(r, "perkID")
		var perk Perk

		err = store.Update(r.Context(), func(tx Tx) error {
			team, _, err := tx.UserTeam(r.Context(), sess.UserID)
			if err != nil {
				return err
			}
			if team.Disabled {
				return game.ErrTeamDisabled
			}

			perk, err = tx.Perk(r.Context(), perkID)
			if errors.Is(err, ErrNotFound) || (err == nil && !perk.Active) {
				return game.ErrPerkNotFound
			}
			if err != nil {
				return err
			}

			// One-time perks are exactly-once per team.
			if perk.OneTime {
				bought, err := tx.HasPurchase(r.Context(), team.ID, "", perk.ID)
				if err != nil {
					return err
				}
				if bought {
					return game.ErrAlreadyPurchased
				}
			}

			if team.Points < perk.Cost {
				return game.ErrInsufficientPoints
			}
			team.Points -= perk.Cost
			if err := tx.SaveTeam(r.Context(), team); err != nil {
				return err
			}
			return tx.InsertPurchase(r.Context(), team.ID, "", perk.ID, perk.Cost)
		})
		if err != nil {
			writeGameError(w, err)
			return
		}

		audit.Log(r.Context(), sess.UserID, "buy_perk", map[string]any{
			"teamId": sess.TeamID, "perkId": perk.ID, "cost": perk.Cost,
		})

		writeJSON(w, http.StatusOK, BuyPerkResponse{Message: "Perk purchased."})
	}
}
