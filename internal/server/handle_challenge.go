package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flagforge/arena/internal/game"
)

type StartChallengeResponse struct {
	AttemptID    string  `json:"attemptId"`
	TimerMinutes int     `json:"timerMinutes"`
	Investment   float64 `json:"investment"`
	Message      string  `json:"message"`
}

// handleStartChallenge escrows half the base reward and opens the timer
// window. The escrow is never refunded: solving in time pays the
// multiplied reward, expiry forfeits it.
func handleStartChallenge(store Store, audit *Auditor) http.HandlerFunc {
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

		puzzleID := chi.URLParam(r, "puzzleID")
		var resp StartChallengeResponse

		now := time.Now()
		err = store.Update(r.Context(), func(tx Tx) error {
			team, _, err := tx.UserTeam(r.Context(), sess.UserID)
			if err != nil {
				return err
			}
			if team.Disabled {
				return game.ErrTeamDisabled
			}

			puzzle, err := tx.Puzzle(r.Context(), puzzleID)
			if errors.Is(err, ErrNotFound) || (err == nil && !puzzle.Active) {
				return game.ErrChallengeNotFound
			}
			if err != nil {
				return err
			}
			if !puzzle.IsChallenge {
				return game.ErrNotAChallenge
			}

			solved, err := tx.HasCorrectSubmission(r.Context(), team.ID, puzzle.ID)
			if err != nil {
				return err
			}
			if solved {
				return game.ErrAlreadySolved
			}

			if attempt, found, err := tx.IncompleteAttempt(r.Context(), team.ID, puzzle.ID); err != nil {
				return err
			} else if found {
				if now.Before(attempt.EndsAt) {
					return game.ErrAttemptInProgress
				}
				// Lazily expire a stale attempt; its investment stays forfeited.
				if err := tx.CompleteAttempt(r.Context(), attempt.ID, false, time.Time{}); err != nil {
					return err
				}
			}

			investment := game.ChallengeInvestment(puzzle.Points)
			if team.Points < investment {
				return game.ErrInsufficientPoints
			}
			team.Points -= investment
			if err := tx.SaveTeam(r.Context(), team); err != nil {
				return err
			}

			attemptID, err := tx.InsertAttempt(r.Context(), ChallengeAttempt{
				TeamID:     team.ID,
				PuzzleID:   puzzle.ID,
				StartedAt:  now,
				EndsAt:     now.Add(time.Duration(puzzle.TimerMinutes) * time.Minute),
				Investment: investment,
			})
			if err != nil {
				return err
			}

			resp = StartChallengeResponse{
				AttemptID:    attemptID,
				TimerMinutes: puzzle.TimerMinutes,
				Investment:   investment,
				Message:      fmt.Sprintf("Challenge started! You have %d minutes.", puzzle.TimerMinutes),
			}
			return nil
		})
		if err != nil {
			writeGameError(w, err)
			return
		}

		audit.Log(r.Context(), sess.UserID, "start_challenge", map[string]any{
			"teamId": sess.TeamID, "puzzleId": puzzleID, "investment": resp.Investment,
		})

		writeJSON(w, http.StatusOK, resp)
	}
}
