package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flagforge/arena/internal/game"
)

type SubmitFlagRequest struct {
	PuzzleID string `json:"puzzleId"`
	Flag     string `json:"flag"`
}

type SubmitFlagResponse struct {
	Message       string  `json:"message"`
	PointsAwarded float64 `json:"pointsAwarded"`
}

// handleSubmitFlag runs the submission state machine: cheapest checks
// first, hash computation last, one transaction around the whole
// read-decide-write. An incorrect flag is a normal outcome, not an error.
func handleSubmitFlag(logger *slog.Logger, store Store, limiter RateLimiter, hasher game.Hasher, audit *Auditor, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req SubmitFlagRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Flag = strings.TrimSpace(req.Flag)
		if req.PuzzleID == "" {
			writeError(w, http.StatusBadRequest, "puzzleId is required")
			return
		}

		if sess.TeamID == "" {
			writeGameError(w, game.ErrNotInTeam)
			return
		}

		// Sliding window per (team, puzzle). The limiter backend being
		// down must not block gameplay: fail open with a warning.
		key := fmt.Sprintf("submit:%s:%s", sess.TeamID, req.PuzzleID)
		ok, err := limiter.Allow(r.Context(), key, game.SubmissionLimit, game.SubmissionWindow)
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			ok = true
		}
		if !ok {
			writeGameError(w, game.ErrRateLimited)
			return
		}

		var (
			resp    SubmitFlagResponse
			correct bool
			puzzle  Puzzle
			// lateErr is reported to the client after commit: the
			// submission row (recorded as incorrect) and any attempt
			// state written by the transaction survive these rejections.
			lateErr *game.Error
		)

		now := time.Now()
		err = store.Update(r.Context(), func(tx Tx) error {
			team, _, err := tx.UserTeam(r.Context(), sess.UserID)
			if err != nil {
				return err
			}
			if team.Disabled {
				return game.ErrTeamDisabled
			}

			// No submissions are accepted while under attack,
			// regardless of flag correctness.
			if _, under, err := tx.ActiveAttackAgainst(r.Context(), team.ID, now); err != nil {
				return err
			} else if under {
				return game.ErrUnderAttack
			}

			puzzle, err = tx.Puzzle(r.Context(), req.PuzzleID)
			if errors.Is(err, ErrNotFound) || (err == nil && !puzzle.Active) {
				return game.ErrPuzzleNotFound
			}
			if err != nil {
				return err
			}

			room, err := tx.Room(r.Context(), puzzle.RoomID)
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
			if room.OrderIndex > currentIndex {
				return game.ErrRoomNotUnlocked
			}

			if err := game.ValidateFlagFormat(req.Flag); err != nil {
				return err
			}

			solved, err := tx.HasCorrectSubmission(r.Context(), team.ID, puzzle.ID)
			if err != nil {
				return err
			}
			if solved {
				return game.ErrAlreadySolved
			}

			correct = hasher.Matches(req.Flag, puzzle.FlagHash)

			// A matching flag outside a live attempt is not a solve.
			// Rejected challenge submissions are recorded as incorrect so
			// the puzzle stays winnable through a proper attempt.
			reward := puzzle.Points
			var attemptID string
			if correct && puzzle.IsChallenge {
				attempt, found, err := tx.IncompleteAttempt(r.Context(), team.ID, puzzle.ID)
				if err != nil {
					return err
				}
				switch {
				case !found:
					correct = false
					lateErr = game.ErrChallengeNotStarted
				case now.After(attempt.EndsAt):
					// Timer ran out: the attempt closes as failed and
					// the escrowed investment is forfeited.
					if err := tx.CompleteAttempt(r.Context(), attempt.ID, false, time.Time{}); err != nil {
						return err
					}
					correct = false
					lateErr = game.ErrChallengeExpired
				default:
					reward = game.ChallengeReward(puzzle.Points, puzzle.Multiplier)
					attemptID = attempt.ID
				}
			}

			// The audit trail and rate-limit substrate: every attempt
			// is recorded, correct or not.
			if _, err := tx.InsertSubmission(r.Context(), Submission{
				TeamID:    team.ID,
				PuzzleID:  puzzle.ID,
				FlagHash:  hasher.Hash(req.Flag),
				IsCorrect: correct,
				IP:        r.RemoteAddr,
				CreatedAt: now,
			}); err != nil {
				return err
			}

			if lateErr != nil {
				return nil
			}
			if !correct {
				resp = SubmitFlagResponse{Message: "Incorrect flag.", PointsAwarded: 0}
				return nil
			}

			if attemptID != "" {
				if err := tx.CompleteAttempt(r.Context(), attemptID, true, now); err != nil {
					return err
				}
			}

			team.Points += reward
			if puzzle.Type == "rules" {
				team.RulesFlagSubmitted = true
			}

			// Room-question puzzles teleport the team forward on first solve.
			if puzzle.IsRoomQuestion && puzzle.SkipToRoomID != "" {
				skip, err := tx.Room(r.Context(), puzzle.SkipToRoomID)
				if err == nil {
					team.CurrentRoomID = skip.ID
					if team.HighestRoomID == "" {
						team.HighestRoomID = skip.ID
					} else if highest, err := tx.Room(r.Context(), team.HighestRoomID); err == nil && skip.OrderIndex > highest.OrderIndex {
						team.HighestRoomID = skip.ID
					}
				}
			}

			if err := tx.SaveTeam(r.Context(), team); err != nil {
				return err
			}
			resp = SubmitFlagResponse{Message: "Correct flag!", PointsAwarded: reward}
			return nil
		})

		switch {
		case errors.Is(err, game.ErrUnderAttack):
			audit.Log(r.Context(), sess.UserID, "blocked_submission_under_attack", map[string]any{
				"teamId": sess.TeamID, "puzzleId": req.PuzzleID,
			})
			writeGameError(w, err)
			return
		case errors.Is(err, game.ErrInvalidFormat):
			audit.Log(r.Context(), sess.UserID, "invalid_flag_format", map[string]any{
				"teamId": sess.TeamID, "puzzleId": req.PuzzleID, "length": len(req.Flag),
			})
			writeGameError(w, err)
			return
		case err != nil:
			writeGameError(w, err)
			return
		}

		if lateErr != nil {
			audit.Log(r.Context(), sess.UserID, "failed_flag_submission", map[string]any{
				"teamId": sess.TeamID, "puzzleId": req.PuzzleID, "reason": lateErr.Code,
			})
			writeGameError(w, lateErr)
			return
		}

		if correct {
			audit.Log(r.Context(), sess.UserID, "solve_puzzle", map[string]any{
				"teamId": sess.TeamID, "puzzleId": puzzle.ID, "points": resp.PointsAwarded,
			})
			broker.Publish(sess.TeamID, SSEEvent{
				Type:        "flag_solved",
				PuzzleTitle: puzzle.Title,
				Points:      resp.PointsAwarded,
				PlayerName:  sess.Name,
			})
		} else {
			audit.Log(r.Context(), sess.UserID, "failed_flag_submission", map[string]any{
				"teamId": sess.TeamID, "puzzleId": puzzle.ID,
			})
			broker.Publish(sess.TeamID, SSEEvent{
				Type:        "wrong_flag",
				PuzzleTitle: puzzle.Title,
				PlayerName:  sess.Name,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
