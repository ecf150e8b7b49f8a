package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/flagforge/arena/internal/game"
)

type ActionRequest struct {
	Type         string  `json:"type"` // "attack", "defend" or "invest"
	TargetTeamID string  `json:"targetTeamId,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
}

type ActionResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// handleAction is the attack/defend/invest engine. All temporal state
// (cooldown, immunity, shield, attack window) is stored as expiry
// timestamps and resolved lazily; nothing here schedules anything.
func handleAction(store Store, audit *Auditor, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req ActionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Type != "attack" && req.Type != "defend" && req.Type != "invest" {
			writeError(w, http.StatusBadRequest, "type must be attack, defend or invest")
			return
		}
		if req.Type == "attack" && req.TargetTeamID == "" {
			writeError(w, http.StatusBadRequest, "targetTeamId is required for attacks")
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

		var (
			actionID string
			message  string
			teamName string
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
			teamName = team.Name

			switch req.Type {
			case "attack":
				if req.TargetTeamID == team.ID {
					return game.ErrCannotTargetSelf
				}
				target, err := tx.Team(r.Context(), req.TargetTeamID)
				if errors.Is(err, ErrNotFound) || (err == nil && target.Disabled) {
					return game.ErrTargetNotFound
				}
				if err != nil {
					return err
				}

				if rem := game.CooldownRemaining(team.LastAttackAt, now); rem > 0 {
					return game.OnCooldown(rem)
				}
				if game.Until(target.ImmunityUntil).ActiveAt(now) {
					return game.ErrTargetImmune
				}
				if (game.Effect{Hint: target.ShieldActive, ExpiresAt: target.ShieldExpiry}).ActiveAt(now) {
					return game.ErrTargetShielded
				}
				if team.Points < game.AttackCost {
					return game.ErrInsufficientPoints
				}

				team.Points -= game.AttackCost
				team.LastAttackAt = now
				if err := tx.SaveTeam(r.Context(), team); err != nil {
					return err
				}

				// The target cannot be attacked again right away,
				// whether or not it shields.
				target.ImmunityUntil = now.Add(game.ImmunityWindow)
				if err := tx.SaveTeam(r.Context(), target); err != nil {
					return err
				}

				actionID, err = tx.InsertAction(r.Context(), Action{
					TeamID:        team.ID,
					Type:          "attack",
					TargetTeamID:  target.ID,
					Cost:          game.AttackCost,
					Status:        "active",
					EndsAt:        now.Add(game.AttackWindow),
					CooldownUntil: now.Add(game.AttackCooldown),
					CreatedAt:     now,
				})
				message = "Attack launched on " + target.Name + "!"
				return err

			case "defend":
				if (game.Effect{Hint: team.ShieldActive, ExpiresAt: team.ShieldExpiry}).ActiveAt(now) {
					return game.ErrShieldAlreadyActive
				}
				// A shield cannot be raised mid-attack.
				if _, under, err := tx.ActiveAttackAgainst(r.Context(), team.ID, now); err != nil {
					return err
				} else if under {
					return game.ErrUnderAttack
				}
				if team.Points < game.DefendCost {
					return game.ErrInsufficientPoints
				}

				team.Points -= game.DefendCost
				team.ShieldActive = true
				team.ShieldExpiry = now.Add(game.ShieldWindow)
				if err := tx.SaveTeam(r.Context(), team); err != nil {
					return err
				}

				actionID, err = tx.InsertAction(r.Context(), Action{
					TeamID:    team.ID,
					Type:      "defend",
					Cost:      game.DefendCost,
					Status:    "active",
					EndsAt:    now.Add(game.ShieldWindow),
					CreatedAt: now,
				})
				message = "Shield raised!"
				return err

			case "invest":
				if req.Amount <= 0 {
					return game.ErrMissingAmount
				}
				if team.Points < req.Amount {
					return game.ErrInsufficientPoints
				}

				team.Points -= req.Amount
				if err := tx.SaveTeam(r.Context(), team); err != nil {
					return err
				}

				// Escrow with no defined release: investments stay
				// pending until product defines a payout.
				actionID, err = tx.InsertAction(r.Context(), Action{
					TeamID:    team.ID,
					Type:      "invest",
					Cost:      req.Amount,
					Status:    "pending",
					CreatedAt: now,
				})
				message = "Investment recorded."
				return err

			default:
				// Unreachable: the type is validated above.
				return game.ErrMissingAmount
			}
		})
		if err != nil {
			writeGameError(w, err)
			return
		}

		audit.Log(r.Context(), sess.UserID, "perform_action", map[string]any{
			"teamId": sess.TeamID, "type": req.Type,
			"targetTeamId": req.TargetTeamID, "amount": req.Amount, "actionId": actionID,
		})

		switch req.Type {
		case "attack":
			broker.Publish(req.TargetTeamID, SSEEvent{Type: "under_attack", TeamName: teamName})
		case "defend":
			broker.Publish(sess.TeamID, SSEEvent{Type: "shield_raised"})
		}

		writeJSON(w, http.StatusOK, ActionResponse{ID: actionID, Message: message})
	}
}
