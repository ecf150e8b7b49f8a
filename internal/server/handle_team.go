package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flagforge/arena/internal/game"
)

type CreateTeamRequest struct {
	TeamName   string `json:"teamName"`
	PlayerName string `json:"playerName"`
	Capacity   int    `json:"capacity"`
}

type JoinTeamRequest struct {
	InviteCode string `json:"inviteCode"`
	PlayerName string `json:"playerName"`
}

type TeamAuthResponse struct {
	Token      string `json:"token"`
	TeamID     string `json:"teamId"`
	TeamName   string `json:"teamName"`
	InviteCode string `json:"inviteCode,omitempty"`
}

func handleCreateTeam(store Store, audit *Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.TeamName = strings.TrimSpace(req.TeamName)
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if req.TeamName == "" || req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "teamName and playerName are required")
			return
		}
		if req.Capacity == 0 {
			req.Capacity = 5
		}
		if req.Capacity < 2 || req.Capacity > 5 {
			writeError(w, http.StatusBadRequest, "capacity must be between 2 and 5")
			return
		}

		team, token, err := store.CreateTeam(r.Context(), req.TeamName, req.PlayerName, req.Capacity)
		if err != nil {
			var ge *game.Error
			if errors.As(err, &ge) {
				writeGameError(w, err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		audit.Log(r.Context(), "", "create_team", map[string]any{
			"teamId": team.ID, "teamName": team.Name, "capacity": team.Capacity,
		})

		writeJSON(w, http.StatusOK, TeamAuthResponse{
			Token:      token,
			TeamID:     team.ID,
			TeamName:   team.Name,
			InviteCode: team.InviteCode,
		})
	}
}

func handleJoinTeam(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.InviteCode = strings.TrimSpace(req.InviteCode)
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if req.InviteCode == "" || req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "inviteCode and playerName are required")
			return
		}

		team, token, err := store.JoinTeam(r.Context(), req.InviteCode, req.PlayerName)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no team with that invite code")
			return
		}
		if err != nil {
			var ge *game.Error
			if errors.As(err, &ge) {
				writeGameError(w, err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(team.ID, SSEEvent{
			Type:       "member_joined",
			PlayerName: req.PlayerName,
		})

		writeJSON(w, http.StatusOK, TeamAuthResponse{
			Token:    token,
			TeamID:   team.ID,
			TeamName: team.Name,
		})
	}
}

type RoomRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"orderIndex"`
}

type TeamStateResponse struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Points             float64      `json:"points"`
	Capacity           int          `json:"capacity"`
	CurrentRoom        *RoomRef     `json:"currentRoom"`
	HighestRoom        *RoomRef     `json:"highestRoom"`
	ShieldActive       bool         `json:"shieldActive"`
	ShieldRemainingSec int          `json:"shieldRemainingSec"`
	UnderAttack        bool         `json:"underAttack"`
	ImmuneSec          int          `json:"immuneSec"`
	AttackCooldownSec  int          `json:"attackCooldownSec"`
	RulesFlagSubmitted bool         `json:"rulesFlagSubmitted"`
	InviteCode         string       `json:"inviteCode,omitempty"`
	Members            []Member     `json:"members"`
	Role               string       `json:"role"`
}

// handleTeamState reports the caller's team with all temporal statuses
// resolved live: the client only ever polls the authoritative timestamps.
func handleTeamState(store Store) http.HandlerFunc {
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

		now := time.Now()
		underAttack, err := store.UnderAttack(r.Context(), team.ID, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		members, err := store.Members(r.Context(), team.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		shield := game.Effect{Hint: team.ShieldActive, ExpiresAt: team.ShieldExpiry}
		immunity := game.Until(team.ImmunityUntil)

		resp := TeamStateResponse{
			ID:                 team.ID,
			Name:               team.Name,
			Points:             team.Points,
			Capacity:           team.Capacity,
			ShieldActive:       shield.ActiveAt(now),
			ShieldRemainingSec: int(shield.Remaining(now).Seconds()),
			UnderAttack:        underAttack,
			ImmuneSec:          int(immunity.Remaining(now).Seconds()),
			AttackCooldownSec:  int(game.CooldownRemaining(team.LastAttackAt, now).Seconds()),
			RulesFlagSubmitted: team.RulesFlagSubmitted,
			Members:            members,
			Role:               sess.Role,
		}
		if sess.Role == "captain" {
			resp.InviteCode = team.InviteCode
		}

		if team.CurrentRoomID != "" {
			if room, err := store.RoomByID(r.Context(), team.CurrentRoomID); err == nil {
				resp.CurrentRoom = &RoomRef{ID: room.ID, Name: room.Name, OrderIndex: room.OrderIndex}
			}
		}
		if team.HighestRoomID != "" {
			if room, err := store.RoomByID(r.Context(), team.HighestRoomID); err == nil {
				resp.HighestRoom = &RoomRef{ID: room.ID, Name: room.Name, OrderIndex: room.OrderIndex}
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
