package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/flagforge/arena/internal/game"
)

func TestAttackDeductsAndSetsCooldown(t *testing.T) {
	r, store := testRouter(t)

	attacker := createTestTeam(t, r, "Raiders", "mallory")
	victim := createTestTeam(t, r, "Victims", "alice")
	grantPoints(t, store, attacker.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ActionResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ID == "" {
		t.Error("expected an action id")
	}

	state := teamState(t, r, attacker.Token)
	if state.Points != 100-game.AttackCost {
		t.Errorf("attacker balance = %v, want %v", state.Points, 100-game.AttackCost)
	}
	if state.AttackCooldownSec <= 0 {
		t.Error("attacker should be on cooldown")
	}

	victimState := teamState(t, r, victim.Token)
	if !victimState.UnderAttack {
		t.Error("victim should be under attack")
	}
	if victimState.ImmuneSec <= 0 {
		t.Error("victim should have immunity against further attacks")
	}
}

func TestAttackCooldownBlocksSecondAttack(t *testing.T) {
	r, store := testRouter(t)

	attacker := createTestTeam(t, r, "Raiders", "mallory")
	first := createTestTeam(t, r, "Firsts", "alice")
	second := createTestTeam(t, r, "Seconds", "bob")
	grantPoints(t, store, attacker.TeamID, 200)

	doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: first.TeamID,
	})
	w := doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: second.TeamID,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "on_cooldown" {
		t.Errorf("code = %q, want on_cooldown", code)
	}
}

func TestAttackImmuneTarget(t *testing.T) {
	r, store := testRouter(t)

	first := createTestTeam(t, r, "Firsts", "alice")
	second := createTestTeam(t, r, "Seconds", "bob")
	victim := createTestTeam(t, r, "Victims", "carol")
	grantPoints(t, store, first.TeamID, 100)
	grantPoints(t, store, second.TeamID, 100)

	doJSON(t, r, http.MethodPost, "/api/actions", first.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})
	w := doJSON(t, r, http.MethodPost, "/api/actions", second.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "target_immune" {
		t.Errorf("code = %q, want target_immune", code)
	}
}

func TestAttackShieldedTarget(t *testing.T) {
	r, store := testRouter(t)

	attacker := createTestTeam(t, r, "Raiders", "mallory")
	defender := createTestTeam(t, r, "Turtles", "alice")
	grantPoints(t, store, attacker.TeamID, 100)
	grantPoints(t, store, defender.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/actions", defender.Token, ActionRequest{Type: "defend"})
	if w.Code != http.StatusOK {
		t.Fatalf("defend: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: defender.TeamID,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "target_shielded" {
		t.Errorf("code = %q, want target_shielded", code)
	}
}

func TestAttackSelf(t *testing.T) {
	r, store := testRouter(t)

	team := createTestTeam(t, r, "Ouroboros", "alice")
	grantPoints(t, store, team.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{
		Type: "attack", TargetTeamID: team.TeamID,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "cannot_target_self" {
		t.Errorf("code = %q, want cannot_target_self", code)
	}
}

func TestAttackUnknownTarget(t *testing.T) {
	r, store := testRouter(t)

	team := createTestTeam(t, r, "Raiders", "mallory")
	grantPoints(t, store, team.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{
		Type: "attack", TargetTeamID: "no-such-team",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAttackInsufficientPoints(t *testing.T) {
	r, _ := testRouter(t)

	attacker := createTestTeam(t, r, "Broke", "mallory")
	victim := createTestTeam(t, r, "Victims", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "insufficient_points" {
		t.Errorf("code = %q, want insufficient_points", code)
	}
}

func TestDefendRaisesShield(t *testing.T) {
	r, store := testRouter(t)

	team := createTestTeam(t, r, "Turtles", "alice")
	grantPoints(t, store, team.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{Type: "defend"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	state := teamState(t, r, team.Token)
	if !state.ShieldActive {
		t.Error("shield should be active")
	}
	if state.ShieldRemainingSec <= 0 {
		t.Error("shield should have remaining time")
	}
	if state.Points != 100-game.DefendCost {
		t.Errorf("balance = %v, want %v", state.Points, 100-game.DefendCost)
	}

	// Double defend is rejected while the shield lives.
	w = doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{Type: "defend"})
	if w.Code != http.StatusConflict {
		t.Fatalf("second defend: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "shield_already_active" {
		t.Errorf("code = %q, want shield_already_active", code)
	}
}

func TestDefendBlockedWhileUnderAttack(t *testing.T) {
	r, store := testRouter(t)

	attacker := createTestTeam(t, r, "Raiders", "mallory")
	victim := createTestTeam(t, r, "Victims", "alice")
	grantPoints(t, store, attacker.TeamID, 100)
	grantPoints(t, store, victim.TeamID, 100)

	doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})

	w := doJSON(t, r, http.MethodPost, "/api/actions", victim.Token, ActionRequest{Type: "defend"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "under_attack" {
		t.Errorf("code = %q, want under_attack", code)
	}
}

func TestInvestEscrowsPoints(t *testing.T) {
	r, store := testRouter(t)

	team := createTestTeam(t, r, "Angels", "alice")
	grantPoints(t, store, team.TeamID, 300)

	w := doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{
		Type: "invest", Amount: 120,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if state := teamState(t, r, team.Token); state.Points != 180 {
		t.Errorf("balance = %v, want 180", state.Points)
	}
}

func TestInvestRequiresAmount(t *testing.T) {
	r, store := testRouter(t)

	team := createTestTeam(t, r, "Angels", "alice")
	grantPoints(t, store, team.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{Type: "invest"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "missing_amount" {
		t.Errorf("code = %q, want missing_amount", code)
	}
}

func TestActionUnknownType(t *testing.T) {
	r, _ := testRouter(t)

	team := createTestTeam(t, r, "Confused", "alice")
	w := doJSON(t, r, http.MethodPost, "/api/actions", team.Token, ActionRequest{Type: "sabotage"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestActionRequiresCaptain(t *testing.T) {
	r, store := testRouter(t)

	captain := createTestTeam(t, r, "Raiders", "mallory")
	victim := createTestTeam(t, r, "Victims", "alice")
	grantPoints(t, store, captain.TeamID, 100)

	w := doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "bob",
	})
	var member TeamAuthResponse
	json.NewDecoder(w.Body).Decode(&member)

	w = doJSON(t, r, http.MethodPost, "/api/actions", member.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}
