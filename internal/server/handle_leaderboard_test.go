package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestLeaderboardOrderingAndScores(t *testing.T) {
	r, store := testRouter(t)
	lobby, vault := seededRooms(t, store)
	warmup := puzzleByTitle(t, store, lobby.ID, "Warmup Cipher")
	rules := puzzleByTitle(t, store, lobby.ID, "House Rules")

	// Leaders reach the vault with two solves.
	leaders := createTestTeam(t, r, "Leaders", "alice")
	unlockTestRoom(t, r, leaders.Token, lobby.ID)
	doJSON(t, r, http.MethodPost, "/api/flags", leaders.Token, SubmitFlagRequest{
		PuzzleID: warmup.ID, Flag: "flag{caesar_salad}",
	})
	doJSON(t, r, http.MethodPost, "/api/flags", leaders.Token, SubmitFlagRequest{
		PuzzleID: rules.ID, Flag: "flag{read_the_rules}",
	})
	unlockTestRoom(t, r, leaders.Token, vault.ID)

	// Chasers stay in the lobby with one solve.
	chasers := createTestTeam(t, r, "Chasers", "bob")
	unlockTestRoom(t, r, chasers.Token, lobby.ID)
	doJSON(t, r, http.MethodPost, "/api/flags", chasers.Token, SubmitFlagRequest{
		PuzzleID: warmup.ID, Flag: "flag{caesar_salad}",
	})

	// Idlers never enter a room.
	createTestTeam(t, r, "Idlers", "carol")

	w := doJSON(t, r, http.MethodGet, "/api/leaderboard", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var entries []LeaderboardEntry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	want := []string{"Leaders", "Chasers", "Idlers"}
	for i, name := range want {
		if entries[i].TeamName != name {
			t.Errorf("rank %d = %q, want %q", i+1, entries[i].TeamName, name)
		}
	}

	if entries[0].HighestRoomIndex != 2 {
		t.Errorf("leaders highest room = %d, want 2", entries[0].HighestRoomIndex)
	}
	// 100 + 50 solved, minus 150 unlock: balance zero but solves and
	// room progress still score.
	if entries[0].PointsBalance != 0 {
		t.Errorf("leaders balance = %v, want 0", entries[0].PointsBalance)
	}
	if entries[0].Score <= entries[1].Score {
		t.Errorf("leaders score %v should beat chasers %v", entries[0].Score, entries[1].Score)
	}
	if entries[1].PointsBalance != 100 {
		t.Errorf("chasers balance = %v, want 100", entries[1].PointsBalance)
	}
}

func TestLeaderboardExcludesDisabled(t *testing.T) {
	r, store := testRouter(t)

	createTestTeam(t, r, "Visible", "alice")
	banned := createTestTeam(t, r, "Banned", "mallory")
	if err := store.SetTeamDisabled(context.Background(), banned.TeamID, true); err != nil {
		t.Fatalf("disable team: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/leaderboard", "", nil)
	var entries []LeaderboardEntry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].TeamName != "Visible" {
		t.Errorf("entry = %q, want Visible", entries[0].TeamName)
	}
}

func TestLeaderboardShowsLiveStatuses(t *testing.T) {
	r, store := testRouter(t)

	attacker := createTestTeam(t, r, "Raiders", "mallory")
	victim := createTestTeam(t, r, "Victims", "alice")
	turtle := createTestTeam(t, r, "Turtles", "bob")
	grantPoints(t, store, attacker.TeamID, 100)
	grantPoints(t, store, turtle.TeamID, 100)

	doJSON(t, r, http.MethodPost, "/api/actions", attacker.Token, ActionRequest{
		Type: "attack", TargetTeamID: victim.TeamID,
	})
	doJSON(t, r, http.MethodPost, "/api/actions", turtle.Token, ActionRequest{Type: "defend"})

	w := doJSON(t, r, http.MethodGet, "/api/leaderboard", "", nil)
	var entries []LeaderboardEntry
	json.NewDecoder(w.Body).Decode(&entries)

	byName := map[string]LeaderboardEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	if !byName["Victims"].UnderAttack {
		t.Error("victims should show under attack")
	}
	if !byName["Turtles"].ShieldActive {
		t.Error("turtles should show an active shield")
	}
	if byName["Raiders"].UnderAttack || byName["Raiders"].ShieldActive {
		t.Error("raiders should show no statuses")
	}
}
