package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestListRoomsHidesLockedBriefs(t *testing.T) {
	r, store := testRouter(t)
	lobby, _ := seededRooms(t, store)

	team := createTestTeam(t, r, "Null Pointers", "alice")

	w := doJSON(t, r, http.MethodGet, "/api/rooms", team.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var items []RoomListItem
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 2 {
		t.Fatalf("rooms = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.Unlocked {
			t.Errorf("room %q should be locked for a fresh team", item.Name)
		}
		if item.Brief != "" {
			t.Errorf("room %q brief should be hidden while locked", item.Name)
		}
	}

	unlockTestRoom(t, r, team.Token, lobby.ID)

	w = doJSON(t, r, http.MethodGet, "/api/rooms", team.Token, nil)
	json.NewDecoder(w.Body).Decode(&items)
	if !items[0].Unlocked || items[0].Brief == "" {
		t.Error("first room should be unlocked with its brief revealed")
	}
	if !items[0].Current {
		t.Error("first room should be the current room")
	}
	if items[1].Unlocked || items[1].Brief != "" {
		t.Error("second room should still be locked")
	}
}

func TestUnlockRoomOutOfOrder(t *testing.T) {
	r, store := testRouter(t)
	_, vault := seededRooms(t, store)

	team := createTestTeam(t, r, "Null Pointers", "alice")
	grantPoints(t, store, team.TeamID, 1000)

	w := doJSON(t, r, http.MethodPost, "/api/rooms/"+vault.ID+"/unlock", team.Token, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "out_of_order_unlock" {
		t.Errorf("code = %q, want out_of_order_unlock", code)
	}
}

func TestUnlockRoomInsufficientPoints(t *testing.T) {
	r, store := testRouter(t)
	lobby, vault := seededRooms(t, store)

	team := createTestTeam(t, r, "Null Pointers", "alice")
	unlockTestRoom(t, r, team.Token, lobby.ID)

	// The vault costs 150 and the team has nothing.
	w := doJSON(t, r, http.MethodPost, "/api/rooms/"+vault.ID+"/unlock", team.Token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "insufficient_points" {
		t.Errorf("code = %q, want insufficient_points", code)
	}
}

func TestUnlockRoomDeductsCostAndAdvances(t *testing.T) {
	r, store := testRouter(t)
	lobby, vault := seededRooms(t, store)

	team := createTestTeam(t, r, "Null Pointers", "alice")
	grantPoints(t, store, team.TeamID, 200)

	unlockTestRoom(t, r, team.Token, lobby.ID)
	unlockTestRoom(t, r, team.Token, vault.ID)

	w := doJSON(t, r, http.MethodGet, "/api/team", team.Token, nil)
	var state TeamStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if state.Points != 50 {
		t.Errorf("points = %v, want 50 after paying 150", state.Points)
	}
	if state.CurrentRoom == nil || state.CurrentRoom.OrderIndex != 2 {
		t.Errorf("current room = %+v, want order 2", state.CurrentRoom)
	}
	if state.HighestRoom == nil || state.HighestRoom.OrderIndex != 2 {
		t.Errorf("highest room = %+v, want order 2", state.HighestRoom)
	}
}

func TestUnlockRoomRequiresCaptain(t *testing.T) {
	r, store := testRouter(t)
	lobby, _ := seededRooms(t, store)

	captain := createTestTeam(t, r, "Null Pointers", "alice")
	w := doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "bob",
	})
	var member TeamAuthResponse
	json.NewDecoder(w.Body).Decode(&member)

	w = doJSON(t, r, http.MethodPost, "/api/rooms/"+lobby.ID+"/unlock", member.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRoomPuzzlesGatedByUnlock(t *testing.T) {
	r, store := testRouter(t)
	lobby, _ := seededRooms(t, store)

	team := createTestTeam(t, r, "Null Pointers", "alice")

	w := doJSON(t, r, http.MethodGet, "/api/rooms/"+lobby.ID+"/puzzles", team.Token, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("locked room: expected 422, got %d: %s", w.Code, w.Body.String())
	}

	unlockTestRoom(t, r, team.Token, lobby.ID)

	w = doJSON(t, r, http.MethodGet, "/api/rooms/"+lobby.ID+"/puzzles", team.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unlocked room: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var items []PuzzleListItem
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 2 {
		t.Fatalf("puzzles = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.Solved {
			t.Errorf("puzzle %q should start unsolved", item.Title)
		}
		if item.ClueCount != 1 {
			t.Errorf("puzzle %q clue count = %d, want 1", item.Title, item.ClueCount)
		}
	}
}
