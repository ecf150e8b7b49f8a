package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/flagforge/arena/internal/database"
	"github.com/flagforge/arena/internal/game"
	"github.com/flagforge/arena/internal/migrations"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSalt = "test-salt"

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

// testRouter wires the player routes over a seeded in-memory store, with
// the in-memory rate limiter standing in for Redis.
func testRouter(t *testing.T) (*chi.Mux, *SQLiteStore) {
	t.Helper()
	store := newTestStore(t)
	hasher := game.NewHasher(testSalt)

	if err := SeedDemo(context.Background(), testLogger, store, hasher, "", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	broker := NewBroker()
	audit := NewAuditor(store, testLogger)
	limiter := NewMemoryRateLimiter()

	r := chi.NewRouter()
	r.Post("/api/teams", handleCreateTeam(store, audit))
	r.Post("/api/teams/join", handleJoinTeam(store, broker))
	r.Get("/api/team", handleTeamState(store))
	r.Get("/api/rooms", handleListRooms(store))
	r.Post("/api/rooms/{roomID}/unlock", handleUnlockRoom(store, audit))
	r.Get("/api/rooms/{roomID}/puzzles", handleRoomPuzzles(store))
	r.Post("/api/flags", handleSubmitFlag(testLogger, store, limiter, hasher, audit, broker))
	r.Post("/api/challenges/{puzzleID}/start", handleStartChallenge(store, audit))
	r.Post("/api/actions", handleAction(store, audit, broker))
	r.Get("/api/perks", handleListPerks(store))
	r.Post("/api/clues/{clueID}/buy", handleBuyClue(store, audit))
	r.Post("/api/perks/{perkID}/buy", handleBuyPerk(store, audit))
	r.Get("/api/leaderboard", handleLeaderboard(store))
	return r, store
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createTestTeam(t *testing.T, h http.Handler, teamName, playerName string) TeamAuthResponse {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/teams", "", CreateTeamRequest{
		TeamName: teamName, PlayerName: playerName,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create team: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TeamAuthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

// seededRooms returns the demo rooms in unlock order.
func seededRooms(t *testing.T, store *SQLiteStore) (lobby, vault Room) {
	t.Helper()
	rooms, err := store.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 seeded rooms, got %d", len(rooms))
	}
	return rooms[0], rooms[1]
}

func puzzleByTitle(t *testing.T, store *SQLiteStore, roomID, title string) Puzzle {
	t.Helper()
	puzzles, err := store.PuzzlesByRoom(context.Background(), roomID)
	if err != nil {
		t.Fatalf("puzzles by room: %v", err)
	}
	for _, p := range puzzles {
		if p.Title == title {
			return p
		}
	}
	t.Fatalf("no puzzle titled %q in room %s", title, roomID)
	return Puzzle{}
}

func grantPoints(t *testing.T, store *SQLiteStore, teamID string, delta float64) {
	t.Helper()
	if _, err := store.AdjustTeamPoints(context.Background(), teamID, delta); err != nil {
		t.Fatalf("adjust points: %v", err)
	}
}

func unlockTestRoom(t *testing.T, h http.Handler, token, roomID string) {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/rooms/"+roomID+"/unlock", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unlock room: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	return body.Code
}

func TestCreateTeam(t *testing.T) {
	r, _ := testRouter(t)

	resp := createTestTeam(t, r, "Null Pointers", "alice")
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	if resp.InviteCode == "" {
		t.Fatal("expected an invite code for the captain")
	}
	if resp.TeamName != "Null Pointers" {
		t.Errorf("team name = %q, want %q", resp.TeamName, "Null Pointers")
	}
}

func TestCreateTeamNameTaken(t *testing.T) {
	r, _ := testRouter(t)

	createTestTeam(t, r, "Null Pointers", "alice")
	w := doJSON(t, r, http.MethodPost, "/api/teams", "", CreateTeamRequest{
		TeamName: "Null Pointers", PlayerName: "bob",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "name_taken" {
		t.Errorf("code = %q, want name_taken", code)
	}
}

func TestCreateTeamBadCapacity(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/teams", "", CreateTeamRequest{
		TeamName: "Solo", PlayerName: "alice", Capacity: 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestJoinTeam(t *testing.T) {
	r, _ := testRouter(t)

	captain := createTestTeam(t, r, "Null Pointers", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "bob",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TeamAuthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.TeamID != captain.TeamID {
		t.Errorf("joined team %q, want %q", resp.TeamID, captain.TeamID)
	}
	if resp.InviteCode != "" {
		t.Error("invite code should not be revealed to members")
	}
}

func TestJoinTeamBadInvite(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: "nope1234", PlayerName: "bob",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestJoinTeamFull(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/teams", "", CreateTeamRequest{
		TeamName: "Duo", PlayerName: "alice", Capacity: 2,
	})
	var captain TeamAuthResponse
	json.NewDecoder(w.Body).Decode(&captain)

	w = doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "bob",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second member: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "carol",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("third member: expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != "team_full" {
		t.Errorf("code = %q, want team_full", code)
	}
}

func TestTeamState(t *testing.T) {
	r, _ := testRouter(t)

	captain := createTestTeam(t, r, "Null Pointers", "alice")
	doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "bob",
	})

	w := doJSON(t, r, http.MethodGet, "/api/team", captain.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var state TeamStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if state.Name != "Null Pointers" {
		t.Errorf("name = %q, want Null Pointers", state.Name)
	}
	if len(state.Members) != 2 {
		t.Errorf("members = %d, want 2", len(state.Members))
	}
	if state.InviteCode == "" {
		t.Error("captain should see the invite code")
	}
	if state.Role != "captain" {
		t.Errorf("role = %q, want captain", state.Role)
	}
	if state.ShieldActive || state.UnderAttack {
		t.Error("fresh team should have no active statuses")
	}
	if state.CurrentRoom != nil {
		t.Error("fresh team should not have entered a room")
	}
}

func TestTeamStateMemberHidesInvite(t *testing.T) {
	r, _ := testRouter(t)

	captain := createTestTeam(t, r, "Null Pointers", "alice")
	w := doJSON(t, r, http.MethodPost, "/api/teams/join", "", JoinTeamRequest{
		InviteCode: captain.InviteCode, PlayerName: "bob",
	})
	var member TeamAuthResponse
	json.NewDecoder(w.Body).Decode(&member)

	w = doJSON(t, r, http.MethodGet, "/api/team", member.Token, nil)
	var state TeamStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if state.InviteCode != "" {
		t.Error("member should not see the invite code")
	}
	if state.Role != "member" {
		t.Errorf("role = %q, want member", state.Role)
	}
}

func TestUnauthorizedAccess(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/team", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/team", "bogus", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}
