package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "FlagForge Arena API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the FlagForge capture-the-flag arena.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]struct {
		Status string `json:"status"`
	}{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getHealthz)

	// POST /api/teams
	postTeams, _ := r.NewOperationContext(http.MethodPost, "/api/teams")
	postTeams.SetSummary("Create team")
	postTeams.SetDescription("Creates a team with the caller as captain. Returns a session token and invite code.")
	postTeams.AddReqStructure(CreateTeamRequest{})
	postTeams.AddRespStructure(TeamAuthResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postTeams)

	// POST /api/teams/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/teams/join")
	postJoin.SetSummary("Join a team")
	postJoin.SetDescription("Joins an existing team by invite code. Returns a session token.")
	postJoin.AddReqStructure(JoinTeamRequest{})
	postJoin.AddRespStructure(TeamAuthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postJoin)

	// GET /api/team
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/api/team")
	getTeam.SetSummary("Team state")
	getTeam.SetDescription("Returns the caller's team with live shield, immunity, cooldown and attack status. Requires Bearer token.")
	getTeam.AddRespStructure(TeamStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getTeam)

	// GET /api/rooms
	getRooms, _ := r.NewOperationContext(http.MethodGet, "/api/rooms")
	getRooms.SetSummary("List rooms")
	getRooms.SetDescription("Returns active rooms in order. Briefs are revealed only for unlocked rooms. Requires Bearer token.")
	getRooms.AddRespStructure([]RoomListItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getRooms.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getRooms)

	// POST /api/rooms/{roomID}/unlock
	postUnlock, _ := r.NewOperationContext(http.MethodPost, "/api/rooms/{roomID}/unlock")
	postUnlock.SetSummary("Unlock room")
	postUnlock.SetDescription("Captain unlocks the next room in sequence, paying its cost. Requires Bearer token.")
	postUnlock.AddRespStructure(UnlockRoomResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postUnlock.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postUnlock.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postUnlock)

	// GET /api/rooms/{roomID}/puzzles
	getPuzzles, _ := r.NewOperationContext(http.MethodGet, "/api/rooms/{roomID}/puzzles")
	getPuzzles.SetSummary("Room puzzles")
	getPuzzles.SetDescription("Returns the puzzles of an unlocked room with solved status and clue counts. Requires Bearer token.")
	getPuzzles.AddRespStructure([]PuzzleListItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getPuzzles.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(getPuzzles)

	// POST /api/flags
	postFlags, _ := r.NewOperationContext(http.MethodPost, "/api/flags")
	postFlags.SetSummary("Submit flag")
	postFlags.SetDescription("Submits a flag for a puzzle. Rate limited per team and puzzle. Requires Bearer token.")
	postFlags.AddReqStructure(SubmitFlagRequest{})
	postFlags.AddRespStructure(SubmitFlagResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postFlags.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postFlags.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	postFlags.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postFlags)

	// POST /api/challenges/{puzzleID}/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/challenges/{puzzleID}/start")
	postStart.SetSummary("Start timed challenge")
	postStart.SetDescription("Captain starts a timed challenge, escrowing the investment. Requires Bearer token.")
	postStart.AddRespStructure(StartChallengeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postStart)

	// POST /api/actions
	postActions, _ := r.NewOperationContext(http.MethodPost, "/api/actions")
	postActions.SetSummary("Perform action")
	postActions.SetDescription("Captain attacks another team, raises a shield, or invests points. Requires Bearer token.")
	postActions.AddReqStructure(ActionRequest{})
	postActions.AddRespStructure(ActionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postActions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postActions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postActions)

	// GET /api/perks
	getPerks, _ := r.NewOperationContext(http.MethodGet, "/api/perks")
	getPerks.SetSummary("List perks")
	getPerks.SetDescription("Returns the active perks available for purchase. Requires Bearer token.")
	getPerks.AddRespStructure([]Perk{}, openapi.WithHTTPStatus(http.StatusOK))
	getPerks.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getPerks)

	// POST /api/clues/{clueID}/buy
	postClue, _ := r.NewOperationContext(http.MethodPost, "/api/clues/{clueID}/buy")
	postClue.SetSummary("Buy clue")
	postClue.SetDescription("Captain buys a clue for its point cost. Each clue can be bought once per team. Requires Bearer token.")
	postClue.AddRespStructure(BuyClueResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postClue)

	// POST /api/perks/{perkID}/buy
	postPerk, _ := r.NewOperationContext(http.MethodPost, "/api/perks/{perkID}/buy")
	postPerk.SetSummary("Buy perk")
	postPerk.SetDescription("Captain buys a perk. One-time perks can be bought once per team. Requires Bearer token.")
	postPerk.AddRespStructure(BuyPerkResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPerk.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postPerk.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postPerk)

	// GET /api/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getBoard.SetSummary("Leaderboard")
	getBoard.SetDescription("Returns public standings for all enabled teams, recomputed on demand.")
	getBoard.AddRespStructure([]LeaderboardEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getBoard)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of team notifications. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminLoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminLoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/admin/rooms
	adminRooms, _ := r.NewOperationContext(http.MethodGet, "/api/admin/rooms")
	adminRooms.SetSummary("List all rooms")
	adminRooms.SetDescription("Returns every room including inactive ones. Requires admin_session cookie.")
	adminRooms.AddRespStructure([]Room{}, openapi.WithHTTPStatus(http.StatusOK))
	adminRooms.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminRooms)

	// POST /api/admin/rooms
	adminCreateRoom, _ := r.NewOperationContext(http.MethodPost, "/api/admin/rooms")
	adminCreateRoom.SetSummary("Create room")
	adminCreateRoom.AddReqStructure(AdminRoomRequest{})
	adminCreateRoom.AddRespStructure(Room{}, openapi.WithHTTPStatus(http.StatusCreated))
	adminCreateRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(adminCreateRoom)

	// PUT /api/admin/rooms/{roomID}
	adminUpdateRoom, _ := r.NewOperationContext(http.MethodPut, "/api/admin/rooms/{roomID}")
	adminUpdateRoom.SetSummary("Update room")
	adminUpdateRoom.AddReqStructure(AdminRoomRequest{})
	adminUpdateRoom.AddRespStructure(Room{}, openapi.WithHTTPStatus(http.StatusOK))
	adminUpdateRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminUpdateRoom)

	// DELETE /api/admin/rooms/{roomID}
	adminDeleteRoom, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/rooms/{roomID}")
	adminDeleteRoom.SetSummary("Delete room")
	adminDeleteRoom.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminDeleteRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminDeleteRoom)

	// POST /api/admin/rooms/{roomID}/puzzles
	adminCreatePuzzle, _ := r.NewOperationContext(http.MethodPost, "/api/admin/rooms/{roomID}/puzzles")
	adminCreatePuzzle.SetSummary("Create puzzle")
	adminCreatePuzzle.SetDescription("Creates a puzzle in a room. The flag is hashed server-side and never stored in plaintext.")
	adminCreatePuzzle.AddReqStructure(AdminPuzzleRequest{})
	adminCreatePuzzle.AddRespStructure(Puzzle{}, openapi.WithHTTPStatus(http.StatusCreated))
	adminCreatePuzzle.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(adminCreatePuzzle)

	// PUT /api/admin/puzzles/{puzzleID}
	adminUpdatePuzzle, _ := r.NewOperationContext(http.MethodPut, "/api/admin/puzzles/{puzzleID}")
	adminUpdatePuzzle.SetSummary("Update puzzle")
	adminUpdatePuzzle.AddReqStructure(AdminPuzzleRequest{})
	adminUpdatePuzzle.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminUpdatePuzzle.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminUpdatePuzzle)

	// DELETE /api/admin/puzzles/{puzzleID}
	adminDeletePuzzle, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/puzzles/{puzzleID}")
	adminDeletePuzzle.SetSummary("Delete puzzle")
	adminDeletePuzzle.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminDeletePuzzle.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminDeletePuzzle)

	// POST /api/admin/puzzles/{puzzleID}/clues
	adminCreateClue, _ := r.NewOperationContext(http.MethodPost, "/api/admin/puzzles/{puzzleID}/clues")
	adminCreateClue.SetSummary("Create clue")
	adminCreateClue.SetDescription("Adds a clue to a puzzle. Each puzzle carries at most three clues.")
	adminCreateClue.AddReqStructure(AdminClueRequest{})
	adminCreateClue.AddRespStructure(Clue{}, openapi.WithHTTPStatus(http.StatusCreated))
	adminCreateClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(adminCreateClue)

	// DELETE /api/admin/clues/{clueID}
	adminDeleteClue, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/clues/{clueID}")
	adminDeleteClue.SetSummary("Delete clue")
	adminDeleteClue.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminDeleteClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminDeleteClue)

	// POST /api/admin/perks
	adminCreatePerk, _ := r.NewOperationContext(http.MethodPost, "/api/admin/perks")
	adminCreatePerk.SetSummary("Create perk")
	adminCreatePerk.AddReqStructure(AdminPerkRequest{})
	adminCreatePerk.AddRespStructure(Perk{}, openapi.WithHTTPStatus(http.StatusCreated))
	adminCreatePerk.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(adminCreatePerk)

	// GET /api/admin/teams
	adminTeams, _ := r.NewOperationContext(http.MethodGet, "/api/admin/teams")
	adminTeams.SetSummary("List all teams")
	adminTeams.SetDescription("Returns all teams including disabled ones, with invite codes. Requires admin_session cookie.")
	adminTeams.AddRespStructure([]AdminTeamItem{}, openapi.WithHTTPStatus(http.StatusOK))
	adminTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminTeams)

	// PUT /api/admin/teams/{teamID}/disabled
	adminDisable, _ := r.NewOperationContext(http.MethodPut, "/api/admin/teams/{teamID}/disabled")
	adminDisable.SetSummary("Disable or enable team")
	adminDisable.SetDescription("Disabled teams keep their data but drop off the leaderboard and cannot act.")
	adminDisable.AddReqStructure(AdminDisableRequest{})
	adminDisable.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminDisable.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminDisable)

	// POST /api/admin/teams/{teamID}/points
	adminPoints, _ := r.NewOperationContext(http.MethodPost, "/api/admin/teams/{teamID}/points")
	adminPoints.SetSummary("Adjust team points")
	adminPoints.SetDescription("Applies a point delta. This is the only path that may drive a balance negative.")
	adminPoints.AddReqStructure(AdminPointsRequest{})
	adminPoints.AddRespStructure(AdminPointsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	adminPoints.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminPoints)

	// PUT /api/admin/teams/{teamID}/room
	adminRoom, _ := r.NewOperationContext(http.MethodPut, "/api/admin/teams/{teamID}/room")
	adminRoom.SetSummary("Override team room")
	adminRoom.SetDescription("Moves a team to a room, bypassing ordering and cost rules.")
	adminRoom.AddReqStructure(AdminRoomOverrideRequest{})
	adminRoom.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminRoom)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
